// Copyright © 2016-2018 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

package project

import (
	"path/filepath"
	"testing"
)

func validGlobal() GlobalParameters {
	return GlobalParameters{
		Microscope: Microscope{
			PixelSizeAngstrom:     1.35,
			VoltageKV:             300,
			SphericalAberrationMM: 2.7,
			AmplitudeContrast:     0.08,
		},
		Acquisition: Acquisition{
			DosePerTiltEPerA2: 3.0,
			TiltAxisAngleDeg:  85.5,
		},
	}
}

func TestCreateAndOpenProjectRoundTrips(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "myproj")
	s := NewStore()

	created, err := s.CreateProject("myproj", root)
	if err != nil {
		t.Fatalf("CreateProject: %s", err)
	}
	if created.Name != "myproj" {
		t.Errorf("Name = %q, want myproj", created.Name)
	}

	if _, err := s.CreateProject("myproj", root); ErrorKind(err) != KindExists {
		t.Errorf("second CreateProject kind = %q, want %q", ErrorKind(err), KindExists)
	}

	s2 := NewStore()
	opened, err := s2.OpenProject("myproj", root)
	if err != nil {
		t.Fatalf("OpenProject: %s", err)
	}
	if opened.Name != "myproj" {
		t.Errorf("reopened Name = %q, want myproj", opened.Name)
	}
}

func TestOpenProjectMissingSnapshot(t *testing.T) {
	s := NewStore()
	if _, err := s.OpenProject("ghost", filepath.Join(t.TempDir(), "ghost")); ErrorKind(err) != KindNoProject {
		t.Errorf("kind = %q, want %q", ErrorKind(err), KindNoProject)
	}
}

func TestSetGlobalValidation(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if _, err := s.CreateProject("p", dir); err != nil {
		t.Fatalf("CreateProject: %s", err)
	}

	if err := s.SetGlobal("p", validGlobal()); err != nil {
		t.Fatalf("SetGlobal valid: %s", err)
	}

	tests := []struct {
		name string
		mut  func(g *GlobalParameters)
	}{
		{"pixel size too small", func(g *GlobalParameters) { g.Microscope.PixelSizeAngstrom = 0.1 }},
		{"pixel size too large", func(g *GlobalParameters) { g.Microscope.PixelSizeAngstrom = 20 }},
		{"amplitude contrast negative", func(g *GlobalParameters) { g.Microscope.AmplitudeContrast = -0.1 }},
		{"amplitude contrast over one", func(g *GlobalParameters) { g.Microscope.AmplitudeContrast = 1.5 }},
		{"dose too low", func(g *GlobalParameters) { g.Acquisition.DosePerTiltEPerA2 = 0.01 }},
		{"tilt axis out of range", func(g *GlobalParameters) { g.Acquisition.TiltAxisAngleDeg = 270 }},
	}
	for _, tt := range tests {
		g := validGlobal()
		tt.mut(&g)
		if err := s.SetGlobal("p", g); ErrorKind(err) != KindValidation {
			t.Errorf("%s: kind = %q, want %q", tt.name, ErrorKind(err), KindValidation)
		}
	}
}

func TestSetGlobalNoProject(t *testing.T) {
	s := NewStore()
	if err := s.SetGlobal("nope", validGlobal()); ErrorKind(err) != KindNoProject {
		t.Errorf("kind = %q, want %q", ErrorKind(err), KindNoProject)
	}
}

func TestSelectJobOrdering(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if _, err := s.CreateProject("p", dir); err != nil {
		t.Fatalf("CreateProject: %s", err)
	}

	if err := s.SelectJob("p", JobImportMovies); err != nil {
		t.Fatalf("SelectJob import_movies: %s", err)
	}
	if err := s.SelectJob("p", JobTSCTF); err != nil {
		t.Fatalf("SelectJob ts_ctf: %s", err)
	}
	if err := s.SelectJob("p", JobFSMotionAndCTF); ErrorKind(err) != KindValidation {
		t.Errorf("out-of-order select kind = %q, want %q", ErrorKind(err), KindValidation)
	}

	snap, err := s.Snapshot("p")
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if len(snap.Selected) != 2 {
		t.Fatalf("Selected = %v, want 2 entries", snap.Selected)
	}
}

func TestSetJobFieldFrozen(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if _, err := s.CreateProject("p", dir); err != nil {
		t.Fatalf("CreateProject: %s", err)
	}
	if err := s.SelectJob("p", JobImportMovies); err != nil {
		t.Fatalf("SelectJob: %s", err)
	}
	if err := s.SetJobField("p", JobImportMovies, "glob", "*.tiff"); err != nil {
		t.Fatalf("SetJobField: %s", err)
	}

	if err := s.SetJobStatus("p", JobImportMovies, StatusRunning); err != nil {
		t.Fatalf("SetJobStatus: %s", err)
	}
	if err := s.SetJobField("p", JobImportMovies, "glob", "*.eer"); ErrorKind(err) != KindFrozenJob {
		t.Errorf("kind = %q, want %q", ErrorKind(err), KindFrozenJob)
	}
}

func TestDeselectAndResetToDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if _, err := s.CreateProject("p", dir); err != nil {
		t.Fatalf("CreateProject: %s", err)
	}
	if err := s.SelectJob("p", JobImportMovies); err != nil {
		t.Fatalf("SelectJob: %s", err)
	}
	if err := s.DeselectJob("p", JobImportMovies); err != nil {
		t.Fatalf("DeselectJob: %s", err)
	}
	snap, err := s.Snapshot("p")
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if len(snap.Selected) != 0 {
		t.Errorf("Selected = %v, want empty", snap.Selected)
	}

	if err := s.SelectJob("p", JobImportMovies); err != nil {
		t.Fatalf("SelectJob again: %s", err)
	}
	if err := s.SetJobStatus("p", JobImportMovies, StatusFailed); err != nil {
		t.Fatalf("SetJobStatus: %s", err)
	}
	if err := s.ResetToDefaults("p"); err != nil {
		t.Fatalf("ResetToDefaults: %s", err)
	}
	snap, err = s.Snapshot("p")
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if snap.Status(JobImportMovies) != StatusNotScheduled {
		t.Errorf("status after reset = %q, want %q", snap.Status(JobImportMovies), StatusNotScheduled)
	}
}
