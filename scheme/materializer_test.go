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

package scheme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klumpe-lab/crboost-server/project"
)

const importMoviesTemplate = `
data_job

_rlnJobTypeLabel relion.external
_rlnJobIsContinue 0
_rlnJobIsTomo 1

data_joboptions_values

loop_
_rlnJobOptionVariable #1
_rlnJobOptionValue #2
fn_exe placeholder
other_args "-x 1"
param1_label "unused"
param1_value "unused"
in_mic Schemes/_template/import_movies/in.star
`

func writeTemplate(t *testing.T, templatesDir string, kind project.JobKind, content string) {
	t.Helper()
	dir := filepath.Join(templatesDir, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "job.star"), []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %s", err)
	}
}

func TestMaterializeWritesJobAndSchemeFiles(t *testing.T) {
	templatesDir := t.TempDir()
	destRoot := t.TempDir()
	writeTemplate(t, templatesDir, project.JobImportMovies, importMoviesTemplate)
	writeTemplate(t, templatesDir, project.JobTSAlignment, strings.Replace(importMoviesTemplate, "import_movies", "ts_alignment", -1))

	jobs := []JobSpec{
		{Kind: project.JobImportMovies, Command: "relion_tomo_import_tilt_series --angpix 1.35"},
		{Kind: project.JobTSAlignment, Command: "python3 /srv/drivers/ts_alignment.py"},
	}

	if err := Materialize(templatesDir, destRoot, "run1", jobs, Floats{DoAtMost: 1, MaxtimeHr: 24, WaitSec: 10}); err != nil {
		t.Fatalf("Materialize: %s", err)
	}

	schemeDir := filepath.Join(destRoot, "Schemes", "run1")
	if _, err := os.Stat(filepath.Join(schemeDir, "scheme.star")); err != nil {
		t.Errorf("scheme.star not written: %s", err)
	}
	for _, kind := range []project.JobKind{project.JobImportMovies, project.JobTSAlignment} {
		if _, err := os.Stat(filepath.Join(schemeDir, string(kind), "job.star")); err != nil {
			t.Errorf("job.star for %s not written: %s", kind, err)
		}
	}
}

func TestMaterializeRewritesFnExeAndStripsParamRows(t *testing.T) {
	templatesDir := t.TempDir()
	destRoot := t.TempDir()
	writeTemplate(t, templatesDir, project.JobImportMovies, importMoviesTemplate)

	jobs := []JobSpec{{Kind: project.JobImportMovies, Command: "relion_tomo_import_tilt_series --angpix 1.35"}}
	if err := Materialize(templatesDir, destRoot, "run1", jobs, Floats{DoAtMost: 1, MaxtimeHr: 24, WaitSec: 10}); err != nil {
		t.Fatalf("Materialize: %s", err)
	}

	contents, err := os.ReadFile(filepath.Join(destRoot, "Schemes", "run1", "import_movies", "job.star"))
	if err != nil {
		t.Fatalf("reading job.star: %s", err)
	}
	text := string(contents)

	if !strings.Contains(text, "relion_tomo_import_tilt_series --angpix 1.35") {
		t.Errorf("job.star missing wrapped fn_exe, got:\n%s", text)
	}
	if strings.Contains(text, "param1_label") || strings.Contains(text, "param1_value") {
		t.Errorf("job.star should have stripped paramN_label/value rows, got:\n%s", text)
	}
	if strings.Contains(text, "_template") {
		t.Errorf("job.star should have rewritten template scheme name refs, got:\n%s", text)
	}
	if !strings.Contains(text, "Schemes/run1/import_movies/in.star") {
		t.Errorf("job.star should reference the new scheme name in in_mic, got:\n%s", text)
	}
}

func TestMaterializeSchemeStarShape(t *testing.T) {
	templatesDir := t.TempDir()
	destRoot := t.TempDir()
	writeTemplate(t, templatesDir, project.JobImportMovies, importMoviesTemplate)
	writeTemplate(t, templatesDir, project.JobTSAlignment, strings.Replace(importMoviesTemplate, "import_movies", "ts_alignment", -1))

	jobs := []JobSpec{
		{Kind: project.JobImportMovies, Command: "cmd1"},
		{Kind: project.JobTSAlignment, Command: "cmd2"},
	}
	if err := Materialize(templatesDir, destRoot, "run1", jobs, Floats{}); err != nil {
		t.Fatalf("Materialize: %s", err)
	}

	contents, err := os.ReadFile(filepath.Join(destRoot, "Schemes", "run1", "scheme.star"))
	if err != nil {
		t.Fatalf("reading scheme.star: %s", err)
	}
	text := string(contents)
	for _, want := range []string{
		"data_scheme_general", "data_scheme_floats", "data_scheme_operators",
		"data_scheme_jobs", "data_scheme_edges",
		"WAIT EXIT_maxtime", "EXIT_maxtime import_movies", "import_movies ts_alignment", "ts_alignment EXIT",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("scheme.star missing %q, got:\n%s", want, text)
		}
	}
}
