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

import "testing"

func TestValidJobKind(t *testing.T) {
	if !ValidJobKind(JobImportMovies) {
		t.Error("JobImportMovies should be valid")
	}
	if ValidJobKind(JobKind("not_a_kind")) {
		t.Error("bogus kind should be invalid")
	}
}

func TestToolTagAndIsDriverKind(t *testing.T) {
	if ToolTag(JobImportMovies) != "imod" {
		t.Errorf("ToolTag(import_movies) = %q, want imod", ToolTag(JobImportMovies))
	}
	if IsDriverKind(JobImportMovies) {
		t.Error("import_movies should not be a driver kind")
	}
	if !IsDriverKind(JobFSMotionAndCTF) {
		t.Error("fs_motion_and_ctf should be a driver kind")
	}
}

func TestSelectionIsOrdered(t *testing.T) {
	tests := []struct {
		name string
		kinds []JobKind
		want  bool
	}{
		{"empty", nil, true},
		{"single", []JobKind{JobImportMovies}, true},
		{"in order", []JobKind{JobImportMovies, JobTSAlignment, JobTSCTF}, true},
		{"reversed", []JobKind{JobTSCTF, JobImportMovies}, false},
		{"duplicate", []JobKind{JobImportMovies, JobImportMovies}, false},
		{"unknown kind", []JobKind{JobImportMovies, JobKind("bogus")}, false},
	}
	for _, tt := range tests {
		if got := SelectionIsOrdered(tt.kinds); got != tt.want {
			t.Errorf("%s: SelectionIsOrdered(%v) = %v, want %v", tt.name, tt.kinds, got, tt.want)
		}
	}
}
