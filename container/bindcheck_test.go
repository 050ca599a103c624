// Copyright © 2025 Genome Research Limited
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

package container

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCmdlineHasRelativePaths(t *testing.T) {
	dir := t.TempDir()
	dirName := filepath.Base(dir)
	pathBase := "file"
	absPath := filepath.Join(dir, pathBase)

	f, err := os.Create(absPath)
	if err != nil {
		t.Fatalf("could not create %s: %s", absPath, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("could not close %s: %s", absPath, err)
	}

	tests := []struct {
		cmdline  string
		expected bool
	}{
		{"", false},
		{"cmd --foo", false},
		{"cmd --foo " + pathBase, true},
		{"cmd --foo " + absPath, false},
		{"cmd $(cat " + pathBase + ")", true},
		{"cmd $(cat " + absPath + ")", false},
		{"cmd foo=" + pathBase, true},
		{"cmd foo=" + absPath, false},
		{"cmd && cat " + pathBase, true},
		{"cmd && cat " + absPath, false},
		{"echo " + pathBase + "; true", true},
		{"echo " + absPath + "; true", false},
		{"echo ./" + pathBase, true},
		{"echo ../" + pathBase, false},
		{"echo ../" + dirName + "/" + pathBase, true},
		{"file " + absPath, false},
		{"cmd *", true},
		{"cmd ./*", true},
		{"cmd " + dirName + "/*", false},
	}

	for _, tt := range tests {
		if got := CmdlineHasRelativePaths(dir, tt.cmdline); got != tt.expected {
			t.Errorf("CmdlineHasRelativePaths(%q, %q) = %v, want %v", dir, tt.cmdline, got, tt.expected)
		}
	}
}
