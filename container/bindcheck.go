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
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

const equalSplitParts = 2

// getFilesInDir returns a map of all the entries in dir, keyed by their
// absolute path. It returns nil if dir does not exist or cannot be read.
func getFilesInDir(dir string) map[string]bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	filesInDir := make(map[string]bool, len(entries))
	for _, entry := range entries {
		filesInDir[filepath.Join(dir, entry.Name())] = true
	}
	return filesInDir
}

// CmdlineHasRelativePaths reports whether cmdline has any argument that
// looks like a relative reference to a file that actually exists in dir.
// The Bind Resolver uses this to decide whether a command needs dir bound
// into the container even though the caller didn't name it explicitly
// (e.g. a raw tool command built with relative output paths).
//
// NB: there may be false negatives and false positives, so this is a
// heuristic, not a guarantee.
func CmdlineHasRelativePaths(dir, cmdline string) bool {
	filesInDir := getFilesInDir(dir)
	if len(filesInDir) == 0 {
		return false
	}

	args, err := shlex.Split(cmdline)
	if err != nil {
		return false
	}

	for i, arg := range args {
		if i == 0 && isExe(arg) {
			continue
		}
		if argIsRelativeGlob(filesInDir, arg) {
			return true
		}
		if argIsARelativePath(filesInDir, dir, arg) {
			return true
		}
	}
	return false
}

func isExe(arg string) bool {
	exe, _ := exec.LookPath(arg) //nolint:errcheck
	return exe != ""
}

func argIsRelativeGlob(filesInDir map[string]bool, arg string) bool {
	arg = strings.TrimPrefix(arg, "./")
	arg = strings.TrimSuffix(arg, "/")
	arg = strings.TrimSuffix(arg, "/*")

	if arg == "" {
		return false
	}

	for absPath := range filesInDir {
		basename := filepath.Base(absPath)
		matched, err := filepath.Match(arg, basename)
		if err != nil {
			return false
		}
		if matched {
			return true
		}
	}
	return false
}

// argIsARelativePath checks if arg is one of the actual file paths in dir,
// either as-is or after stripping shell punctuation/an assignment prefix.
//
// NB: use github.com/google/shlex to split a command line into arguments,
// not github.com/mattn/go-shellwords, as the latter stops at ; and &&.
func argIsARelativePath(filesInDir map[string]bool, dir, arg string) bool {
	if fileInDir(filesInDir, dir, arg) {
		return true
	}

	arg = cleanArg(arg)
	if arg == "" {
		return false
	}
	return fileInDir(filesInDir, dir, arg)
}

func fileInDir(filesInDir map[string]bool, dir, arg string) bool {
	return filesInDir[filepath.Join(dir, arg)]
}

func cleanArg(arg string) string {
	arg = strings.TrimSuffix(arg, ")")
	arg = strings.TrimSuffix(arg, ";")

	parts := strings.Split(arg, "=")
	if len(parts) == equalSplitParts {
		arg = parts[1]
	}
	return arg
}
