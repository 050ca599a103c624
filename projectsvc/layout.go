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

package projectsvc

import (
	"fmt"
	"os"
	"path/filepath"
)

// layoutDirs are the fixed set of subdirectories every new project gets.
var layoutDirs = []string{"Schemes", "Logs", "frames", "mdoc", "qsub"}

// CreateLayout creates root and its fixed set of subdirectories. It is
// idempotent: calling it again on an existing project is a no-op.
func CreateLayout(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("projectsvc: create project root %s: %w", root, err)
	}
	for _, d := range layoutDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("projectsvc: create %s: %w", d, err)
		}
	}
	return nil
}
