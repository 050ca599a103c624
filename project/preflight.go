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
	"fmt"
	"os"
	"path/filepath"
)

// FieldError is one Preflight violation: either a missing required
// parameter for kind, or a missing template directory.
type FieldError struct {
	Kind    JobKind
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Message)
}

// Preflight re-validates, before a run starts, that every selected
// JobKind can actually be built and materialized: that buildCheck (a
// thin wrapper around command.Build supplied by the caller, since this
// package cannot itself import the command package without an import
// cycle) reports no missing parameter, and that templatesDir/<kind>/
// exists. It returns every violation found, not just the first, and
// mutates no state: the UI may call it standalone before even
// attempting start_pipeline.
func (s *Store) Preflight(name, templatesDir string, buildCheck func(kind JobKind) error) ([]FieldError, error) {
	const op = "preflight"

	e, ok := s.entryFor(name)
	if !ok {
		return nil, newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	selected := append([]JobKind{}, e.project.Selected...)
	e.mu.Unlock()

	if len(selected) == 0 {
		return []FieldError{{Field: "selected_jobs", Message: "no_matching_files: no jobs selected"}}, nil
	}

	var problems []FieldError
	for _, kind := range selected {
		templateDir := filepath.Join(templatesDir, string(kind))
		if _, err := os.Stat(templateDir); err != nil {
			problems = append(problems, FieldError{Kind: kind, Field: "template_dir", Message: fmt.Sprintf("missing template directory %s", templateDir)})
		}
		if buildCheck != nil {
			if err := buildCheck(kind); err != nil {
				problems = append(problems, FieldError{Kind: kind, Field: "command", Message: err.Error()})
			}
		}
	}
	return problems, nil
}
