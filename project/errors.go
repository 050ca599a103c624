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
	"errors"
	"fmt"
)

// Error kinds returned by Store operations and, by re-export, by the
// higher-level packages (projectsvc, httpapi) that wrap this package.
const (
	KindValidation      = "validation_error"
	KindFrozenJob       = "frozen_job"
	KindPipelineActive  = "pipeline_active"
	KindNoProject       = "no_project"
	KindExists          = "exists"
	KindBadGlob         = "bad_glob"
	KindDuplicateImport = "duplicate_import"
	KindNotFound        = "not_found"
	KindSnapshotInvalid = "snapshot_invalid"
	KindNotRunning      = "not_running"
	KindMissingParam    = "missing_parameter"
	KindNoMatchingFiles = "no_matching_files"
)

// Error is the structured error type returned throughout this package and
// the packages built on top of it. Op names the failing operation; Kind is
// one of the Kind* constants and lets callers (in particular the httpapi
// package) map failures onto response codes without string matching on
// Error's message.
type Error struct {
	Op      string
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func newErr(op, kind, format string, a ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// ErrorKind returns err's Kind if err is (or wraps) an *Error, else "".
func ErrorKind(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
