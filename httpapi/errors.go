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

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Klumpe-lab/crboost-server/project"
)

// errorResponse is the stable, machine-readable failure shape the UI
// gets on every failed request: a Kind every response can switch on,
// plus a human Message for a notification toast.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusForKind maps a project.Error Kind on to the HTTP status code the
// UI should treat it as. Kinds this package doesn't recognize (a bug, not
// a user-facing condition) fall through to 500.
var statusForKind = map[string]int{
	project.KindValidation:      http.StatusBadRequest,
	project.KindBadGlob:         http.StatusBadRequest,
	project.KindMissingParam:    http.StatusBadRequest,
	project.KindNoMatchingFiles: http.StatusBadRequest,
	project.KindFrozenJob:       http.StatusConflict,
	project.KindPipelineActive:  http.StatusConflict,
	project.KindExists:          http.StatusConflict,
	project.KindDuplicateImport: http.StatusConflict,
	project.KindNotRunning:      http.StatusConflict,
	project.KindNoProject:       http.StatusNotFound,
	project.KindNotFound:        http.StatusNotFound,
	project.KindSnapshotInvalid: http.StatusInternalServerError,
}

// writeError renders err as the JSON errorResponse shape, deriving both
// the Kind and the HTTP status from it if it's a *project.Error, or
// falling back to a generic 500 for anything this package didn't expect
// (a bug surfacing, not a user-facing condition).
func writeError(w http.ResponseWriter, err error) {
	kind := project.ErrorKind(err)
	status := http.StatusInternalServerError
	if kind == "" {
		kind = "internal_error"
	} else if s, ok := statusForKind[kind]; ok {
		status = s
	}

	writeJSON(w, status, errorResponse{Kind: kind, Message: err.Error()})
}

// writeJSON writes v as an application/json response with the given
// status code. An encode failure is returned to the caller; this helper
// has no logger of its own.
func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
