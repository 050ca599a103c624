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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotFileName is the file a project's parameters are persisted to,
// directly inside the project's root directory.
const snapshotFileName = "project_params.json"

// timeLayout is ISO-8601/RFC3339 in UTC, per §6's file-format contract.
const timeLayout = time.RFC3339

func parseTimeOrZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// diskSnapshot mirrors Project's persisted fields using the documented
// canonical top-level shape: {name, path, created_at, modified_at,
// microscope, acquisition, computing, selected, jobs}. GlobalParameters is
// embedded rather than nested under a "global" key so its three groups
// marshal as top-level siblings of jobs, matching §6 exactly.
type diskSnapshot struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
	ValidatedAt string `json:"validated_at,omitempty"`
	GlobalParameters
	Selected []JobKind              `json:"selected"`
	Jobs     map[JobKind]*JobRecord `json:"jobs"`
}

func snapshotPath(p *Project) string {
	return filepath.Join(p.Path, snapshotFileName)
}

// snapshotToDisk atomically writes p's current state to
// <p.Path>/project_params.json: the new content is written to a temp file
// in the same directory, then renamed over the final path, so a reader
// never observes a partially written snapshot.
func snapshotToDisk(p *Project) error {
	if err := os.MkdirAll(p.Path, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	snap := diskSnapshot{
		Name:             p.Name,
		Path:             p.Path,
		CreatedAt:        p.CreatedAt.UTC().Format(timeLayout),
		ModifiedAt:       p.ModifiedAt.UTC().Format(timeLayout),
		GlobalParameters: p.Global,
		Selected:         p.Selected,
		Jobs:             p.Jobs,
	}
	if !p.ValidatedAt.IsZero() {
		snap.ValidatedAt = p.ValidatedAt.UTC().Format(timeLayout)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(p.Path, "."+snapshotFileName+".tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, snapshotPath(p)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp snapshot file into place: %w", err)
	}
	return nil
}

// loadSnapshot reads a project's parameters back from
// <path>/project_params.json. A missing or corrupt snapshot is reported
// with KindNoProject by the caller.
func loadSnapshot(path string) (*Project, error) {
	data, err := os.ReadFile(snapshotPath(&Project{Path: path}))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap diskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	created, err := parseTimeOrZero(snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	modified, err := parseTimeOrZero(snap.ModifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parse modified_at: %w", err)
	}
	validated, err := parseTimeOrZero(snap.ValidatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse validated_at: %w", err)
	}

	jobs := snap.Jobs
	if jobs == nil {
		jobs = make(map[JobKind]*JobRecord)
	}
	for kind, rec := range jobs {
		rec.Kind = kind
		if rec.Params == nil {
			rec.Params = make(map[string]interface{})
		}
	}

	return &Project{
		Name:        snap.Name,
		Path:        path,
		CreatedAt:   created,
		ModifiedAt:  modified,
		ValidatedAt: validated,
		Global:      snap.GlobalParameters,
		Selected:    snap.Selected,
		Jobs:        jobs,
	}, nil
}
