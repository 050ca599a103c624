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

package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klumpe-lab/crboost-server/scheme/star"
)

// ProcessesFileName is the pipeliner's own tabular status file, written
// at the root of a project directory.
const ProcessesFileName = "default_pipeline.star"

const (
	processesBlock      = "pipeline_processes"
	processNameColumn   = "rlnPipeLineProcessName"
	processStatusColumn = "rlnPipeLineProcessStatusLabel"
)

// Scheme status labels as written by the pipeliner into the
// rlnPipeLineProcessStatusLabel column. These are the pipeliner's own
// vocabulary, distinct from (and mapped onto) project.JobStatus.
const (
	SchemeStatusRunning   = "Running"
	SchemeStatusScheduled = "Scheduled"
	SchemeStatusSucceeded = "Succeeded"
	SchemeStatusFailed    = "Failed"
	SchemeStatusAborted   = "Aborted"
)

// ProcessRow is one row of the pipeliner's processes table: a scheme-
// relative job directory name and its current status label.
type ProcessRow struct {
	Name   string
	Status string
}

// ReadProcesses parses path's pipeline_processes loop block. A missing
// file is not an error: the pipeliner hasn't written one yet, which is
// the normal state before a run's first tick.
func ReadProcesses(path string) ([]ProcessRow, error) {
	doc, err := star.ParseFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("watch: parse %s: %w", path, err)
	}

	block := doc.Block(processesBlock)
	if block == nil || !block.IsLoop() {
		return nil, nil
	}

	nameIdx := block.ColumnIndex(processNameColumn)
	statusIdx := block.ColumnIndex(processStatusColumn)
	if nameIdx < 0 || statusIdx < 0 {
		return nil, fmt.Errorf("watch: %s missing expected columns in %s", path, processesBlock)
	}

	rows := make([]ProcessRow, 0, len(block.Rows))
	for _, row := range block.Rows {
		if nameIdx >= len(row) || statusIdx >= len(row) {
			continue
		}
		rows = append(rows, ProcessRow{Name: row[nameIdx], Status: row[statusIdx]})
	}
	return rows, nil
}

// RewriteRowStatus overwrites name's status label in path's processes
// table and atomically replaces the file, mirroring the
// write-temp-then-rename discipline the project package's snapshot
// writer uses. It is a no-op if name isn't present.
func RewriteRowStatus(path, name, status string) error {
	doc, err := star.ParseFile(path)
	if err != nil {
		return fmt.Errorf("watch: parse %s: %w", path, err)
	}

	block := doc.Block(processesBlock)
	if block == nil || !block.IsLoop() {
		return fmt.Errorf("watch: %s has no %s loop block", path, processesBlock)
	}
	nameIdx := block.ColumnIndex(processNameColumn)
	statusIdx := block.ColumnIndex(processStatusColumn)
	if nameIdx < 0 || statusIdx < 0 {
		return fmt.Errorf("watch: %s missing expected columns in %s", path, processesBlock)
	}

	found := false
	for i, row := range block.Rows {
		if nameIdx < len(row) && row[nameIdx] == name {
			block.Rows[i][statusIdx] = status
			found = true
		}
	}
	if !found {
		return nil
	}

	tmp := path + ".tmp"
	if err := star.WriteFile(tmp, doc); err != nil {
		return fmt.Errorf("watch: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("watch: rename %s: %w", tmp, err)
	}
	return nil
}

// JobDirFromRow maps a processes-table row name (a scheme-relative
// directory such as "Schemes/default/fs_motion_and_ctf/") to its
// absolute path under projectRoot.
func JobDirFromRow(projectRoot, name string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(name))
}
