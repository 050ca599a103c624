// Copyright © 2016-2020 Genome Research Limited
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

package slurm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
)

func testLogger() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}

// writeScript writes an executable shell script to dir/name and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %s", name, err)
	}
	return path
}

func TestStatusRunningJob(t *testing.T) {
	dir := t.TempDir()
	b := &Backend{
		SqueueExe: writeScript(t, dir, "squeue", "echo RUNNING\n"),
		Timeout:   5 * time.Second,
		Logger:    testLogger(),
	}

	state, err := b.Status(context.Background(), "42")
	if err != nil {
		t.Fatalf("Status: %s", err)
	}
	if state != StateRunning {
		t.Errorf("state = %s, want RUNNING", state)
	}
}

func TestStatusUnknownJobIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	b := &Backend{
		SqueueExe: writeScript(t, dir, "squeue", "echo 'slurm_load_jobs error: Invalid job id specified' >&2\nexit 1\n"),
		Timeout:   5 * time.Second,
		Logger:    testLogger(),
	}

	state, err := b.Status(context.Background(), "999")
	if err != nil {
		t.Fatalf("Status should not error for an absent job, got %s", err)
	}
	if state != StateUnknown {
		t.Errorf("state = %s, want UNKNOWN", state)
	}
}

func TestCancelSwallowsInvalidJobID(t *testing.T) {
	dir := t.TempDir()
	b := &Backend{
		ScancelExe: writeScript(t, dir, "scancel", "echo 'scancel: error: Invalid job id specified' >&2\nexit 1\n"),
		Timeout:    5 * time.Second,
		Logger:     testLogger(),
	}

	if err := b.Cancel(context.Background(), "999"); err != nil {
		t.Errorf("Cancel of an already-gone job should not error, got %s", err)
	}
}

func TestCancelPropagatesOtherErrors(t *testing.T) {
	dir := t.TempDir()
	b := &Backend{
		ScancelExe: writeScript(t, dir, "scancel", "echo 'permission denied' >&2\nexit 1\n"),
		Timeout:    5 * time.Second,
		Logger:     testLogger(),
	}

	if err := b.Cancel(context.Background(), "42"); err == nil {
		t.Fatal("expected Cancel to propagate a non-invalid-job error")
	}
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		raw  string
		want State
	}{
		{"PENDING", StatePending},
		{"CONFIGURING", StatePending},
		{"RUNNING", StateRunning},
		{"COMPLETING", StateRunning},
		{"COMPLETED", StateCompleted},
		{"CANCELLED", StateCancelled},
		{"FAILED", StateFailed},
		{"TIMEOUT", StateFailed},
		{"NODE_FAIL", StateFailed},
		{"SOMETHING_NEW", StateUnknown},
	}
	for _, tt := range tests {
		if got := normalizeState(tt.raw); got != tt.want {
			t.Errorf("normalizeState(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
