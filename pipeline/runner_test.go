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

package pipeline

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

func newRunnerForScript(t *testing.T, script string) *Runner {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Logs"), 0o755); err != nil {
		t.Fatalf("mkdir Logs: %s", err)
	}
	opts := Options{PipelinerExe: script, SchemeName: "default", ProjectRoot: root}
	return New(opts, testLogger())
}

func waitForState(t *testing.T, r *Runner, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("runner never reached state %s, stuck at %s", want, r.State())
}

func TestRunnerStartCompletes(t *testing.T) {
	r := newRunnerForScript(t, "echo hello #")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %s", err)
	}
	waitForState(t, r, StateCompleted, 2*time.Second)
}

func TestRunnerStartFails(t *testing.T) {
	r := newRunnerForScript(t, "false #")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %s", err)
	}
	waitForState(t, r, StateFailed, 2*time.Second)
}

func TestRunnerStartWhileActiveRejected(t *testing.T) {
	r := newRunnerForScript(t, "echo go; sleep 1 #")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %s", err)
	}
	waitForState(t, r, StateRunning, time.Second)

	if _, err := r.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to be rejected while active")
	}

	if err := r.Abort(context.Background()); err != nil {
		t.Fatalf("Abort: %s", err)
	}
	waitForState(t, r, StateIdle, 2*time.Second)
}

func TestRunnerAbortWhenNotRunning(t *testing.T) {
	r := newRunnerForScript(t, "true #")
	if err := r.Abort(context.Background()); err == nil {
		t.Fatal("expected abort of an idle runner to fail")
	}
}

func TestRunnerResetAfterCompletion(t *testing.T) {
	r := newRunnerForScript(t, "true #")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %s", err)
	}
	waitForState(t, r, StateCompleted, 2*time.Second)

	if err := r.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %s", err)
	}
	if got := r.State(); got != StateIdle {
		t.Errorf("state after Reset = %s, want %s", got, StateIdle)
	}
}

func TestRunnerResetWhileActiveRejected(t *testing.T) {
	r := newRunnerForScript(t, "echo go; sleep 1 #")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %s", err)
	}
	waitForState(t, r, StateRunning, time.Second)

	if err := r.Reset(context.Background()); err == nil {
		t.Fatal("expected Reset to be rejected while active")
	}

	_ = r.Abort(context.Background())
	waitForState(t, r, StateIdle, 2*time.Second)
}
