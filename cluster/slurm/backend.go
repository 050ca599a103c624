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
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
)

// defaultTimeout bounds every squeue/scancel invocation.
const defaultTimeout = 120 * time.Second

// State is a normalized job state, collapsed from squeue's %T column.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
	StateUnknown   State = "UNKNOWN"
)

// Backend runs squeue/scancel as subprocesses to introspect and cancel
// jobs the pipeliner itself submitted via sbatch (through the qsub
// script the Project Service materializes). It holds no per-job state of
// its own; the caller (the pipeline runner) is responsible for
// remembering which job ID belongs to which project.
type Backend struct {
	SqueueExe  string
	ScancelExe string
	Timeout    time.Duration
	log15.Logger
}

// New locates squeue and scancel on PATH. It does not error if one is
// missing; that only surfaces when a method using it is called, matching
// how the rest of this module defers cluster-availability checks to call
// time rather than startup time.
func New(logger log15.Logger) *Backend {
	return &Backend{
		SqueueExe:  lookPath("squeue"),
		ScancelExe: lookPath("scancel"),
		Timeout:    defaultTimeout,
		Logger:     logger,
	}
}

func lookPath(name string) string {
	path, err := exec.LookPath(name)
	if err != nil {
		return name // fall back to a bare name; exec.Command will fail loudly when run
	}
	return path
}

// Status reports jobID's current state. A job no longer known to squeue
// (it finished and aged out of the scheduler's table) reports
// StateUnknown; the caller treats that as "no longer running" and falls
// back to whatever success/failure marker the pipeliner itself left.
func (b *Backend) Status(ctx context.Context, jobID string) (State, error) {
	const op = "Status"

	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, b.SqueueExe, "-h", "-j", jobID, "-o", "%T") // #nosec
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return StateUnknown, Error{Op: op, Err: ErrTimeout}
	}
	if err != nil {
		// squeue exits non-zero for an unknown job id; that's not a
		// scheduler failure, just an absent job.
		return StateUnknown, nil
	}

	return normalizeState(strings.TrimSpace(string(out))), nil
}

// Cancel runs scancel on jobID. Cancelling an already-finished job is
// not an error: scancel's "Invalid job id specified" is swallowed.
func (b *Backend) Cancel(ctx context.Context, jobID string) error {
	const op = "Cancel"

	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, b.ScancelExe, jobID) // #nosec
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return Error{Op: op, Err: ErrTimeout}
	}
	if err != nil && !strings.Contains(string(out), "Invalid job id") {
		return Error{Op: op, Err: fmt.Sprintf("%s %s: %s (%s)", b.ScancelExe, jobID, err, strings.TrimSpace(string(out)))}
	}
	return nil
}

func (b *Backend) timeout() time.Duration {
	if b.Timeout <= 0 {
		return defaultTimeout
	}
	return b.Timeout
}

// normalizeState collapses squeue's %T vocabulary (PENDING, RUNNING,
// CONFIGURING, COMPLETING, COMPLETED, CANCELLED, FAILED, TIMEOUT,
// NODE_FAIL, OUT_OF_MEMORY, ...) down to the handful the pipeline
// runner's state machine actually distinguishes.
func normalizeState(raw string) State {
	switch raw {
	case "PENDING", "CONFIGURING":
		return StatePending
	case "RUNNING", "COMPLETING":
		return StateRunning
	case "COMPLETED":
		return StateCompleted
	case "CANCELLED":
		return StateCancelled
	case "FAILED", "TIMEOUT", "NODE_FAIL", "OUT_OF_MEMORY", "BOOT_FAIL", "DEADLINE":
		return StateFailed
	default:
		return StateUnknown
	}
}
