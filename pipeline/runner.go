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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/Klumpe-lab/crboost-server/cluster/slurm"
	"github.com/Klumpe-lab/crboost-server/container"
	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/watch"
)

const (
	jobIDMarkerFile   = ".crboost_job_id"
	successMarkerFile = "RELION_JOB_EXIT_SUCCESS"
	lockDirName       = ".relion_lock"

	// resetTimeout bounds the synchronous `--reset` call, matching the
	// cluster/slurm package's own bound on scheduler introspection calls.
	resetTimeout = 120 * time.Second
)

// Options configures one project's Runner. It is supplied once, at
// construction, from the project's GlobalParameters and the server's own
// internal.Config.
type Options struct {
	PipelinerExe string
	SchemeName   string
	ProjectRoot  string
	ProjectBase  string

	Containerized bool
	ContainerOpts container.Options

	// Scheduler is nil when the server isn't configured for SLURM
	// integration; Abort then skips the scheduler-cancel step entirely.
	Scheduler *slurm.Backend
}

// Runner supervises one project's pipeliner subprocess across its whole
// starting/running/stopping lifecycle. One Runner exists per open
// project for as long as that project might run a pipeline.
type Runner struct {
	opts Options
	log15.Logger

	mu      deadlock.Mutex
	state   State
	cmd     *exec.Cmd
	logFile *os.File
	runNum  int
}

// New returns an idle Runner for the given Options.
func New(opts Options, logger log15.Logger) *Runner {
	return &Runner{opts: opts, Logger: logger, state: StateIdle}
}

// State reports the Runner's current supervisory state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// transition must be called with r.mu held.
func (r *Runner) transition(next State) error {
	if !r.state.canTransitionTo(next) {
		return fmt.Errorf("pipeline: illegal transition %s -> %s", r.state, next)
	}
	r.state = next
	return nil
}

// Start launches the pipeliner as a supervised, detached subprocess
// wrapped per opts.ContainerOpts, logging its combined output to a
// numbered Logs/run_<n>.log under the project root. It refuses to act if
// a run is already starting, running, or stopping.
func (r *Runner) Start(ctx context.Context) (int, error) {
	const op = "start_pipeline"

	r.mu.Lock()
	if r.state.Active() {
		r.mu.Unlock()
		return 0, &project.Error{Op: op, Kind: project.KindPipelineActive, Message: "a pipeline run is already active"}
	}
	if err := r.transition(StateStarting); err != nil {
		r.mu.Unlock()
		return 0, &project.Error{Op: op, Kind: project.KindPipelineActive, Message: err.Error()}
	}
	r.runNum++
	runNum := r.runNum
	r.mu.Unlock()

	logPath := filepath.Join(r.opts.ProjectRoot, "Logs", fmt.Sprintf("run_%d.log", runNum))
	logFile, err := os.Create(logPath) // #nosec
	if err != nil {
		r.fail()
		return 0, fmt.Errorf("pipeline: create %s: %w", logPath, err)
	}

	raw := fmt.Sprintf("%s --scheme %s --run --verb 2", r.opts.PipelinerExe, r.opts.SchemeName)
	wrapped := container.Wrap(raw, r.opts.Containerized, r.wrapOpts())

	// The pipeliner outlives any single HTTP request that triggered it, so
	// it is not tied to ctx; Abort is how it gets stopped.
	cmd := exec.Command("/bin/sh", "-c", wrapped) // #nosec
	cmd.Dir = r.opts.ProjectRoot
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutR, stdoutW := io.Pipe()
	cmd.Stdout = io.MultiWriter(logFile, stdoutW)
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		r.fail()
		return 0, &project.Error{Op: op, Kind: project.KindSnapshotInvalid, Message: err.Error()}
	}

	r.mu.Lock()
	r.cmd = cmd
	r.logFile = logFile
	r.mu.Unlock()

	go r.pumpStdout(stdoutR)
	go r.wait(cmd, logFile, stdoutW)

	_ = ctx // acknowledged: Start's caller may cancel ctx without affecting the spawned process
	return cmd.Process.Pid, nil
}

// pumpStdout drains the pipeliner's teed stdout so the MultiWriter never
// blocks on a slow or absent reader, and flips starting->running the
// moment any output appears.
func (r *Runner) pumpStdout(pr *io.PipeReader) {
	defer internal.LogPanic(r.Logger, "pipeline stdout pump", false)

	reader := bufio.NewReader(pr)
	first := true
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 && first {
			first = false
			r.mu.Lock()
			if r.state == StateStarting {
				_ = r.transition(StateRunning)
			}
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// wait blocks until the pipeliner exits, then settles the Runner into its
// terminal state.
func (r *Runner) wait(cmd *exec.Cmd, logFile *os.File, stdoutW *io.PipeWriter) {
	defer internal.LogPanic(r.Logger, "pipeline wait", false)

	err := cmd.Wait()
	stdoutW.Close()
	logFile.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.state == StateStopping:
		_ = r.transition(StateIdle)
	case err != nil:
		if r.state == StateStarting {
			_ = r.transition(StateRunning) // never observed any output before exiting
		}
		_ = r.transition(StateFailed)
	default:
		if r.state == StateStarting {
			_ = r.transition(StateRunning)
		}
		_ = r.transition(StateCompleted)
	}
	r.cmd = nil
}

func (r *Runner) fail() {
	r.mu.Lock()
	_ = r.transition(StateFailed)
	r.mu.Unlock()
}

func (r *Runner) wrapOpts() container.Options {
	opts := r.opts.ContainerOpts
	opts.ProjectRoot = r.opts.ProjectRoot
	opts.ProjectBase = r.opts.ProjectBase
	return opts
}

// Abort ends an active run: it kills the pipeliner's process group,
// best-effort cancels whatever scheduler job the processes file reports
// Running, marks that job Failed if it left no success marker, and
// removes the scheme's lock directory so a fresh run can start. Each
// step happens even if an earlier one failed; the return aggregates every
// failure with go-multierror.
func (r *Runner) Abort(ctx context.Context) error {
	const op = "abort_pipeline"

	r.mu.Lock()
	cmd := r.cmd
	active := r.state.Active()
	if active {
		_ = r.transition(StateStopping)
	}
	r.mu.Unlock()

	if !active {
		return &project.Error{Op: op, Kind: project.KindNotRunning, Message: "no pipeline run is active"}
	}

	var result *multierror.Error

	if cmd != nil && cmd.Process != nil {
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			result = multierror.Append(result, fmt.Errorf("terminate pipeliner process group: %w", err))
		}
	}

	processesPath := filepath.Join(r.opts.ProjectRoot, watch.ProcessesFileName)
	rows, err := watch.ReadProcesses(processesPath)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("read processes file: %w", err))
		rows = nil
	}

	var runningRow *watch.ProcessRow
	for i := range rows {
		if rows[i].Status == watch.SchemeStatusRunning {
			runningRow = &rows[i]
			break
		}
	}

	if runningRow != nil {
		if err := r.cancelSchedulerJob(ctx, *runningRow); err != nil {
			result = multierror.Append(result, err)
		}

		jobDir := watch.JobDirFromRow(r.opts.ProjectRoot, runningRow.Name)
		if _, err := os.Stat(filepath.Join(jobDir, successMarkerFile)); os.IsNotExist(err) {
			if err := watch.RewriteRowStatus(processesPath, runningRow.Name, watch.SchemeStatusFailed); err != nil {
				result = multierror.Append(result, fmt.Errorf("rewrite processes file: %w", err))
			}
		}
	}

	lockDir := filepath.Join(r.opts.ProjectRoot, "Schemes", r.opts.SchemeName, lockDirName)
	if err := os.RemoveAll(lockDir); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove lock dir %s: %w", lockDir, err))
	}

	return result.ErrorOrNil()
}

// cancelSchedulerJob reads the .crboost_job_id marker the job's qsub
// script is expected to have written at submission time and, if present,
// cancels it. A missing marker (no scheduler configured, or the job
// hadn't reached sbatch yet) is not an error.
func (r *Runner) cancelSchedulerJob(ctx context.Context, row watch.ProcessRow) error {
	if r.opts.Scheduler == nil {
		return nil
	}

	jobDir := watch.JobDirFromRow(r.opts.ProjectRoot, row.Name)
	data, err := os.ReadFile(filepath.Join(jobDir, jobIDMarkerFile)) // #nosec
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read scheduler job id marker for %s: %w", row.Name, err)
	}

	jobID := strings.TrimSpace(string(data))
	if jobID == "" {
		return nil
	}
	if err := r.opts.Scheduler.Cancel(ctx, jobID); err != nil {
		return fmt.Errorf("cancel scheduler job %s for %s: %w", jobID, row.Name, err)
	}

	if state, err := r.opts.Scheduler.Status(ctx, jobID); err == nil && (state == slurm.StatePending || state == slurm.StateRunning) {
		r.Warn("scheduler still reports job as active after cancel", "job_id", jobID, "row", row.Name, "state", state)
	}
	return nil
}

// Reset invokes the pipeliner synchronously with --reset, setting the
// scheme's current node back to WAIT, then clears a settled (completed,
// failed, or idle) Runner back to idle so a subsequent Start is accepted.
// It refuses to act while a run is active; use Abort first.
func (r *Runner) Reset(ctx context.Context) error {
	const op = "reset_head"

	r.mu.Lock()
	active := r.state.Active()
	r.mu.Unlock()
	if active {
		return &project.Error{Op: op, Kind: project.KindPipelineActive, Message: "cannot reset while a pipeline run is active"}
	}

	raw := fmt.Sprintf("%s --scheme %s --reset", r.opts.PipelinerExe, r.opts.SchemeName)
	wrapped := container.Wrap(raw, r.opts.Containerized, r.wrapOpts())

	ctx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", wrapped) // #nosec
	cmd.Dir = r.opts.ProjectRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pipeline: reset scheme %s: %w (%s)", r.opts.SchemeName, err, strings.TrimSpace(string(out)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		if err := r.transition(StateIdle); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	r.runNum = 0
	return nil
}
