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
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Klumpe-lab/crboost-server/command"
	"github.com/Klumpe-lab/crboost-server/container"
	"github.com/Klumpe-lab/crboost-server/pipeline"
	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/scheme"
	"github.com/Klumpe-lab/crboost-server/watch"
)

// defaultSchemeName is the one live scheme a project's Pipeline Runner
// ever materializes: a project never juggles more than one in-flight run
// at a time, so there is nothing to key this on beyond the project
// itself.
const defaultSchemeName = "default"

// floatsDefault are the scheme's do_at_most/maxtime_hr/wait_sec values.
var floatsDefault = scheme.Floats{DoAtMost: -1, MaxtimeHr: 168, WaitSec: 10}

// startPipeline materializes the scheme from the project's current
// selection, then launches the Pipeline Runner and a Progress Watcher if
// neither is already live for this project.
func (s *Server) startPipeline(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported here", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.store.Snapshot(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(snap.Selected) == 0 {
		writeError(w, &project.Error{Op: "start_pipeline", Kind: project.KindValidation, Message: "no jobs selected"})
		return
	}

	problems, err := s.store.Preflight(name, s.cfg.SchemeTemplatesDir, s.buildCheck(name))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(problems) > 0 {
		writeError(w, &project.Error{Op: "start_pipeline", Kind: project.KindValidation, Message: problems[0].Error()})
		return
	}

	jobs, err := s.buildJobSpecs(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := scheme.Materialize(s.cfg.SchemeTemplatesDir, snap.Path, defaultSchemeName, jobs, floatsDefault); err != nil {
		writeError(w, &project.Error{Op: "start_pipeline", Kind: project.KindValidation, Message: err.Error()})
		return
	}

	runner := s.runnerFor(name, s.runnerOptions(snap))
	pid, err := runner.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if s.watcherFor(name) == nil {
		watcher := watch.NewWatcher(s.store, name, snap.Path, snap.Selected,
			time.Duration(s.cfg.WatchPollIntervalSeconds)*time.Second, s.Logger.New("project", name))
		watcher.Start()
		s.setWatcher(name, watcher)
	}

	writeJSON(w, http.StatusOK, startPipelineResponse{Pid: pid}) //nolint:errcheck
}

// abortPipeline ends an active run for the named project.
func (s *Server) abortPipeline(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported here", http.StatusMethodNotAllowed)
		return
	}
	runner := s.watcherRunnerOrNotFound(w, name)
	if runner == nil {
		return
	}
	if err := runner.Abort(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, name)
}

// resetHead resets the named project's scheme head back to WAIT.
func (s *Server) resetHead(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported here", http.StatusMethodNotAllowed)
		return
	}
	runner := s.watcherRunnerOrNotFound(w, name)
	if runner == nil {
		return
	}
	if err := runner.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, name)
}

// watcherRunnerOrNotFound returns the project's already-running Runner,
// writing a not_running error and returning nil if none has ever been
// started (abort/reset before the first start_pipeline).
func (s *Server) watcherRunnerOrNotFound(w http.ResponseWriter, name string) *pipeline.Runner {
	s.mu.Lock()
	runner, ok := s.runners[name]
	s.mu.Unlock()
	if !ok {
		writeError(w, &project.Error{Op: "abort_or_reset", Kind: project.KindNotRunning, Message: "no pipeline run has ever been started for this project"})
		return nil
	}
	return runner
}

// buildJobSpecs builds and wraps every selected job's command, in
// canonical pipeline order, ready for the Scheme Materializer.
func (s *Server) buildJobSpecs(snap *project.Project) ([]scheme.JobSpec, error) {
	jobs := make([]scheme.JobSpec, 0, len(snap.Selected))
	for _, kind := range snap.Selected {
		rec := snap.Jobs[kind]
		raw, err := command.Build(kind, snap.Global, rec, resolvedPathsFor(s.cfg, rec))
		if err != nil {
			return nil, &project.Error{Op: "start_pipeline", Kind: project.KindMissingParam, Message: err.Error()}
		}

		opts, containerized := s.containerOptionsForKind(kind)
		wrapped := container.Wrap(raw, containerized, opts)
		jobs = append(jobs, scheme.JobSpec{Kind: kind, Command: wrapped})
	}
	return jobs, nil
}

// containerOptionsForKind resolves a JobKind's tool configuration into
// container.Options plus whether that tool actually runs containerized,
// per cfg.Tools's binary-xor-container contract.
func (s *Server) containerOptionsForKind(kind project.JobKind) (container.Options, bool) {
	opts := s.baseContainerOptions()
	tag := project.ToolTag(kind)
	toolCfg, ok := s.cfg.Tools[tag]
	if !ok {
		return opts, false
	}
	opts.Image = toolCfg.Path
	opts.GPU = tag == "warp" || tag == "motioncor2"
	return opts, toolCfg.Container
}

// baseContainerOptions resolves the cluster-integration paths shared by
// every tool wrap: the scheduler client binaries directory (derived from
// wherever squeue was found — sbatch, squeue and scancel are installed
// alongside each other), a conventional scheduler library directory, and
// the munge auth socket directory, each bound only if it exists (see
// container/wrapper.go's own existence checks). The pipeliner running
// inside the container invokes sbatch itself to submit jobs; this
// package's own slurm.Backend only ever cancels and inspects jobs.
func (s *Server) baseContainerOptions() container.Options {
	opts := container.Options{
		Runtime:            s.cfg.ContainerRuntime,
		BindPasswdAndGroup: true,
		IsRelionImage:      true,
		ScratchDir:         s.cfg.NodeScratchDir,
	}
	if home, err := os.UserHomeDir(); err == nil {
		opts.HomeDir = home
	}
	if s.scheduler != nil && s.scheduler.SqueueExe != "" {
		opts.SchedulerClientBinDir = filepath.Dir(s.scheduler.SqueueExe)
		opts.SchedulerLibDir = "/usr/lib/slurm"
	}
	opts.AuthSocketDir = os.Getenv("MUNGE_AUTH_SOCKET_DIR")
	if opts.AuthSocketDir == "" {
		opts.AuthSocketDir = "/var/run/munge"
	}
	return opts
}

// runnerOptions builds a fresh pipeline.Options from snap and cfg. It is
// only ever used the first time a project's Runner is constructed;
// runnerFor ignores it on every subsequent call for that project name.
func (s *Server) runnerOptions(snap *project.Project) pipeline.Options {
	containerized := false
	var opts container.Options
	if len(snap.Selected) > 0 {
		opts, containerized = s.containerOptionsForKind(snap.Selected[0])
	} else {
		opts = s.baseContainerOptions()
	}

	return pipeline.Options{
		PipelinerExe:  s.cfg.PipelinerExe,
		SchemeName:    defaultSchemeName,
		ProjectRoot:   snap.Path,
		ProjectBase:   s.cfg.LocalDefaultProjectBase,
		Containerized: containerized,
		ContainerOpts: opts,
		Scheduler:     s.scheduler,
	}
}
