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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/Klumpe-lab/crboost-server/command"
	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/Klumpe-lab/crboost-server/metadata"
	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/projectsvc"
	"github.com/Klumpe-lab/crboost-server/watch"
)

// handleProjectsCollection serves the create_project operation; every
// other operation targets an existing project and is routed through
// handleProjectsItem instead.
func (s *Server) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported on /projects", http.StatusMethodNotAllowed)
		return
	}
	s.createProject(w, r)
}

// handleProjectsItem dispatches every /projects/{name}[/...] request by
// splitting the path the way jobqueue/serverREST.go's restJobsStatus
// splits its own trailing path segments, rather than pulling in a router.
func (s *Server) handleProjectsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/projects/")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	segments := strings.Split(rest, "/")
	name := segments[0]
	tail := segments[1:]

	switch {
	case len(tail) == 0:
		s.projectItem(w, r, name)
	case len(tail) == 1 && tail[0] == "global":
		s.globalItem(w, r, name)
	case len(tail) == 1 && tail[0] == "reset-to-defaults":
		s.resetToDefaults(w, r, name)
	case len(tail) == 1 && tail[0] == "preflight":
		s.preflight(w, r, name)
	case len(tail) == 1 && tail[0] == "run":
		s.startPipeline(w, r, name)
	case len(tail) == 1 && tail[0] == "abort":
		s.abortPipeline(w, r, name)
	case len(tail) == 1 && tail[0] == "reset-head":
		s.resetHead(w, r, name)
	case len(tail) == 1 && tail[0] == "progress":
		s.progressWS(w, r, name)
	case len(tail) == 2 && tail[0] == "jobs":
		s.jobItem(w, r, name, project.JobKind(tail[1]))
	case len(tail) == 3 && tail[0] == "jobs" && tail[2] == "select":
		s.selectJob(w, r, name, project.JobKind(tail[1]))
	default:
		http.NotFound(w, r)
	}
}

// projectItem serves GET (open_project).
func (s *Server) projectItem(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported here", http.StatusMethodNotAllowed)
		return
	}
	s.openProject(w, r, name)
}

// createProject builds the project layout, imports raw data, seeds
// global parameters from the Metadata Probe (and the first configured
// microscope preset, if any), registers the project in the Store, and selects the
// requested jobs in order.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindValidation, Message: err.Error()})
		return
	}
	if req.Name == "" || req.Base == "" {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindValidation, Message: "name and base are required"})
		return
	}

	root := filepath.Join(req.Base, req.Name)
	if _, err := os.Stat(root); err == nil {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindExists, Message: "project directory already exists: " + root})
		return
	}

	if err := projectsvc.CreateLayout(root); err != nil {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindValidation, Message: err.Error()})
		return
	}

	computing := computingFromConfig(s.cfg)
	if err := projectsvc.WriteQsubTemplate(s.cfg.QsubTemplatePath, root, computing, modulesForKinds(s.cfg, req.SelectedJobs)); err != nil {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindValidation, Message: err.Error()})
		return
	}

	if req.MdocsGlob != "" {
		prefix, err := importPrefix()
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := projectsvc.ImportData(req.MdocsGlob, root, prefix); err != nil {
			writeError(w, err)
			return
		}
	}

	probe, err := metadata.Autodetect(req.MdocsGlob)
	if err != nil {
		writeError(w, &project.Error{Op: "create_project", Kind: project.KindBadGlob, Message: err.Error()})
		return
	}

	if _, err := s.store.CreateProject(req.Name, root); err != nil {
		writeError(w, err)
		return
	}

	globals := buildGlobalParameters(s.cfg, computing, probe)
	if err := s.store.SetGlobal(req.Name, globals); err != nil {
		writeError(w, err)
		return
	}

	for _, kind := range req.SelectedJobs {
		if err := s.store.SelectJob(req.Name, kind); err != nil {
			writeError(w, err)
			return
		}
	}

	if containsKind(req.SelectedJobs, project.JobImportMovies) {
		opticsGroup := req.Name
		for field, value := range map[string]interface{}{
			"movies_glob":       req.MoviesGlob,
			"mdocs_glob":        req.MdocsGlob,
			"optics_group_name": opticsGroup,
		} {
			if err := s.store.SetJobField(req.Name, project.JobImportMovies, field, value); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, createProjectResponse{ProjectPath: root}) //nolint:errcheck
}

// openProject loads the project's on-disk snapshot (or hands back the
// already-open in-memory copy) and returns the current state. Per-job
// statuses are then re-derived from the ProcessesFile the same way the
// Progress Watcher's poll loop does, since the persisted snapshot only
// reflects statuses as of the last flush and the ProcessesFile is the
// live source of truth while a scheme is executing.
func (s *Server) openProject(w http.ResponseWriter, r *http.Request, name string) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = filepath.Join(s.cfg.LocalDefaultProjectBase, name)
	}

	p, err := s.store.OpenProject(name, path)
	if err != nil {
		writeError(w, err)
		return
	}

	s.syncStatusesFromProcesses(name, p)

	writeJSON(w, http.StatusOK, newProjectView(p)) //nolint:errcheck
}

// syncStatusesFromProcesses reads name's ProcessesFile (if any) and flushes
// the derived per-job statuses into the Store, mutating snap.Jobs in place
// so the response reflects the same values just written. A missing or
// unreadable ProcessesFile leaves the snapshot's persisted statuses alone:
// a freshly created project has no run history yet, so there is nothing to
// re-derive from.
func (s *Server) syncStatusesFromProcesses(name string, snap *project.Project) {
	processesPath := filepath.Join(snap.Path, watch.ProcessesFileName)
	rows, err := watch.ReadProcesses(processesPath)
	if err != nil || rows == nil {
		return
	}

	statuses := watch.DeriveStatuses(snap.Selected, rows)
	for kind, status := range statuses {
		if err := s.store.SetJobStatus(name, kind, status); err != nil {
			s.Warn("failed to sync derived job status on open", "project", name, "kind", kind, "status", status, "err", err)
			continue
		}
		if rec, ok := snap.Jobs[kind]; ok {
			rec.ExecutionStatus = status
		}
	}

	if err := s.store.MarkValidated(name); err != nil {
		s.Warn("failed to record validation timestamp on open", "project", name, "err", err)
	}
}

func (s *Server) globalItem(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPut {
		http.Error(w, "only PUT is supported here", http.StatusMethodNotAllowed)
		return
	}
	var globals project.GlobalParameters
	if err := json.NewDecoder(r.Body).Decode(&globals); err != nil {
		writeError(w, &project.Error{Op: "set_global", Kind: project.KindValidation, Message: err.Error()})
		return
	}
	if err := s.store.SetGlobal(name, globals); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, name)
}

func (s *Server) jobItem(w http.ResponseWriter, r *http.Request, name string, kind project.JobKind) {
	switch r.Method {
	case http.MethodPut:
		var req setJobFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, &project.Error{Op: "set_job_field", Kind: project.KindValidation, Message: err.Error()})
			return
		}
		if err := s.store.SetJobField(name, kind, req.Field, req.Value); err != nil {
			writeError(w, err)
			return
		}
		s.respondSnapshot(w, name)
	case http.MethodDelete:
		if err := s.store.DeselectJob(name, kind); err != nil {
			writeError(w, err)
			return
		}
		s.respondSnapshot(w, name)
	default:
		http.Error(w, "only PUT and DELETE are supported here", http.StatusMethodNotAllowed)
	}
}

func (s *Server) selectJob(w http.ResponseWriter, r *http.Request, name string, kind project.JobKind) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported here", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.SelectJob(name, kind); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, name)
}

func (s *Server) resetToDefaults(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported here", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.ResetToDefaults(name); err != nil {
		writeError(w, err)
		return
	}
	s.respondSnapshot(w, name)
}

func (s *Server) preflight(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported here", http.StatusMethodNotAllowed)
		return
	}
	problems, err := s.store.Preflight(name, s.cfg.SchemeTemplatesDir, s.buildCheck(name))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, problems) //nolint:errcheck
}

// buildCheck closes over name so project.Store.Preflight can ask the
// Command Builder whether it would succeed for a given kind, without the
// project package importing command and creating an import cycle.
func (s *Server) buildCheck(name string) func(kind project.JobKind) error {
	return func(kind project.JobKind) error {
		snap, err := s.store.Snapshot(name)
		if err != nil {
			return err
		}
		rec, ok := snap.Jobs[kind]
		if !ok {
			rec = &project.JobRecord{Kind: kind, Params: map[string]interface{}{}}
		}
		_, err = command.Build(kind, snap.Global, rec, resolvedPathsFor(s.cfg, rec))
		return err
	}
}

func (s *Server) respondSnapshot(w http.ResponseWriter, name string) {
	p, err := s.store.Snapshot(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p)) //nolint:errcheck
}

func containsKind(kinds []project.JobKind, want project.JobKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func importPrefix() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", &project.Error{Op: "create_project", Kind: project.KindValidation, Message: "generate import prefix: " + err.Error()}
	}
	return strings.ReplaceAll(id.String(), "-", "")[:8] + "_", nil
}

// modulesForKinds collects the environment-module names (per
// cfg.Tools.<name>.module) of every non-containerized tool the requested
// job kinds invoke, in selection order, for WriteQsubTemplate's
// XXXmoduleXXX substitution.
func modulesForKinds(cfg *internal.Config, kinds []project.JobKind) []string {
	var modules []string
	for _, kind := range kinds {
		tag := project.ToolTag(kind)
		toolCfg, ok := cfg.Tools[tag]
		if !ok || toolCfg.Container || toolCfg.Module == "" {
			continue
		}
		modules = append(modules, toolCfg.Module)
	}
	return modules
}

func computingFromConfig(cfg *internal.Config) project.Computing {
	d := cfg.SlurmDefaults
	return project.Computing{
		Partition:     d.Partition,
		Nodes:         d.Nodes,
		NTasksPerNode: d.NTasksPerNode,
		CPUsPerTask:   d.CPUsPerTask,
		Gres:          d.Gres,
		Mem:           d.Mem,
		Time:          d.Time,
	}
}

// buildGlobalParameters seeds a new project's GlobalParameters: a named
// microscope preset (if any) supplies a scientifically-sane baseline,
// the Metadata Probe's actually-measured values from the session
// metadata override it field by field, and the preset's DoseTransform
// is applied to the probe's dose reading. When the probe reports no dose,
// the baseline dose is kept untransformed.
func buildGlobalParameters(cfg *internal.Config, computing project.Computing, probe metadata.Result) project.GlobalParameters {
	g := project.GlobalParameters{
		Microscope: project.Microscope{
			PixelSizeAngstrom:     1.0,
			VoltageKV:             300,
			SphericalAberrationMM: 2.7,
			AmplitudeContrast:     0.1,
		},
		Acquisition: project.Acquisition{
			DosePerTiltEPerA2: 1.0,
		},
		Computing: computing,
	}

	var doseTransform float64
	if preset, ok := firstMicroscopePreset(cfg); ok {
		g.Microscope.PixelSizeAngstrom = preset.PixelSizeAngstrom
		g.Microscope.VoltageKV = preset.VoltageKV
		g.Microscope.SphericalAberrationMM = preset.SphericalAberrationMM
		g.Microscope.AmplitudeContrast = preset.AmplitudeContrast
		doseTransform = preset.DoseTransform
	}

	if probe.HasPixelSpacing {
		g.Microscope.PixelSizeAngstrom = probe.PixelSpacingAngstrom
	}
	if probe.HasVoltage {
		g.Microscope.VoltageKV = probe.VoltageKV
	}
	if probe.HasTiltAxisAngle {
		g.Acquisition.TiltAxisAngleDeg = probe.TiltAxisAngleDeg
	}
	if probe.HasDose {
		dose := probe.DosePerTiltEPerA2
		if doseTransform != 0 {
			dose *= doseTransform
		}
		g.Acquisition.DosePerTiltEPerA2 = dose
	}
	if probe.HasImageSize {
		g.Acquisition.DetectorWidthPx = probe.ImageWidth
		g.Acquisition.DetectorHeightPx = probe.ImageHeight
	}
	if probe.HasEERFractionsHint {
		g.Acquisition.EERFractionsPerFrame = probe.EERFractionsHint
	}

	return g
}

// firstMicroscopePreset returns an arbitrary-but-deterministic preset
// from cfg.Microscopes: the create_project request carries no preset
// selection field, so in the absence of a richer selection mechanism
// this picks the lexicographically first preset name, giving repeatable
// behavior.
func firstMicroscopePreset(cfg *internal.Config) (internal.MicroscopePreset, bool) {
	if len(cfg.Microscopes) == 0 {
		return internal.MicroscopePreset{}, false
	}
	var names []string
	for name := range cfg.Microscopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return cfg.Microscopes[names[0]], true
}

// resolvedPathsFor builds command.ResolvedPaths for kind from cfg and the
// job's own record: import_movies reads its globs and optics group name
// back from the Params it was seeded with at create_project time, since
// those are job-specific knobs rather than GlobalParameters.
func resolvedPathsFor(cfg *internal.Config, rec *project.JobRecord) command.ResolvedPaths {
	paths := command.ResolvedPaths{
		ServerDir:  cfg.ServerDir,
		PythonPath: cfg.PythonPath,
	}
	if rec == nil {
		return paths
	}
	if v, ok := rec.Params["movies_glob"].(string); ok {
		paths.MoviesGlob = v
	}
	if v, ok := rec.Params["mdocs_glob"].(string); ok {
		paths.MdocGlob = v
	}
	if v, ok := rec.Params["optics_group_name"].(string); ok {
		paths.OpticsGroupName = v
	}
	return paths
}
