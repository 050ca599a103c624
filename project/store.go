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
	"fmt"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// entry pairs a Project with the mutex that guards every mutating
// operation on it. The mutex is held for the full duration of an
// operation, including any snapshot flush to disk, never released and
// reacquired partway through.
type entry struct {
	mu      deadlock.Mutex
	project *Project
}

// Store is the single in-memory owner of every open Project. Lookup and
// creation of entries in the top-level map is itself guarded by a
// separate mutex so that operations on two different projects never
// contend with each other.
type Store struct {
	mu      deadlock.Mutex
	entries map[string]*entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) entryFor(name string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return e, ok
}

// CreateProject registers a brand new project rooted at path. It fails
// with KindExists if a project of that name is already open.
func (s *Store) CreateProject(name, path string) (*Project, error) {
	const op = "create_project"

	s.mu.Lock()
	if _, ok := s.entries[name]; ok {
		s.mu.Unlock()
		return nil, newErr(op, KindExists, "project %q already open", name)
	}
	now := time.Now()
	p := &Project{
		Name:       name,
		Path:       path,
		CreatedAt:  now,
		ModifiedAt: now,
		Jobs:       make(map[JobKind]*JobRecord),
	}
	e := &entry{project: p}
	s.entries[name] = e
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := snapshotToDisk(p); err != nil {
		return nil, newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return p.clone(), nil
}

// OpenProject loads a project's snapshot from disk into memory, or
// returns the already-open in-memory copy if one exists.
func (s *Store) OpenProject(name, path string) (*Project, error) {
	const op = "open_project"

	if e, ok := s.entryFor(name); ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.project.clone(), nil
	}

	p, err := loadSnapshot(path)
	if err != nil {
		return nil, newErr(op, KindNoProject, "%s", err)
	}
	p.Name = name
	p.Path = path

	e := &entry{project: p}
	s.mu.Lock()
	s.entries[name] = e
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project.clone(), nil
}

// SetGlobal validates and applies a full replacement of a project's
// GlobalParameters, then flushes the result to disk before returning.
func (s *Store) SetGlobal(name string, g GlobalParameters) error {
	const op = "set_global"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.project.AnyRunning() {
		return newErr(op, KindFrozenJob, "cannot change global parameters while a job is running")
	}
	if err := validateGlobal(g); err != nil {
		return newErr(op, KindValidation, "%s", err)
	}

	e.project.Global = g
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// SetJobField validates and applies a single job-specific parameter
// change, then flushes the result to disk before returning. It refuses to
// modify a frozen (running or terminal) job record.
func (s *Store) SetJobField(name string, kind JobKind, field string, value interface{}) error {
	const op = "set_job_field"

	if !ValidJobKind(kind) {
		return newErr(op, KindValidation, "unknown job kind %q", kind)
	}

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.project.Jobs[kind]
	if !ok {
		rec = &JobRecord{Kind: kind, ExecutionStatus: StatusNotScheduled, Params: make(map[string]interface{})}
		e.project.Jobs[kind] = rec
	}
	if rec.Frozen() {
		return newErr(op, KindFrozenJob, "job %q is frozen in status %q", kind, rec.ExecutionStatus)
	}
	if err := validateJobField(kind, field, value); err != nil {
		return newErr(op, KindValidation, "%s", err)
	}

	rec.Params[field] = value
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// SelectJob appends kind to the project's selection. It fails validation
// if the resulting selection would no longer be in canonical pipeline
// order.
func (s *Store) SelectJob(name string, kind JobKind) error {
	const op = "select_job"

	if !ValidJobKind(kind) {
		return newErr(op, KindValidation, "unknown job kind %q", kind)
	}

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.project.AnyRunning() {
		return newErr(op, KindPipelineActive, "cannot change job selection while a job is running")
	}

	candidate := append(append([]JobKind{}, e.project.Selected...), kind)
	if !SelectionIsOrdered(candidate) {
		return newErr(op, KindValidation, "%q would break canonical pipeline order", kind)
	}

	e.project.Selected = candidate
	if _, ok := e.project.Jobs[kind]; !ok {
		e.project.Jobs[kind] = &JobRecord{Kind: kind, ExecutionStatus: StatusNotScheduled, Params: make(map[string]interface{})}
	}
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// DeselectJob removes kind from the project's selection.
func (s *Store) DeselectJob(name string, kind JobKind) error {
	const op = "deselect_job"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.project.AnyRunning() {
		return newErr(op, KindPipelineActive, "cannot change job selection while a job is running")
	}

	kept := e.project.Selected[:0:0]
	for _, k := range e.project.Selected {
		if k != kind {
			kept = append(kept, k)
		}
	}
	e.project.Selected = kept
	delete(e.project.Jobs, kind)
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// ResetToDefaults clears every job record's status back to not-scheduled
// and its parameters, leaving the selection and globals untouched. It
// refuses to act while any job is running.
func (s *Store) ResetToDefaults(name string) error {
	const op = "reset_to_defaults"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.project.AnyRunning() {
		return newErr(op, KindPipelineActive, "cannot reset while a job is running")
	}

	for kind, rec := range e.project.Jobs {
		e.project.Jobs[kind] = &JobRecord{Kind: kind, ExecutionStatus: StatusNotScheduled, Params: make(map[string]interface{})}
		_ = rec
	}
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// SetJobStatus records a job's derived execution status, as reported by
// the Pipeline Runner / Progress Watcher. It is the one mutation allowed
// on an already-frozen record, since freezing is itself a status change.
func (s *Store) SetJobStatus(name string, kind JobKind, status JobStatus) error {
	const op = "set_job_status"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.project.Jobs[kind]
	if !ok {
		return newErr(op, KindNotFound, "job %q not selected", kind)
	}
	rec.ExecutionStatus = status
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// MarkValidated stamps the named project's ValidatedAt with the current
// time and flushes the snapshot. Callers use this after re-deriving job
// statuses from the ProcessesFile on open, recording when that
// reconciliation last happened.
func (s *Store) MarkValidated(name string) error {
	const op = "mark_validated"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.project.ValidatedAt = time.Now()
	e.project.ModifiedAt = time.Now()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

// Snapshot returns a deep copy of the named project's current state.
func (s *Store) Snapshot(name string) (*Project, error) {
	const op = "snapshot"

	e, ok := s.entryFor(name)
	if !ok {
		return nil, newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project.clone(), nil
}

// SnapshotToDisk forces an out-of-band flush of the named project's
// current state, independent of any mutation.
func (s *Store) SnapshotToDisk(name string) error {
	const op = "snapshot_to_disk"

	e, ok := s.entryFor(name)
	if !ok {
		return newErr(op, KindNoProject, "no open project %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := snapshotToDisk(e.project); err != nil {
		return newErr(op, KindSnapshotInvalid, "%s", err)
	}
	return nil
}

func validateGlobal(g GlobalParameters) error {
	m := g.Microscope
	if m.PixelSizeAngstrom < 0.5 || m.PixelSizeAngstrom > 10.0 {
		return fmt.Errorf("pixel size %.3f Å out of range [0.5, 10.0]", m.PixelSizeAngstrom)
	}
	if m.VoltageKV <= 0 {
		return fmt.Errorf("voltage %.1f kV must be positive", m.VoltageKV)
	}
	if m.SphericalAberrationMM <= 0 {
		return fmt.Errorf("spherical aberration %.3f mm must be positive", m.SphericalAberrationMM)
	}
	if m.AmplitudeContrast < 0 || m.AmplitudeContrast > 1 {
		return fmt.Errorf("amplitude contrast %.3f out of range [0, 1]", m.AmplitudeContrast)
	}

	a := g.Acquisition
	if a.DosePerTiltEPerA2 < 0.1 {
		return fmt.Errorf("dose per tilt %.3f e/Å² below minimum 0.1", a.DosePerTiltEPerA2)
	}
	if a.TiltAxisAngleDeg < -180 || a.TiltAxisAngleDeg > 180 {
		return fmt.Errorf("tilt axis angle %.3f out of range [-180, 180]", a.TiltAxisAngleDeg)
	}
	return nil
}

// validateJobField applies what little field-specific validation the
// state store itself is responsible for; the bulk of per-tool parameter
// validation belongs to the Command Builder, which knows each tool's
// accepted flags.
func validateJobField(kind JobKind, field string, value interface{}) error {
	if field == "" {
		return fmt.Errorf("empty field name for job %q", kind)
	}
	return nil
}
