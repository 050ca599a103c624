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

import "time"

// JobStatus is the derived per-job status computed by joining the
// selected-jobs list against the pipeliner's processes file.
type JobStatus string

const (
	StatusNotScheduled JobStatus = "not_scheduled"
	StatusScheduled    JobStatus = "scheduled"
	StatusRunning      JobStatus = "running"
	StatusSucceeded    JobStatus = "succeeded"
	StatusFailed       JobStatus = "failed"
	StatusAborted      JobStatus = "aborted"
)

// Frozen reports whether a JobRecord in this status is immutable: once a
// status enters a non-terminal running state, the record freezes for the
// remaining lifetime of the run.
func (s JobStatus) Frozen() bool {
	switch s {
	case StatusNotScheduled, StatusScheduled:
		return false
	default:
		return true
	}
}

// Microscope holds the single-source-of-truth microscope parameters.
// JobRecords never copy these fields; the Command Builder reads them from
// GlobalParameters at build time.
type Microscope struct {
	PixelSizeAngstrom     float64 `json:"pixel_size_angstrom"`
	VoltageKV             float64 `json:"voltage_kv"`
	SphericalAberrationMM float64 `json:"spherical_aberration_mm"`
	AmplitudeContrast     float64 `json:"amplitude_contrast"`
}

// Acquisition holds the single-source-of-truth acquisition parameters.
type Acquisition struct {
	DosePerTiltEPerA2   float64 `json:"dose_per_tilt_e_per_a2"`
	TiltAxisAngleDeg    float64 `json:"tilt_axis_angle_deg"`
	DetectorWidthPx     int     `json:"detector_width_px"`
	DetectorHeightPx    int     `json:"detector_height_px"`
	EERFractionsPerFrame int    `json:"eer_fractions_per_frame"`
	GainRefPath         string  `json:"gain_ref_path"`
	InvertDefocusHand   bool    `json:"invert_defocus_hand"`
}

// Computing holds the single-source-of-truth cluster resource parameters.
type Computing struct {
	Partition     string `json:"partition"`
	Nodes         int    `json:"nodes"`
	NTasksPerNode int    `json:"ntasks_per_node"`
	CPUsPerTask   int    `json:"cpus_per_task"`
	Gres          string `json:"gres"`
	Mem           string `json:"mem"`
	Time          string `json:"time"`
}

// GlobalParameters is the three grouped records shared across every job in
// a project.
type GlobalParameters struct {
	Microscope  Microscope  `json:"microscope"`
	Acquisition Acquisition `json:"acquisition"`
	Computing   Computing   `json:"computing"`
}

// JobRecord holds one JobKind's job-specific knobs (never the global
// fields above) plus its derived execution status.
type JobRecord struct {
	Kind            JobKind                `json:"-"`
	ExecutionStatus JobStatus              `json:"execution_status"`
	Params          map[string]interface{} `json:"params"`

	// Note is a free-text annotation a user can attach to a job. It
	// round-trips through project_params.json like everything else and
	// is never read by the Command Builder.
	Note string `json:"note,omitempty"`
}

// Frozen reports whether this record's fields are currently immutable.
func (r *JobRecord) Frozen() bool {
	return r.ExecutionStatus.Frozen()
}

func (r *JobRecord) clone() *JobRecord {
	params := make(map[string]interface{}, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	return &JobRecord{Kind: r.Kind, ExecutionStatus: r.ExecutionStatus, Params: params, Note: r.Note}
}

// Project is a named workspace rooted at a filesystem path. The project
// package's Store is its exclusive owner in memory; the project directory
// is its durable backing store.
type Project struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`

	// ValidatedAt records when this project's JobRecords were last
	// checked against the ProcessesFile on open. Zero if the project has
	// never been opened since creation.
	ValidatedAt time.Time `json:"-"`

	Global GlobalParameters `json:"-"`

	// Selected is the ordered list of chosen JobKinds; it is strictly
	// linear and topologically consistent with the JobKind enumeration
	// order (see SelectionIsOrdered).
	Selected []JobKind `json:"-"`

	// Jobs holds at most one JobRecord per JobKind.
	Jobs map[JobKind]*JobRecord `json:"-"`
}

// clone returns a deep-enough copy of p suitable for handing to a reader
// outside the Store's lock.
func (p *Project) clone() *Project {
	cp := &Project{
		Name:        p.Name,
		Path:        p.Path,
		CreatedAt:   p.CreatedAt,
		ModifiedAt:  p.ModifiedAt,
		ValidatedAt: p.ValidatedAt,
		Global:      p.Global,
		Selected:    append([]JobKind{}, p.Selected...),
		Jobs:        make(map[JobKind]*JobRecord, len(p.Jobs)),
	}
	for k, v := range p.Jobs {
		cp.Jobs[k] = v.clone()
	}
	return cp
}

// Status returns the JobRecord's status for kind, or StatusNotScheduled if
// kind was never selected.
func (p *Project) Status(kind JobKind) JobStatus {
	if r, ok := p.Jobs[kind]; ok {
		return r.ExecutionStatus
	}
	return StatusNotScheduled
}

// AnyRunning reports whether any job in the project has status
// StatusRunning.
func (p *Project) AnyRunning() bool {
	for _, r := range p.Jobs {
		if r.ExecutionStatus == StatusRunning {
			return true
		}
	}
	return false
}
