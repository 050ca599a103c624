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
	"github.com/Klumpe-lab/crboost-server/project"
)

// createProjectRequest is the wire shape of the create_project operation.
type createProjectRequest struct {
	Name         string            `json:"name"`
	Base         string            `json:"base"`
	MoviesGlob   string            `json:"movies_glob"`
	MdocsGlob    string            `json:"mdocs_glob"`
	SelectedJobs []project.JobKind `json:"selected_jobs"`
}

// createProjectResponse carries the project_path success result.
type createProjectResponse struct {
	ProjectPath string `json:"project_path"`
}

// setJobFieldRequest is the body of a PUT to /projects/{name}/jobs/{kind}.
type setJobFieldRequest struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// startPipelineResponse carries the pipeliner pid success result.
type startPipelineResponse struct {
	Pid int `json:"pid"`
}

// jobRecordView is JobRecord minus the Kind field the wire format doesn't
// repeat (it's the map key), matching project_params.json's own shape.
type jobRecordView struct {
	ExecutionStatus project.JobStatus      `json:"execution_status"`
	Params          map[string]interface{} `json:"params"`
	Note            string                 `json:"note,omitempty"`
}

// projectView is the current-state snapshot returned by
// create_project/open_project: the full Project, flattened into a JSON
// shape a browser client can render directly.
type projectView struct {
	Name       string                          `json:"name"`
	Path       string                          `json:"path"`
	CreatedAt  string                          `json:"created_at"`
	ModifiedAt string                          `json:"modified_at"`
	Global     project.GlobalParameters        `json:"global"`
	Selected   []project.JobKind               `json:"selected"`
	Jobs       map[project.JobKind]jobRecordView `json:"jobs"`
}

func newProjectView(p *project.Project) projectView {
	jobs := make(map[project.JobKind]jobRecordView, len(p.Jobs))
	for kind, rec := range p.Jobs {
		jobs[kind] = jobRecordView{
			ExecutionStatus: rec.ExecutionStatus,
			Params:          rec.Params,
			Note:            rec.Note,
		}
	}
	return projectView{
		Name:       p.Name,
		Path:       p.Path,
		CreatedAt:  p.CreatedAt.Format(timeLayoutRFC3339),
		ModifiedAt: p.ModifiedAt.Format(timeLayoutRFC3339),
		Global:     p.Global,
		Selected:   p.Selected,
		Jobs:       jobs,
	}
}

const timeLayoutRFC3339 = "2006-01-02T15:04:05Z07:00"
