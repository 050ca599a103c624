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

// JobKind is the enumerated identity of a job, drawn from a closed,
// ordered list. Order here is the canonical pipeline order: a project's
// selected jobs must appear in this relative order.
type JobKind string

const (
	JobImportMovies       JobKind = "import_movies"
	JobFSMotionAndCTF      JobKind = "fs_motion_and_ctf"
	JobTSAlignment         JobKind = "ts_alignment"
	JobTSCTF               JobKind = "ts_ctf"
	JobTSReconstruct       JobKind = "ts_reconstruct"
	JobTemplateMatching    JobKind = "template_matching"
	JobExtractCandidates   JobKind = "extract_candidates"
	JobSubtomoExtraction   JobKind = "subtomo_extraction"
)

// jobKindOrder is the closed, ordered enumeration of all known JobKinds.
var jobKindOrder = []JobKind{
	JobImportMovies,
	JobFSMotionAndCTF,
	JobTSAlignment,
	JobTSCTF,
	JobTSReconstruct,
	JobTemplateMatching,
	JobExtractCandidates,
	JobSubtomoExtraction,
}

// kindMeta pairs a JobKind with its two compile-time properties: which
// tool it invokes, and whether its command is built directly or delegated
// to a driver script.
type kindMeta struct {
	ToolTag  string
	IsDriver bool
}

// jobKindMetadata is the closed enumeration's metadata table: a lookup,
// never an if/elif chain, per the design note on dynamic driver dispatch.
var jobKindMetadata = map[JobKind]kindMeta{
	JobImportMovies:     {ToolTag: "imod", IsDriver: false},
	JobFSMotionAndCTF:   {ToolTag: "motioncor2", IsDriver: true},
	JobTSAlignment:      {ToolTag: "imod", IsDriver: true},
	JobTSCTF:            {ToolTag: "ctffind", IsDriver: true},
	JobTSReconstruct:    {ToolTag: "imod", IsDriver: true},
	JobTemplateMatching: {ToolTag: "warp", IsDriver: true},
	JobExtractCandidates: {ToolTag: "warp", IsDriver: true},
	JobSubtomoExtraction: {ToolTag: "warp", IsDriver: true},
}

// ValidJobKind reports whether kind is a member of the closed enumeration.
func ValidJobKind(kind JobKind) bool {
	_, ok := jobKindMetadata[kind]
	return ok
}

// ToolTag returns the tool tag a JobKind invokes.
func ToolTag(kind JobKind) string {
	return jobKindMetadata[kind].ToolTag
}

// IsDriverKind reports whether a JobKind's command is delegated to a
// driver bootstrap rather than built directly by the Command Builder.
func IsDriverKind(kind JobKind) bool {
	return jobKindMetadata[kind].IsDriver
}

// KindPosition returns kind's index in the canonical pipeline order, or -1
// if kind is not recognized.
func KindPosition(kind JobKind) int {
	for i, k := range jobKindOrder {
		if k == kind {
			return i
		}
	}
	return -1
}

// SelectionIsOrdered reports whether kinds is strictly increasing in
// canonical pipeline order, with no duplicates.
func SelectionIsOrdered(kinds []JobKind) bool {
	last := -1
	for _, k := range kinds {
		pos := KindPosition(k)
		if pos <= last {
			return false
		}
		last = pos
	}
	return true
}
