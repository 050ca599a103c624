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

/*
Package scheme implements the Scheme Materializer (C6): it emits a
`Schemes/<name>/` directory from a project's current parameters and
selected jobs, in the tabular format the downstream pipeliner expects,
with every job's command pre-wrapped by the command and container
packages and baked into its job.star's fn_exe field.

A Scheme is a transient, run-once artifact: it is written in full before
the pipeliner is spawned and never edited afterwards.
*/
package scheme
