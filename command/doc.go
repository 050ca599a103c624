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
Package command implements the Command Builder (C4): a registry, keyed by
project.JobKind, that turns a project's global parameters and a single
job's record into the raw shell invocation for that job's tool.

Non-driver kinds are built directly by a pure function registered for
that kind. Driver kinds instead get a thin bootstrap invocation of a
Python driver script shipped alongside the server; the driver re-reads
the project's snapshot on the compute node rather than taking parameters
on its command line, so there is exactly one formula for each tool's
real invocation regardless of where it runs.
*/
package command
