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
Package watch implements the Progress Watcher (C9): tailing a project's
default_pipeline.star, the pipeliner's own tabular status file, and
deriving per-JobKind status plus aggregate counters from it.

The watcher owns no lock on the file; the pipeliner owns it exclusively
while a run is active, so every read tolerates a concurrent rename or
truncate by retrying on the next tick rather than coordinating with the
writer. The full derived statuses are broadcast after every successful
read to any
number of subscribers (the httpapi package's websocket handlers, chiefly)
over a github.com/grafov/bcast group, mirroring how
jobqueue/server.go pushes its own job-state counts to the status webpage.

The pipeline package also reads (and, on abort, rewrites) the processes
file through the ReadProcesses/RewriteRowStatus helpers in processes.go,
since both components need the same tabular parse of the one file the
pipeliner owns.
*/
package watch
