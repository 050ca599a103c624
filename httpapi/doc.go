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
Package httpapi is C10, the HTTP/WebSocket Surface: it exposes every
project.Store operation over REST, orchestrates the C6-C9 pieces (scheme
materialization, the Pipeline Runner, the Progress Watcher) behind
start_pipeline/abort_pipeline/reset_head, and streams progress deltas to
browser clients over a websocket.

Routing is a plain net/http.ServeMux, in the same style as
jobqueue/serverREST.go and jobqueue/serverWebI.go: one handler per path
prefix, dispatching on r.Method the way restJobs does rather than pulling
in a router dependency. Mutating handlers never touch the filesystem or
a project.Store directly outside of the helper functions in this package,
so that every response's error kind can be derived uniformly from
project.Error.
*/
package httpapi
