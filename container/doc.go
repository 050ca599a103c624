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
Package container implements the Container Wrapper (C5): it rewrites a
raw tool command into a container-executor invocation when the tool's
config marks it as containerized, resolving bind mounts and scrubbing
environment variables along the way. Tools that run as local binaries
pass through unchanged.

It also carries the relative-path heuristic (bindcheck.go) used to decide
whether a command needs its working directory explicitly bound into the
container, adapted from the bind-mount detection used elsewhere in this
codebase for the analogous problem of spotting relative file references
in a shell command line.
*/
package container
