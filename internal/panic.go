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

package internal

import (
	"os"
	"runtime/debug"

	"github.com/inconshreveable/log15"
)

// LogPanic recovers from a panic in the goroutine it's deferred in, logs
// it with a stack trace under desc, and, if stop is true, exits the
// process: a background goroutine that corrupted its own state has no
// business limping on. Every long-running goroutine the server spawns
// (the pipeline runner's stdio pumps, the progress watcher's poll loop,
// each websocket push loop) defers this first.
func LogPanic(logger log15.Logger, desc string, stop bool) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error("recovered from panic", "in", desc, "panic", r, "stack", string(debug.Stack()))
		}
		if stop {
			os.Exit(2)
		}
	}
}
