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

package pipeline

// State is a Runner's own supervisory state, distinct from (and coarser
// than) any single JobKind's project.JobStatus.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// allowedTransitions is the closed transition table; Start/Abort/the wait
// goroutine all go through transition rather than assigning state
// directly, so an illegal jump is always a visible bug, not a silent one.
var allowedTransitions = map[State][]State{
	StateIdle:      {StateStarting},
	StateStarting:  {StateRunning, StateFailed, StateIdle},
	StateRunning:   {StateStopping, StateCompleted, StateFailed},
	StateStopping:  {StateIdle, StateFailed},
	StateCompleted: {StateStarting, StateIdle},
	StateFailed:    {StateStarting, StateIdle},
}

func (s State) canTransitionTo(next State) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Active reports whether a run is in flight: started but not yet settled
// into a terminal or idle state.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}
