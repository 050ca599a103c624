// Copyright © 2016-2020 Genome Research Limited
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

package slurm

// ErrTimeout is the Err value of an Error when a scheduler binary didn't
// finish within the backend's timeout.
const ErrTimeout = "timed out waiting for scheduler command"

// Error is returned by every Backend method on failure.
type Error struct {
	Op  string // Status or Cancel
	Err string
}

func (e Error) Error() string {
	return "slurm backend " + e.Op + "(): " + e.Err
}
