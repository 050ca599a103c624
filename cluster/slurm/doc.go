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

// Package slurm wraps the squeue/scancel command-line tools that back the
// cluster backend (C8). The pipeliner submits its own jobs via sbatch,
// through the qsub script the Project Service materializes; this package
// only polls a submitted job's state and cancels it on abort.
//
// Every call runs under a bounded context.Context timeout: a scheduler
// binary that hangs (a stale mount, a down slurmctld) must not be able to
// block a project indefinitely. A timed-out call returns an Error with
// Err == ErrTimeout rather than blocking forever.
package slurm
