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
Package pipeline implements the Pipeline Runner (C8): it launches the
downstream RELION pipeliner as a supervised subprocess against a
materialized scheme, tracks its own idle/starting/running/stopping/
completed/failed state machine, and knows how to abort a run cleanly.

A Runner never interprets the scheme's job-by-job content itself; that's
the scheme and watch packages' business. It only owns the pipeliner
process's lifecycle and the handful of cleanup steps a cancelled run
needs: killing the process group, best-effort cancellation of whichever
scheduler job the processes file currently reports Running, marking that
job Failed if it left no success marker behind, and removing the
scheme's lock directory so a subsequent run can start clean. Every one of
those steps is independent and best-effort; Abort aggregates their
errors with github.com/hashicorp/go-multierror rather than stopping at
the first failure, the same discipline internal.Config.Validate() uses
for its own independent checks.

Identifying which scheduler job ID to cancel is genuinely not visible
anywhere in the processes file: the pipeliner's one shared status file
records a status label per job directory, never a job ID (see
project/errors.go's KindNotRunning and scheme/materializer.go's
scheme_jobs block — neither carries one). This package resolves that by
convention: the job directory's own qsub script, sourced from the
operator-supplied template (see projectsvc.WriteQsubTemplate), is
expected to record $SLURM_JOB_ID into a ".crboost_job_id" marker file
inside its job directory at submission time, which Abort reads back.
Absence of that marker is tolerated, not an error — it only means no
scheduler job is cancelled, and the process-group kill and processes-file
rewrite still happen.
*/
package pipeline
