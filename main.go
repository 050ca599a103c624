// Copyright © 2016, 2017 Genome Research Limited
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
Package main is a stub for crboost's command line interface, with the actual
implementation in the cmd package.

crboost is a headnode-resident orchestrator for cryo-electron tomography
processing pipelines. It materializes RELION/WARP-style schemes in to
per-project working directories, launches the RELION pipeliner that submits
the resulting jobs to a SLURM cluster (optionally inside a
Singularity/Apptainer container), and watches their progress, exposing
everything over an HTTP and WebSocket API.

Package Overview

crboost's project state lives in the project package: an in-memory, single-
writer Store of Project and JobRecord values, one goroutine-owning mutex per
project. The scheme package materializes a scheme.star template in to a
project's working directory as job.star-driven processes; the command
package builds the concrete invocation for each job kind; the container
package wraps that invocation in a Singularity/Apptainer exec when
configured. The pipeline package launches and supervises the pipeliner
process that submits a project's jobs; the cluster/slurm package queries
and cancels those jobs via squeue/scancel. The watch package polls the
project's default_pipeline.star and pushes progress updates to any number
of subscribers.
The httpapi package exposes all of this over REST and WebSocket endpoints.

The internal package contains general utility functions, and most notably
config.go holds the code for how the command line interface and httpapi
server deal with config options.
*/
package main

import (
	"github.com/Klumpe-lab/crboost-server/cmd"
)

func main() {
	cmd.Execute()
}
