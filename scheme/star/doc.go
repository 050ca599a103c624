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
Package star reads and writes the CCP4/RELION-style STAR tabular file
format used by the downstream pipeliner: a sequence of named data blocks,
each either a flat list of `_key value` pairs or a `loop_` table with a
`_columnName` header run followed by whitespace-delimited data rows.

No third-party STAR parser exists in this codebase's dependency set, so
this package is a deliberate, minimal standard-library implementation
covering only what the Scheme Materializer and Progress Watcher need:
scheme description files, per-job `job.star` files, and the pipeliner's
`default_pipeline.star` processes file.
*/
package star
