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
Package project implements the in-memory, single-writer project state
store (C3): global microscope/acquisition/computing parameters plus a
per-job-kind parameter record, with atomic snapshot persistence to
project_params.json.

Every mutating Store method locks the Project's own mutex for the full
duration of the operation, including any filesystem flush; readers take a
copy of the Project under that lock and then release it, per the scoped-
lock discipline described in the specification this package implements.
*/
package project
