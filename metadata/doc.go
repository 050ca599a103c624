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
Package metadata implements the Metadata Probe (C2): a pure, read-only
parser of session-metadata files (.mdoc) used to seed a project's initial
microscope and acquisition parameters.

Probe never mutates its input and never fails on a missing field; it
reports whatever it could read from the first matching file and leaves
the rest for the caller (typically project.GlobalParameters defaults) to
fill in.
*/
package metadata
