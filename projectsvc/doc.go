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
Package projectsvc implements the Project Service (C7): creating a new
project's on-disk layout, templating its qsub script from the cluster
defaults, and importing raw acquisition data by symlinking movies under a
project-unique prefix and rewriting their session-metadata files.

It sits beside project.Store: the Service prepares the
filesystem a Project's jobs will read from, while the Store owns the
Project's in-memory parameter state.
*/
package projectsvc
