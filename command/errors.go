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

package command

import (
	"fmt"

	"github.com/Klumpe-lab/crboost-server/project"
)

// MissingParameterError is returned instead of a command containing a
// placeholder value whenever a required global parameter was left unset
// at build time.
type MissingParameterError struct {
	Kind  project.JobKind
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing_parameter: %s requires %s", e.Kind, e.Field)
}

func missingParameter(kind project.JobKind, field string) error {
	return &MissingParameterError{Kind: kind, Field: field}
}
