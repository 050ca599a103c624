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

// ResolvedPaths carries the filesystem and tool-invocation context a
// build function needs but that isn't part of a Project's own state: the
// globs and paths the caller has already resolved against the live
// filesystem, plus where the server and its Python interpreter live.
type ResolvedPaths struct {
	MoviesGlob      string
	MdocGlob        string
	OpticsGroupName string
	ServerDir       string
	PythonPath      string
}

// BuildFunc is the pure function shape every non-driver JobKind registers:
// given the project's current globals, one job's record, and the
// resolved paths, it returns the raw tool invocation.
type BuildFunc func(globals project.GlobalParameters, rec *project.JobRecord, paths ResolvedPaths) (string, error)

// registry is the closed, compile-time table of non-driver build
// functions. There is no fallback branch: a JobKind absent from both this
// map and the driver set is a build-time bug, not a runtime condition to
// handle gracefully.
var registry = map[project.JobKind]BuildFunc{
	project.JobImportMovies: buildImportMovies,
}

// Build returns the raw shell invocation for kind. Driver kinds get a
// bootstrap invocation of their Python driver script; non-driver kinds
// are looked up in registry and run directly.
func Build(kind project.JobKind, globals project.GlobalParameters, rec *project.JobRecord, paths ResolvedPaths) (string, error) {
	if !project.ValidJobKind(kind) {
		return "", fmt.Errorf("command: unknown job kind %q", kind)
	}
	if project.IsDriverKind(kind) {
		return driverBootstrap(kind, paths), nil
	}
	fn, ok := registry[kind]
	if !ok {
		return "", fmt.Errorf("command: no build function registered for non-driver kind %q", kind)
	}
	return fn(globals, rec, paths)
}

// driverBootstrap builds the thin Python invocation a driver JobKind
// delegates its real command shaping to: `python3 -m crboost.driver
// <kind>`. The driver re-reads project_params.json from
// CRBOOST_PROJECT_PARAMS on the compute node, so no parameter is passed
// on the command line; paths.ServerDir only needs to be on PYTHONPATH,
// which the qsub template's exported environment takes care of.
func driverBootstrap(kind project.JobKind, paths ResolvedPaths) string {
	return fmt.Sprintf("%s -m crboost.driver %s", paths.PythonPath, kind)
}

// buildImportMovies implements the import_movies contract: invoke the
// movie-import tool with the resolved globs, the optics group name, and
// the microscope/acquisition values that are global to the project.
func buildImportMovies(globals project.GlobalParameters, rec *project.JobRecord, paths ResolvedPaths) (string, error) {
	const kind = project.JobImportMovies

	if paths.MoviesGlob == "" {
		return "", missingParameter(kind, "movies_glob")
	}
	if paths.MdocGlob == "" {
		return "", missingParameter(kind, "mdoc_glob")
	}
	if paths.OpticsGroupName == "" {
		return "", missingParameter(kind, "optics_group_name")
	}

	m := globals.Microscope
	if m.PixelSizeAngstrom == 0 {
		return "", missingParameter(kind, "pixel_size_angstrom")
	}
	if m.VoltageKV == 0 {
		return "", missingParameter(kind, "voltage_kv")
	}
	if m.SphericalAberrationMM == 0 {
		return "", missingParameter(kind, "spherical_aberration_mm")
	}

	a := globals.Acquisition
	if a.DosePerTiltEPerA2 == 0 {
		return "", missingParameter(kind, "dose_per_tilt_e_per_a2")
	}

	cmd := fmt.Sprintf(
		"relion_tomo_import_tilt_series --movies %q --mdocs %q --optics-group %q "+
			"--angpix %g --kv %g --cs %g --ac %g --dose %g --tilt-axis-angle %g",
		paths.MoviesGlob, paths.MdocGlob, paths.OpticsGroupName,
		m.PixelSizeAngstrom, m.VoltageKV, m.SphericalAberrationMM, m.AmplitudeContrast,
		a.DosePerTiltEPerA2, a.TiltAxisAngleDeg,
	)
	if a.InvertDefocusHand {
		cmd += " --invert-defocus-hand"
	}
	return cmd, nil
}
