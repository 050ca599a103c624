// Copyright © 2020 Genome Research Limited
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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultYML = `# The format of this file is YAML

# local_default_project_base: where new projects are created by default.
local_default_project_base: "~/crboost_projects"

# local_default_movies_glob: the glob used to discover movie files in a
# project's frames directory when none is given at creation time.
local_default_movies_glob: "*.eer"

# local_default_mdocs_glob: the glob used to discover SerialEM .mdoc files.
local_default_mdocs_glob: "*.mdoc"

# server_host: what host the crboost server should listen on.
server_host: "0.0.0.0"

# server_port: what port the crboost server should listen on.
server_port: "8081"

# server_dir: where the server keeps its pid file and any per-run logs not
# already stored under a project's own directory. Defaults to a directory
# under the user's home if left blank.
server_dir: ""

# python_path: the python3 interpreter used to invoke the driver module when
# a tool is configured to run as a plain binary rather than a container.
python_path: "python3"

# container_runtime: "singularity" or "apptainer".
container_runtime: "singularity"

# slurm_defaults: cluster defaults used to template new projects' submission
# scripts; can be overridden per job kind by the scheme.
slurm_defaults:
  partition: ""
  constraint: ""
  nodes: 1
  ntasks_per_node: 1
  cpus_per_task: 4
  gres: ""
  mem: "8G"
  time: "24:00:00"

# tools: maps a tool tag used by job kinds (eg. "motioncor2", "imod",
# "relion") to either a local binary or a container image. Exactly one of
# binary/container must be true.
tools:
  relion: {binary: true, path: "/usr/local/bin/relion"}

# microscopes: named presets selectable at project-creation time.
microscopes:
  krios1:
    pixel_size_angstrom: 1.1
    voltage_kv: 300
    spherical_aberration_mm: 2.7
    amplitude_contrast: 0.1
    dose_transform: 1.5

# aliases: maps scheme parameter names to friendly UI labels.
aliases:
  - {scheme: "rlnVoltage", friendly: "voltage_kv"}
`

// options for this cmd
var confDefault bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "See crboost's configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration values crboost will use",
	Long: `Show the configuration values crboost will use.

This command also shows where a particular value was defined.

For a list of all possible configuration settings, their descriptions and
default values in the yml format suitable for using as a config file, use
the --default option.

crboost loads its configuration settings from a file named
.crboost_config.yml found in these directories, in order of precedence:
1) The current directory
2) Your home directory
3) The directory pointed to by the environment variable $CRBOOST_CONFIG_DIR

If a setting is found in none of the files read, then an environment
variable is checked: CRBOOST_<setting name in caps>. Eg. to define the
server_port option you might do:
export CRBOOST_SERVER_PORT="9000"`,
	Run: func(cmd *cobra.Command, args []string) {
		if confDefault {
			fmt.Print(defaultYML)
			os.Exit(0)
		}

		fmt.Printf("%s", config)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().BoolVarP(&confDefault, "default", "d", false, "print default config yml file to STDOUT")
}
