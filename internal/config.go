// Copyright © 2016-2019 Genome Research Limited
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

package internal

// this file implements the config system used by the cmd and httpapi
// packages: C1, the Config Loader.

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/jinzhu/configor"
	"github.com/olekukonko/tablewriter"
)

const (
	configCommonBasename = ".crboost_config.yml"

	// ConfigSourceEnvVar is a config value source.
	ConfigSourceEnvVar = "env var"

	// ConfigSourceDefault is a config value source.
	ConfigSourceDefault = "default"

	sourcesProperty = "sources"
)

// ToolConfig describes how one tool tag is dispatched: either as a local
// binary or as a container image, never both.
type ToolConfig struct {
	Binary    bool   `yaml:"binary"`
	Container bool   `yaml:"container"`
	Path      string `yaml:"path"`
	// Module, if set, is `module load <Module>` run before a non-
	// containerized binary invocation.
	Module string `yaml:"module"`
}

// MicroscopePreset is a named set of default microscope parameters,
// selectable at project-creation time.
type MicroscopePreset struct {
	PixelSizeAngstrom     float64 `yaml:"pixel_size_angstrom"`
	VoltageKV             float64 `yaml:"voltage_kv"`
	SphericalAberrationMM float64 `yaml:"spherical_aberration_mm"`
	AmplitudeContrast     float64 `yaml:"amplitude_contrast"`
	// DoseTransform, if non-zero, multiplies the Metadata Probe's raw
	// exposure dose to derive dose-per-tilt.
	DoseTransform float64 `yaml:"dose_transform"`
}

// Alias maps the scientific parameter name as it must appear in the scheme
// file to the friendly label used by the UI.
type Alias struct {
	Scheme   string `yaml:"scheme"`
	Friendly string `yaml:"friendly"`
}

// SlurmDefaults are cluster defaults used to template new projects' qsub
// scripts.
type SlurmDefaults struct {
	Partition     string `yaml:"partition" default:""`
	Constraint    string `yaml:"constraint" default:""`
	Nodes         int    `yaml:"nodes" default:"1"`
	NTasksPerNode int    `yaml:"ntasks_per_node" default:"1"`
	CPUsPerTask   int    `yaml:"cpus_per_task" default:"4"`
	Gres          string `yaml:"gres" default:""`
	Mem           string `yaml:"mem" default:"8G"`
	Time          string `yaml:"time" default:"24:00:00"`
}

// Config holds the configuration options for the crboost server and its
// thin CLI clients.
type Config struct {
	LocalDefaultProjectBase string `yaml:"local_default_project_base" default:"~/crboost_projects"`
	LocalDefaultMoviesGlob  string `yaml:"local_default_movies_glob" default:"'*.eer'"`
	LocalDefaultMdocsGlob   string `yaml:"local_default_mdocs_glob" default:"'*.mdoc'"`

	ServerHost string `yaml:"server_host" default:"0.0.0.0"`
	ServerPort string `yaml:"server_port" default:"8081"`

	// TLSEnabled serves the HTTP/WebSocket surface over a self-signed
	// certificate generated into ServerDir on first start.
	TLSEnabled bool   `yaml:"tls_enabled" default:"false"`
	TLSDomain  string `yaml:"tls_domain" default:"localhost"`

	ServerDir  string `yaml:"server_dir" default:""`
	PythonPath string `yaml:"python_path" default:"python3"`

	ContainerRuntime string `yaml:"container_runtime" default:"singularity"`

	// NodeScratchDir is a node-local working directory some tools drop
	// intermediate files into by relative path, without ever naming it on
	// their command line. Bound into the container only when a job's
	// command actually looks like it touches something already there.
	NodeScratchDir string `yaml:"node_scratch_dir" default:""`

	// SchemeTemplatesDir holds the server-shipped scheme job templates
	// (one subdirectory per JobKind, each with a job.star) that the
	// Scheme Materializer copies from at run time.
	SchemeTemplatesDir string `yaml:"scheme_templates_dir" default:"scheme_templates"`

	// QsubTemplatePath is the qsub script template the Project Service
	// copies into a new project's qsub/ directory at creation time.
	QsubTemplatePath string `yaml:"qsub_template_path" default:"qsub_template.sh"`

	// PipelinerExe is the downstream batch-pipeliner binary (RELION's
	// schemer) the Pipeline Runner invokes.
	PipelinerExe string `yaml:"pipeliner_exe" default:"relion_schemer"`

	// WatchPollIntervalSeconds bounds the Progress Watcher's tick
	// interval.
	WatchPollIntervalSeconds int `yaml:"watch_poll_interval_seconds" default:"3"`

	SlurmDefaults SlurmDefaults               `yaml:"slurm_defaults"`
	Tools         map[string]ToolConfig       `yaml:"tools"`
	Microscopes   map[string]MicroscopePreset `yaml:"microscopes"`
	Aliases       []Alias                     `yaml:"aliases"`

	sources map[string]string
}

// Error is a structured, per-field configuration error.
type Error struct {
	Op   string
	Item string
	Kind string
}

func (e Error) Error() string {
	return "config " + e.Op + "(" + e.Item + "): " + e.Kind
}

// merge compares existing to new Config values, and for each scalar one that
// has changed, sets the given source on the changed property in our sources,
// and sets the new value on ourselves. Non-scalar fields (maps, slices,
// structs) are not individually source-tracked, but are still copied in the
// caller via configor.Load directly into the live Config.
func (c *Config) merge(new *Config, source string) {
	v := reflect.ValueOf(*c)
	typeOfC := v.Type()
	vNew := reflect.ValueOf(*new)

	if c.sources == nil {
		c.sources = make(map[string]string)
	}

	for i := 0; i < v.NumField(); i++ {
		property := typeOfC.Field(i).Name
		if property == sourcesProperty {
			continue
		}

		switch typeOfC.Field(i).Type.Kind() { //nolint:exhaustive
		case reflect.String, reflect.Int, reflect.Bool:
		default:
			continue
		}

		if vNew.Field(i).Interface() != v.Field(i).Interface() {
			c.sources[property] = source

			adrField := reflect.ValueOf(c).Elem().Field(i)
			switch typeOfC.Field(i).Type.Kind() { //nolint:exhaustive
			case reflect.String:
				adrField.SetString(vNew.Field(i).String())
			case reflect.Int:
				adrField.SetInt(vNew.Field(i).Int())
			case reflect.Bool:
				adrField.SetBool(vNew.Field(i).Bool())
			}
		}
	}
}

// Source returns where the value of a scalar Config field was defined.
func (c Config) Source(field string) string {
	if c.sources == nil {
		return ConfigSourceDefault
	}
	source, set := c.sources[field]
	if !set {
		return ConfigSourceDefault
	}
	return source
}

// String renders the effective scalar configuration as a table of field,
// value and source, for `crboost config show`.
func (c Config) String() string {
	v := reflect.ValueOf(c)
	typeOfC := v.Type()

	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetHeader([]string{"Config", "Value", "Source"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i := 0; i < v.NumField(); i++ {
		property := typeOfC.Field(i).Name
		if property == sourcesProperty {
			continue
		}

		switch typeOfC.Field(i).Type.Kind() { //nolint:exhaustive
		case reflect.String, reflect.Int, reflect.Bool:
		default:
			continue
		}

		source := c.sources[property]
		if source == "" {
			source = ConfigSourceDefault
		}

		table.Append([]string{property, fmt.Sprintf("%v", v.Field(i).Interface()), source})
	}

	table.Render()
	return tableString.String()
}

/*
ConfigLoad loads configuration settings from files and environment
variables. Note, this function returns an error rather than exiting, since
main() decides how to report a startup failure.

We prefer settings in a config file in the current directory over one in
the home directory over one in the directory pointed to by
CRBOOST_CONFIG_DIR. Settings found in no file can be set with the
environment variable CRBOOST_<setting name in caps>.
*/
func ConfigLoad(logger log15.Logger) (*Config, error) {
	config := &Config{}
	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	if err := os.Setenv("CONFIGOR_ENV_PREFIX", "CRBOOST"); err != nil {
		return nil, err
	}

	configEnv := &Config{}
	if err := configor.Load(configEnv); err != nil {
		return nil, err
	}
	ev := reflect.ValueOf(configEnv).Elem() // CRBOOST_<yaml key in caps>
	for i := 0; i < ev.NumField(); i++ {
		key := ev.Type().Field(i).Tag.Get("yaml")
		val, set := os.LookupEnv("CRBOOST_" + strings.ToUpper(key))
		f := ev.Field(i)
		if key == "" || !set || !f.CanSet() {
			continue
		} else if f.Kind() == reflect.String {
			f.SetString(val)
		} else if n, err := strconv.Atoi(val); err == nil && f.Kind() == reflect.Int {
			f.SetInt(int64(n))
		} else if b, err := strconv.ParseBool(val); err == nil && f.Kind() == reflect.Bool {
			f.SetBool(b)
		}
	}
	config.merge(configEnv, ConfigSourceEnvVar)

	if configDir := os.Getenv("CRBOOST_CONFIG_DIR"); configDir != "" {
		configLoadFromFile(config, filepath.Join(configDir, configCommonBasename), logger)
	}

	if home, herr := os.UserHomeDir(); herr == nil && home != "" {
		configLoadFromFile(config, filepath.Join(home, configCommonBasename), logger)
	}

	if pwd, err := os.Getwd(); err == nil {
		configLoadFromFile(config, filepath.Join(pwd, configCommonBasename), logger)
	}

	config.ServerDir = TildaToHome(config.ServerDir)
	config.LocalDefaultProjectBase = TildaToHome(config.LocalDefaultProjectBase)

	return config, nil
}

func configLoadFromFile(config *Config, path string, logger log15.Logger) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	configFile := &Config{}
	if err := defaults.Set(configFile); err != nil {
		logger.Error(err.Error())
		return
	}
	if err := configor.Load(configFile, path); err != nil {
		logger.Error(err.Error())
		return
	}
	config.merge(configFile, path)

	// maps, slices and nested structs aren't scalar-merged above; a file
	// that sets them wins outright, matching configor's own last-wins
	// layering semantics for non-scalar YAML.
	if len(configFile.Tools) > 0 {
		config.Tools = configFile.Tools
	}
	if len(configFile.Microscopes) > 0 {
		config.Microscopes = configFile.Microscopes
	}
	if len(configFile.Aliases) > 0 {
		config.Aliases = configFile.Aliases
	}
	if configFile.SlurmDefaults != (SlurmDefaults{}) {
		config.SlurmDefaults = configFile.SlurmDefaults
	}
}

// Validate checks that every required key is present, no tool is both or
// neither binary/container, and every declared
// container image path resolves to an existing file. It returns every
// violation found, not just the first.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.LocalDefaultProjectBase == "" {
		result = multierror.Append(result, Error{"Validate", "local.default_project_base", "missing_required_key"})
	}
	if c.TLSEnabled && c.ServerDir == "" {
		result = multierror.Append(result, Error{"Validate", "server_dir", "required_when_tls_enabled"})
	}

	for name, tool := range c.Tools {
		switch {
		case tool.Binary == tool.Container:
			result = multierror.Append(result, Error{"Validate", "tools." + name, "must_be_exactly_one_of_binary_or_container"})
		case tool.Container:
			if _, err := os.Stat(tool.Path); err != nil {
				result = multierror.Append(result, Error{"Validate", "tools." + name + ".path", "container_image_not_found"})
			}
		case tool.Binary:
			if tool.Path == "" {
				result = multierror.Append(result, Error{"Validate", "tools." + name + ".path", "missing_required_key"})
			}
		}
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}

// TildaToHome converts a leading ~/ in a path to the user's actual home
// directory.
func TildaToHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
