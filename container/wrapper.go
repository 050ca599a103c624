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

package container

import (
	"fmt"
	"os"
	"strings"
)

// runtimeLeakedEnvVars are container-runtime environment variables a
// parent container execution would otherwise leak to a child process,
// which matters because the orchestrator itself may be running inside a
// container when it launches a nested one.
var runtimeLeakedEnvVars = []string{
	"SINGULARITY_CONTAINER",
	"SINGULARITY_NAME",
	"SINGULARITY_BIND",
	"APPTAINER_CONTAINER",
	"APPTAINER_NAME",
	"APPTAINER_BIND",
	"LD_LIBRARY_PATH",
}

// relionImagePath is the RELION container image's own binary locations,
// prepended to PATH ahead of the host scheduler client binaries.
const relionImagePath = "/opt/relion/build/bin:/usr/local/bin:/usr/bin:/bin"

// Bind is one `-B src:dst[:ro]` bind-mount entry.
type Bind struct {
	Src      string
	Dst      string
	ReadOnly bool
}

func (b Bind) String() string {
	dst := b.Dst
	if dst == "" {
		dst = b.Src
	}
	if b.ReadOnly {
		return fmt.Sprintf("%s:%s:ro", b.Src, dst)
	}
	return fmt.Sprintf("%s:%s", b.Src, dst)
}

// Options carries everything the wrapper needs beyond the raw command and
// the tool's containerized/not flag.
type Options struct {
	Runtime string // e.g. "singularity", "apptainer"
	Image   string
	GPU     bool // adds --nv

	HomeDir     string
	ProjectRoot string
	ProjectBase string

	// SchedulerClientBinDir, SchedulerLibDir, and AuthSocketDir are
	// host-provided cluster integration paths. Each is bound only if
	// non-empty and actually present on disk.
	SchedulerClientBinDir string
	SchedulerLibDir       string
	AuthSocketDir         string

	// BindPasswdAndGroup binds /etc/passwd and /etc/group read-only when
	// true and the files exist.
	BindPasswdAndGroup bool

	// ExtraBinds are appended verbatim, after the policy-derived binds.
	ExtraBinds []Bind

	// ScratchDir is a node-local working directory a tool may reference by
	// relative path without it ever appearing in cmd's flags (e.g. IMOD's
	// habit of dropping intermediate files next to its input). It is bound
	// only when cmd actually looks like it touches something already
	// sitting in ScratchDir.
	ScratchDir string

	// IsRelionImage selects the RELION-specific PATH policy: clear
	// PYTHONPATH/PYTHONHOME and set PATH to the image's own locations
	// plus the host scheduler client binaries directory.
	IsRelionImage bool
}

// Wrap returns cmd unchanged if containerized is false. Otherwise it
// returns a single shell line of the form
// `<runtime> exec [--nv] [--pwd <project-root>] [-B src:dst[:ro]]… <image> <shell> -c <quoted command>`.
//
// The wrapper makes no attempt to verify that image actually contains the
// tool cmd invokes; that mapping is the config loader's concern.
func Wrap(cmd string, containerized bool, opts Options) string {
	if !containerized {
		return cmd
	}

	inner := cmd
	if opts.IsRelionImage {
		inner = relionPathPrefix(opts) + " && " + inner
	}
	inner = envScrubPrefix() + " " + inner

	var sb strings.Builder
	sb.WriteString(opts.Runtime)
	sb.WriteString(" exec")
	if opts.GPU {
		sb.WriteString(" --nv")
	}
	if opts.ProjectRoot != "" {
		sb.WriteString(" --pwd ")
		sb.WriteString(opts.ProjectRoot)
	}
	for _, b := range resolveBinds(cmd, opts) {
		sb.WriteString(" -B ")
		sb.WriteString(b.String())
	}
	sb.WriteString(" ")
	sb.WriteString(opts.Image)
	sb.WriteString(" /bin/sh -c ")
	sb.WriteString(shellQuote(inner))
	return sb.String()
}

func envScrubPrefix() string {
	var parts []string
	for _, v := range runtimeLeakedEnvVars {
		parts = append(parts, "unset "+v)
	}
	return strings.Join(parts, "; ") + ";"
}

func relionPathPrefix(opts Options) string {
	path := relionImagePath
	if opts.SchedulerClientBinDir != "" {
		path = relionImagePath + ":" + opts.SchedulerClientBinDir
	}
	return fmt.Sprintf("unset PYTHONPATH PYTHONHOME; export PATH=%s", path)
}

func resolveBinds(cmd string, opts Options) []Bind {
	var binds []Bind

	if opts.HomeDir != "" {
		binds = append(binds, Bind{Src: "/tmp"}, Bind{Src: opts.HomeDir})
	} else {
		binds = append(binds, Bind{Src: "/tmp"})
	}
	if opts.ProjectRoot != "" {
		binds = append(binds, Bind{Src: opts.ProjectRoot})
	}
	if opts.ProjectBase != "" {
		binds = append(binds, Bind{Src: opts.ProjectBase})
	}

	if opts.SchedulerClientBinDir != "" && pathExists(opts.SchedulerClientBinDir) {
		binds = append(binds, Bind{Src: opts.SchedulerClientBinDir})
	}
	if opts.SchedulerLibDir != "" && pathExists(opts.SchedulerLibDir) {
		binds = append(binds, Bind{Src: opts.SchedulerLibDir})
	}
	if opts.AuthSocketDir != "" && pathExists(opts.AuthSocketDir) {
		binds = append(binds, Bind{Src: opts.AuthSocketDir})
	}
	if opts.BindPasswdAndGroup {
		if pathExists("/etc/passwd") {
			binds = append(binds, Bind{Src: "/etc/passwd", ReadOnly: true})
		}
		if pathExists("/etc/group") {
			binds = append(binds, Bind{Src: "/etc/group", ReadOnly: true})
		}
	}

	if opts.ScratchDir != "" && CmdlineHasRelativePaths(opts.ScratchDir, cmd) {
		binds = append(binds, Bind{Src: opts.ScratchDir})
	}

	binds = append(binds, opts.ExtraBinds...)
	return binds
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// shellQuote wraps s in single quotes, escaping any single quote it
// contains, so it survives as one argument to `sh -c`.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
