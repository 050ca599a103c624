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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrapNonContainerizedPassesThrough(t *testing.T) {
	cmd := "relion_tomo_align --in_mics foo.star"
	if got := Wrap(cmd, false, Options{Runtime: "singularity", Image: "relion.sif"}); got != cmd {
		t.Errorf("Wrap = %q, want unchanged %q", got, cmd)
	}
}

func TestWrapContainerizedBasicShape(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Runtime:     "singularity",
		Image:       "relion.sif",
		HomeDir:     dir,
		ProjectRoot: dir,
	}
	got := Wrap("relion_tomo_align --o out.star", true, opts)

	if !strings.HasPrefix(got, "singularity exec") {
		t.Errorf("command %q should start with 'singularity exec'", got)
	}
	if !strings.Contains(got, "relion.sif /bin/sh -c") {
		t.Errorf("command %q missing image+shell invocation", got)
	}
	if !strings.Contains(got, "-B /tmp") {
		t.Errorf("command %q missing unconditional /tmp bind", got)
	}
	if !strings.Contains(got, "-B "+dir) {
		t.Errorf("command %q missing home/project bind for %s", got, dir)
	}
}

func TestWrapGPUFlag(t *testing.T) {
	got := Wrap("warp_fs --gpu 0", true, Options{Runtime: "apptainer", Image: "warp.sif", GPU: true})
	if !strings.Contains(got, "apptainer exec --nv ") {
		t.Errorf("command %q missing --nv flag", got)
	}
}

func TestWrapOnlyBindsExistingConditionalPaths(t *testing.T) {
	dir := t.TempDir()
	got := Wrap("cmd", true, Options{
		Runtime:               "singularity",
		Image:                 "img.sif",
		SchedulerClientBinDir: dir,
		SchedulerLibDir:       "/does/not/exist/lib",
	})
	if !strings.Contains(got, "-B "+dir) {
		t.Errorf("command %q should bind existing SchedulerClientBinDir %s", got, dir)
	}
	if strings.Contains(got, "-B /does/not/exist/lib") {
		t.Errorf("command %q should not bind a nonexistent SchedulerLibDir", got)
	}
}

func TestWrapExtraBindsAppended(t *testing.T) {
	got := Wrap("cmd", true, Options{
		Runtime:    "singularity",
		Image:      "img.sif",
		ExtraBinds: []Bind{{Src: "/data/scratch", Dst: "/scratch"}},
	})
	if !strings.Contains(got, "-B /data/scratch:/scratch") {
		t.Errorf("command %q missing extra bind", got)
	}
}

func TestWrapEnvScrubbing(t *testing.T) {
	got := Wrap("cmd", true, Options{Runtime: "singularity", Image: "img.sif"})
	if !strings.Contains(got, "unset SINGULARITY_CONTAINER") {
		t.Errorf("command %q missing env scrub of SINGULARITY_CONTAINER", got)
	}
}

func TestWrapRelionPathPolicy(t *testing.T) {
	got := Wrap("relion_tomo_align", true, Options{
		Runtime:               "singularity",
		Image:                 "relion.sif",
		IsRelionImage:         true,
		SchedulerClientBinDir: "/opt/slurm/bin",
	})
	if !strings.Contains(got, "unset PYTHONPATH PYTHONHOME") {
		t.Errorf("command %q missing PYTHONPATH/PYTHONHOME clear", got)
	}
	if !strings.Contains(got, "/opt/slurm/bin") {
		t.Errorf("command %q missing host scheduler bin dir in PATH", got)
	}
}

func TestWrapBindsScratchDirWhenCmdReferencesIt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in.mrc"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}
	got := Wrap("newstack in.mrc out.mrc", true, Options{
		Runtime:    "singularity",
		Image:      "imod.sif",
		ScratchDir: dir,
	})
	if !strings.Contains(got, "-B "+dir) {
		t.Errorf("command %q should bind ScratchDir %s when cmd references a file already there", got, dir)
	}
}

func TestWrapDoesNotBindScratchDirWhenCmdDoesNotReferenceIt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "unrelated.mrc"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}
	got := Wrap("relion_tomo_align --o out.star", true, Options{
		Runtime:    "singularity",
		Image:      "relion.sif",
		ScratchDir: dir,
	})
	if strings.Contains(got, "-B "+dir) {
		t.Errorf("command %q should not bind ScratchDir %s when cmd never references it", got, dir)
	}
}

func TestBindStringReadOnly(t *testing.T) {
	b := Bind{Src: "/etc/passwd", ReadOnly: true}
	if got, want := b.String(), "/etc/passwd:/etc/passwd:ro"; got != want {
		t.Errorf("Bind.String() = %q, want %q", got, want)
	}
}
