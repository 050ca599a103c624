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

package projectsvc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klumpe-lab/crboost-server/project"
)

func TestCreateLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	if err := CreateLayout(root); err != nil {
		t.Fatalf("CreateLayout: %s", err)
	}
	for _, d := range layoutDirs {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s to exist", d)
		}
	}
	if err := CreateLayout(root); err != nil {
		t.Errorf("second CreateLayout call should be idempotent, got %s", err)
	}
}

func TestWriteQsubTemplate(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()
	if err := CreateLayout(root); err != nil {
		t.Fatalf("CreateLayout: %s", err)
	}

	tmplPath := filepath.Join(srcDir, "qsub.sh")
	tmpl := "#!/bin/bash\n#SBATCH --nodes=XXXextra1XXX\n#SBATCH --ntasks-per-node=XXXextra2XXX\n" +
		"#SBATCH --partition=XXXextra3XXX\n#SBATCH --gres=XXXextra4XXX\n#SBATCH --mem=XXXextra5XXX\n" +
		"#SBATCH --cpus-per-task=XXXthreadsXXX\nXXXmoduleXXX\nXXXcommandXXX\n"
	if err := os.WriteFile(tmplPath, []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %s", err)
	}

	defaults := project.Computing{Partition: "gpu", Nodes: 2, NTasksPerNode: 1, CPUsPerTask: 8, Gres: "gpu:1", Mem: "32G"}
	if err := WriteQsubTemplate(tmplPath, root, defaults, []string{"IMOD/4.11", "IMOD/4.11", "warp/2.0"}); err != nil {
		t.Fatalf("WriteQsubTemplate: %s", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "qsub", "qsub.sh"))
	if err != nil {
		t.Fatalf("reading written template: %s", err)
	}
	text := string(data)
	for _, want := range []string{
		"--nodes=2", "--ntasks-per-node=1", "--partition=gpu", "--gres=gpu:1", "--mem=32G", "--cpus-per-task=8",
		"module load IMOD/4.11", "module load warp/2.0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("template missing %q, got:\n%s", want, text)
		}
	}
	if strings.Count(text, "module load IMOD/4.11") != 1 {
		t.Errorf("duplicate module should be deduplicated, got:\n%s", text)
	}
	if !strings.Contains(text, "XXXcommandXXX") {
		t.Error("template should leave XXXcommandXXX for the pipeliner to substitute")
	}
}

const sampleMdoc = `PixelSpacing = 1.35
Voltage = 300.0

[ZValue = 0]
TiltAngle = 0.0
SubFramePath = X:\data\frame_000.eer
ExposureDose = 3.05

[ZValue = 1]
TiltAngle = 3.0
SubFramePath = X:\data\frame_001.eer
ExposureDose = 3.1
`

func setupImportFixture(t *testing.T) (mdocDir, root string) {
	t.Helper()
	mdocDir = t.TempDir()
	root = t.TempDir()
	if err := CreateLayout(root); err != nil {
		t.Fatalf("CreateLayout: %s", err)
	}
	if err := os.WriteFile(filepath.Join(mdocDir, "session.mdoc"), []byte(sampleMdoc), 0o644); err != nil {
		t.Fatalf("write mdoc: %s", err)
	}
	for _, f := range []string{"frame_000.eer", "frame_001.eer"} {
		if err := os.WriteFile(filepath.Join(mdocDir, f), []byte("fake movie"), 0o644); err != nil {
			t.Fatalf("write movie %s: %s", f, err)
		}
	}
	return mdocDir, root
}

func TestImportDataSymlinksAndRewrites(t *testing.T) {
	mdocDir, root := setupImportFixture(t)

	written, err := ImportData(filepath.Join(mdocDir, "*.mdoc"), root, "p1_")
	if err != nil {
		t.Fatalf("ImportData: %s", err)
	}
	if len(written) != 1 {
		t.Fatalf("got %d written files, want 1", len(written))
	}

	destPath := filepath.Join(root, "mdoc", "p1_session.mdoc")
	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading imported mdoc: %s", err)
	}
	text := string(data)
	if !strings.Contains(text, "SubFramePath = p1_frame_000.eer") {
		t.Errorf("expected rewritten SubFramePath, got:\n%s", text)
	}
	if !strings.Contains(text, "CryoBoost_RootMdocPath") {
		t.Errorf("expected CryoBoost_RootMdocPath marker line, got:\n%s", text)
	}

	for _, f := range []string{"p1_frame_000.eer", "p1_frame_001.eer"} {
		link := filepath.Join(root, "frames", f)
		if _, err := os.Lstat(link); err != nil {
			t.Errorf("expected symlink %s to exist: %s", link, err)
		}
	}
}

func TestImportDataReimportSameSourceIsHarmless(t *testing.T) {
	mdocDir, root := setupImportFixture(t)

	if _, err := ImportData(filepath.Join(mdocDir, "*.mdoc"), root, "p1_"); err != nil {
		t.Fatalf("first ImportData: %s", err)
	}
	if _, err := ImportData(filepath.Join(mdocDir, "*.mdoc"), root, "p1_"); err != nil {
		t.Fatalf("second ImportData of the same source should succeed, got %s", err)
	}
}

func TestImportDataDuplicateImportConflict(t *testing.T) {
	mdocDir, root := setupImportFixture(t)
	if _, err := ImportData(filepath.Join(mdocDir, "*.mdoc"), root, "p1_"); err != nil {
		t.Fatalf("first ImportData: %s", err)
	}

	otherDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(otherDir, "session.mdoc"), []byte(sampleMdoc), 0o644); err != nil {
		t.Fatalf("write conflicting mdoc: %s", err)
	}

	_, err := ImportData(filepath.Join(otherDir, "*.mdoc"), root, "p1_")
	if err == nil {
		t.Fatal("expected a duplicate_import error")
	}
	if perr, ok := err.(*project.Error); !ok || perr.Kind != project.KindDuplicateImport {
		t.Errorf("error = %#v, want Kind=%s", err, project.KindDuplicateImport)
	}
}

func TestImportDataBadGlob(t *testing.T) {
	_, root := setupImportFixture(t)
	_, err := ImportData("[", root, "p1_")
	if err == nil {
		t.Fatal("expected a bad_glob error")
	}
	if perr, ok := err.(*project.Error); !ok || perr.Kind != project.KindBadGlob {
		t.Errorf("error = %#v, want Kind=%s", err, project.KindBadGlob)
	}
}

func TestImportDataNoMatchingFiles(t *testing.T) {
	_, root := setupImportFixture(t)
	_, err := ImportData(filepath.Join(root, "nothing-here", "*.mdoc"), root, "p1_")
	if err == nil {
		t.Fatal("expected a no_matching_files error")
	}
	if perr, ok := err.(*project.Error); !ok || perr.Kind != project.KindNoMatchingFiles {
		t.Errorf("error = %#v, want Kind=%s", err, project.KindNoMatchingFiles)
	}
}
