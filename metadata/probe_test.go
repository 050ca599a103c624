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

package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleMdoc = `PixelSpacing = 1.35
Voltage = 300.0
ImageSize = 5760 4092

[ZValue = 0]
TiltAngle = 0.0
ExposureDose = 3.05
TiltAxisAngle = 85.3

[ZValue = 1]
TiltAngle = 3.0
ExposureDose = 3.1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %s", path, err)
	}
	return path
}

func TestParseFileFullRecord(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "frame.mdoc", sampleMdoc)

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %s", err)
	}

	if !r.HasPixelSpacing || r.PixelSpacingAngstrom != 1.35 {
		t.Errorf("pixel spacing = %v (has=%v), want 1.35", r.PixelSpacingAngstrom, r.HasPixelSpacing)
	}
	if !r.HasVoltage || r.VoltageKV != 300.0 {
		t.Errorf("voltage = %v (has=%v), want 300", r.VoltageKV, r.HasVoltage)
	}
	if !r.HasDose || r.DosePerTiltEPerA2 != 3.05 {
		t.Errorf("dose = %v (has=%v), want 3.05 (first ZValue section only)", r.DosePerTiltEPerA2, r.HasDose)
	}
	if !r.HasTiltAxisAngle || r.TiltAxisAngleDeg != 85.3 {
		t.Errorf("tilt axis angle = %v (has=%v), want 85.3", r.TiltAxisAngleDeg, r.HasTiltAxisAngle)
	}
	if !r.HasImageSize || r.ImageWidth != 5760 || r.ImageHeight != 4092 {
		t.Errorf("image size = %dx%d (has=%v), want 5760x4092", r.ImageWidth, r.ImageHeight, r.HasImageSize)
	}
	if !r.HasEERFractionsHint || r.EERFractionsHint != k3EERFractionsHint {
		t.Errorf("EER hint = %v (has=%v), want %d", r.EERFractionsHint, r.HasEERFractionsHint, k3EERFractionsHint)
	}
}

func TestParseFileMissingFieldsNeverErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sparse.mdoc", "SomeOtherKey = 1\n")

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %s", err)
	}
	if r.HasPixelSpacing || r.HasVoltage || r.HasDose || r.HasTiltAxisAngle || r.HasImageSize {
		t.Errorf("expected no fields extracted from a file with none recognized, got %+v", r)
	}
}

func TestParseFileNonK3GeometryNoHint(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "falcon.mdoc", "ImageSize = 4096 4096\n")

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %s", err)
	}
	if r.HasEERFractionsHint {
		t.Error("non-K3 geometry should not produce an EER fractions hint")
	}
}

func TestAutodetectNoMatches(t *testing.T) {
	dir := t.TempDir()
	r, err := Autodetect(filepath.Join(dir, "*.mdoc"))
	if err != nil {
		t.Fatalf("Autodetect: %s", err)
	}
	if r.HasPixelSpacing {
		t.Error("expected an empty Result when glob matches nothing")
	}
}

func TestAutodetectFindsFirstMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mdoc", sampleMdoc)

	r, err := Autodetect(filepath.Join(dir, "*.mdoc"))
	if err != nil {
		t.Fatalf("Autodetect: %s", err)
	}
	if !r.HasPixelSpacing {
		t.Error("expected pixel spacing to be found")
	}
}

func TestAutodetectBadPattern(t *testing.T) {
	if _, err := Autodetect("["); err == nil {
		t.Error("expected an error for a malformed glob pattern")
	}
}
