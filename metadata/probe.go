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
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// k3ImageWidth and k3ImageHeight are the physical sensor dimensions of a
// Gatan K3 detector; session files whose ImageSize matches this geometry
// are presumed to be EER acquisitions, and get an EER-fraction-count hint
// a caller can offer the UI as a starting point.
const (
	k3ImageWidth        = 5760
	k3ImageHeight       = 4092
	k3EERFractionsHint  = 40
)

// Result is the flat set of values the Probe could extract. Every field
// has a companion Has* flag; a zero value with Has* false means the field
// was absent from the file, not that it was zero.
type Result struct {
	PixelSpacingAngstrom float64
	HasPixelSpacing      bool

	VoltageKV    float64
	HasVoltage   bool

	DosePerTiltEPerA2 float64
	HasDose           bool

	TiltAxisAngleDeg float64
	HasTiltAxisAngle bool

	ImageWidth, ImageHeight int
	HasImageSize            bool

	EERFractionsHint int
	HasEERFractionsHint bool
}

// Autodetect globs mdocsGlob, parses the first match, and returns the
// values it could read. A glob with no matches returns a zero Result and
// no error: the probe never throws on missing input, it just reports
// less.
func Autodetect(mdocsGlob string) (Result, error) {
	matches, err := filepath.Glob(mdocsGlob)
	if err != nil {
		return Result{}, err
	}
	if len(matches) == 0 {
		return Result{}, nil
	}
	return ParseFile(matches[0])
}

// ParseFile reads a single session-metadata file and extracts whatever
// fields it recognizes. Header fields (outside any [ZValue = N] section)
// take precedence over the same key found in the first ZValue section,
// mirroring what the acquisition software itself emits. The tilt axis
// angle is the exception: the first section's TiltAxisAngle is preferred
// over the header's "Tilt axis angle".
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	header := make(map[string]string)
	firstSection := make(map[string]string)
	inZValue := false
	sawFirstSection := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[ZValue") {
			if sawFirstSection {
				// Only the first ZValue section seeds autodetect.
				continue
			}
			inZValue = true
			sawFirstSection = true
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		if inZValue {
			if _, already := firstSection[key]; !already {
				firstSection[key] = value
			}
		} else {
			header[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, err
	}

	var r Result
	if v, ok := firstOf(header, firstSection, "PixelSpacing"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.PixelSpacingAngstrom = f
			r.HasPixelSpacing = true
		}
	}
	if v, ok := firstOf(header, firstSection, "Voltage"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.VoltageKV = f
			r.HasVoltage = true
		}
	}
	if v, ok := firstOf(header, firstSection, "ExposureDose"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.DosePerTiltEPerA2 = f
			r.HasDose = true
		}
	}
	if v, ok := firstOfKeys(firstSection, header, "TiltAxisAngle", "Tilt axis angle"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.TiltAxisAngleDeg = f
			r.HasTiltAxisAngle = true
		}
	}
	if v, ok := firstOf(header, firstSection, "ImageSize"); ok {
		if w, h, ok := parseImageSize(v); ok {
			r.ImageWidth, r.ImageHeight = w, h
			r.HasImageSize = true
			if w == k3ImageWidth && h == k3ImageHeight {
				r.EERFractionsHint = k3EERFractionsHint
				r.HasEERFractionsHint = true
			}
		}
	}

	return r, nil
}

func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// firstOf prefers the header map's value for key, falling back to the
// first ZValue section's.
func firstOf(header, section map[string]string, key string) (string, bool) {
	if v, ok := header[key]; ok {
		return v, true
	}
	if v, ok := section[key]; ok {
		return v, true
	}
	return "", false
}

// firstOfKeys prefers the first map's value under primaryKey, falling
// back to the second map under fallbackKey. Used where the acquisition
// software spells the same field differently in the header versus the
// per-tilt section.
func firstOfKeys(primary, fallback map[string]string, primaryKey, fallbackKey string) (string, bool) {
	if v, ok := primary[primaryKey]; ok {
		return v, true
	}
	if v, ok := fallback[fallbackKey]; ok {
		return v, true
	}
	return "", false
}

func parseImageSize(v string) (w, h int, ok bool) {
	fields := strings.Fields(v)
	if len(fields) != 2 {
		return 0, 0, false
	}
	wi, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, false
	}
	return wi, hi, true
}
