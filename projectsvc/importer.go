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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klumpe-lab/crboost-server/project"
)

// subFramePathKey is the mdoc field naming each tilt's raw movie file.
const subFramePathKey = "SubFramePath"

// ImportData resolves every file matching mdocsGlob, rewrites each tilt's
// SubFramePath to a project-unique prefixed name, symlinks the original
// movie into <root>/frames/ under that name, and writes the rewritten
// metadata into <root>/mdoc/<prefix><name>. It returns the destination
// mdoc paths it wrote (or left untouched as harmless re-imports).
func ImportData(mdocsGlob, root, prefix string) ([]string, error) {
	const op = "import_data"

	matches, err := filepath.Glob(mdocsGlob)
	if err != nil {
		return nil, &project.Error{Op: op, Kind: project.KindBadGlob, Message: err.Error()}
	}
	if len(matches) == 0 {
		return nil, &project.Error{Op: op, Kind: project.KindNoMatchingFiles, Message: fmt.Sprintf("no files matched %q", mdocsGlob)}
	}

	var written []string
	for _, mdocPath := range matches {
		dest, err := importOne(mdocPath, root, prefix)
		if err != nil {
			return written, err
		}
		written = append(written, dest)
	}
	return written, nil
}

func importOne(mdocPath, root, prefix string) (string, error) {
	const op = "import_data"

	absSrc, err := filepath.Abs(mdocPath)
	if err != nil {
		return "", fmt.Errorf("projectsvc: resolve absolute path for %s: %w", mdocPath, err)
	}

	name := filepath.Base(mdocPath)
	destMdocPath := filepath.Join(root, "mdoc", prefix+name)

	if existingRoot, ok := existingRootMdocPath(destMdocPath); ok {
		if existingRoot == absSrc {
			return destMdocPath, nil // harmless re-import of the same source
		}
		return "", &project.Error{
			Op: op, Kind: project.KindDuplicateImport,
			Message: fmt.Sprintf("%s already imported from %s, not %s", filepath.Base(destMdocPath), existingRoot, absSrc),
		}
	}

	doc, err := parseMdocFile(mdocPath)
	if err != nil {
		return "", fmt.Errorf("projectsvc: parse %s: %w", mdocPath, err)
	}

	framesDir := filepath.Join(root, "frames")
	mdocDir := filepath.Dir(mdocPath)
	for _, section := range doc.sections {
		subFrame, ok := section.get(subFramePathKey)
		if !ok {
			continue
		}
		movieBase := filepath.Base(strings.ReplaceAll(subFrame, `\`, "/"))
		newBase := prefix + movieBase

		srcMovie := filepath.Join(mdocDir, movieBase)
		dstMovie := filepath.Join(framesDir, newBase)
		if _, err := os.Lstat(dstMovie); os.IsNotExist(err) {
			if err := os.Symlink(srcMovie, dstMovie); err != nil {
				return "", fmt.Errorf("projectsvc: symlink %s: %w", dstMovie, err)
			}
		}
		section.set(subFramePathKey, newBase)
	}
	doc.header = append(doc.header, fmt.Sprintf("%s = %s", rootMdocPathKey, absSrc))

	if err := writeMdocFile(doc, destMdocPath); err != nil {
		return "", fmt.Errorf("projectsvc: write %s: %w", destMdocPath, err)
	}
	return destMdocPath, nil
}

// existingRootMdocPath reports the CryoBoost_RootMdocPath recorded in an
// already-imported mdoc, if destPath exists.
func existingRootMdocPath(destPath string) (string, bool) {
	f, err := os.Open(destPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, rootMdocPathKey) {
			if key, value, ok := splitMdocLine(line); ok && key == rootMdocPathKey {
				return value, true
			}
		}
	}
	return "", false
}
