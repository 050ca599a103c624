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
	"strings"
)

// rootMdocPathKey is appended to every imported mdoc so a later import run
// can tell whether a colliding prefixed name came from the same source
// file (a harmless re-import) or a different one (duplicate_import).
const rootMdocPathKey = "CryoBoost_RootMdocPath"

// mdocSection is one `[ZValue = N]` section: an ordered key/value list,
// preserving both the original order and duplicate-tolerant lookup.
type mdocSection struct {
	zValue string
	keys   []string
	values map[string]string
}

func newMdocSection(zValue string) *mdocSection {
	return &mdocSection{zValue: zValue, values: make(map[string]string)}
}

func (s *mdocSection) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *mdocSection) get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// mdocDoc is a full parse of a session-metadata file: a raw header
// (everything before the first ZValue section) plus an ordered list of
// per-tilt sections.
type mdocDoc struct {
	header   []string
	sections []*mdocSection
}

func parseMdocFile(path string) (*mdocDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := &mdocDoc{}
	var cur *mdocSection

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[ZValue") {
			z := strings.TrimSuffix(strings.TrimSpace(strings.SplitN(line, "=", 2)[1]), "]")
			cur = newMdocSection(strings.TrimSpace(z))
			doc.sections = append(doc.sections, cur)
			continue
		}
		key, value, ok := splitMdocLine(line)
		if !ok {
			if cur == nil {
				doc.header = append(doc.header, line)
			}
			continue
		}
		if cur != nil {
			cur.set(key, value)
		} else {
			doc.header = append(doc.header, line)
		}
	}
	return doc, scanner.Err()
}

func splitMdocLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func writeMdocFile(doc *mdocDoc, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range doc.header {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
	for _, s := range doc.sections {
		fmt.Fprintf(w, "[ZValue = %s]\n", s.zValue)
		for _, k := range s.keys {
			fmt.Fprintf(w, "%s = %s\n", k, s.values[k])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
