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

package star

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Pair is one `_key value` line of a non-loop block, kept in file order.
type Pair struct {
	Key   string
	Value string
}

// Block is one `data_<name>` block: either a simple list of Pairs, or a
// loop_ table described by Columns with one row per Rows entry. A block
// is never both; IsLoop reports which.
type Block struct {
	Name    string
	Pairs   []Pair
	Columns []string
	Rows    [][]string
}

// IsLoop reports whether b is a loop_ table rather than a flat pairs
// block.
func (b *Block) IsLoop() bool {
	return b.Columns != nil
}

// Get returns the value of key in a non-loop block.
func (b *Block) Get(key string) (string, bool) {
	for _, p := range b.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set overwrites key's value in a non-loop block, appending it if absent.
func (b *Block) Set(key, value string) {
	for i, p := range b.Pairs {
		if p.Key == key {
			b.Pairs[i].Value = value
			return
		}
	}
	b.Pairs = append(b.Pairs, Pair{Key: key, Value: value})
}

// ColumnIndex returns the position of col in a loop block's Columns, or
// -1 if absent.
func (b *Block) ColumnIndex(col string) int {
	for i, c := range b.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Document is an ordered sequence of Blocks, mirroring one STAR file.
type Document struct {
	Blocks []*Block
}

// Block returns the named block, or nil if absent.
func (d *Document) Block(name string) *Block {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// AddBlock appends a new, empty block named name and returns it.
func (d *Document) AddBlock(name string) *Block {
	b := &Block{Name: name}
	d.Blocks = append(d.Blocks, b)
	return b
}

// ParseFile reads and parses path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a STAR document from r.
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{}
	var cur *Block
	inLoopHeader := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "data_"):
			cur = doc.AddBlock(strings.TrimPrefix(line, "data_"))
			inLoopHeader = false

		case line == "loop_":
			if cur == nil {
				return nil, fmt.Errorf("star: loop_ before any data_ block")
			}
			cur.Columns = []string{}
			inLoopHeader = true

		case strings.HasPrefix(line, "_"):
			if cur == nil {
				return nil, fmt.Errorf("star: field line before any data_ block")
			}
			fields := strings.Fields(line)
			key := strings.TrimPrefix(fields[0], "_")
			if inLoopHeader {
				cur.Columns = append(cur.Columns, key)
				continue
			}
			value := ""
			if len(fields) > 1 {
				value = strings.Join(fields[1:], " ")
			}
			cur.Pairs = append(cur.Pairs, Pair{Key: key, Value: value})

		default:
			if cur == nil {
				return nil, fmt.Errorf("star: data row before any data_ block")
			}
			inLoopHeader = false
			cur.Rows = append(cur.Rows, splitRow(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// splitRow splits a data row on whitespace, honoring double-quoted
// fields so a value containing spaces survives as one field.
func splitRow(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	quoted := false

	flush := func() {
		if cur.Len() > 0 || quoted {
			fields = append(fields, cur.String())
			cur.Reset()
		}
		quoted = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ' ' || r == '\t':
			if inQuotes {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}

// WriteFile writes d to path, overwriting it if it exists.
func WriteFile(path string, d *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.WriteTo(f)
}

// WriteTo serializes d in canonical textual form.
func (d *Document) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, b := range d.Blocks {
		fmt.Fprintf(bw, "\ndata_%s\n\n", b.Name)
		if b.IsLoop() {
			fmt.Fprintln(bw, "loop_")
			for i, col := range b.Columns {
				fmt.Fprintf(bw, "_%s #%d\n", col, i+1)
			}
			for _, row := range b.Rows {
				fmt.Fprintln(bw, joinRow(row))
			}
		} else {
			for _, p := range b.Pairs {
				fmt.Fprintf(bw, "_%s %s\n", p.Key, p.Value)
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func joinRow(row []string) string {
	quoted := make([]string, len(row))
	for i, f := range row {
		if f == "" || strings.ContainsAny(f, " \t") {
			quoted[i] = `"` + f + `"`
		} else {
			quoted[i] = f
		}
	}
	return strings.Join(quoted, " ")
}
