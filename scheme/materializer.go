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

package scheme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/scheme/star"
)

// templatePlaceholder is the scheme name baked into the server-shipped
// job templates; every input-path reference using it is rewritten to the
// real scheme name during materialization.
const templatePlaceholder = "_template"

// JobSpec is one selected job's final, fully-wrapped command plus the
// identity the materializer needs to locate its template.
type JobSpec struct {
	Kind    project.JobKind
	Command string
}

// Floats are the scheme's three fixed float variables; ResetValue is
// always equal to the initial Value per the fixed-scheme-shape contract.
type Floats struct {
	DoAtMost  float64
	MaxtimeHr float64
	WaitSec   float64
}

var paramRowPattern = regexp.MustCompile(`^param\d+_(label|value)$`)

// Materialize emits Schemes/<schemeName>/ under destRoot: one job.star per
// entry in jobs (copied from templatesDir/<kind>/job.star, rewritten with
// its final command), plus the top-level scheme.star synthesized from the
// selection. jobs must already be in canonical pipeline order; Materialize
// does not reorder or validate ordering itself.
func Materialize(templatesDir, destRoot, schemeName string, jobs []JobSpec, floats Floats) error {
	schemeDir := filepath.Join(destRoot, "Schemes", schemeName)
	if err := os.MkdirAll(schemeDir, 0o755); err != nil {
		return fmt.Errorf("scheme: create %s: %w", schemeDir, err)
	}

	for _, job := range jobs {
		if err := materializeJob(templatesDir, schemeDir, schemeName, job); err != nil {
			return err
		}
	}

	return writeSchemeDescription(schemeDir, schemeName, jobs, floats)
}

func materializeJob(templatesDir, schemeDir, schemeName string, job JobSpec) error {
	srcPath := filepath.Join(templatesDir, string(job.Kind), "job.star")
	doc, err := star.ParseFile(srcPath)
	if err != nil {
		return fmt.Errorf("scheme: load template for %s: %w", job.Kind, err)
	}

	opts := doc.Block("joboptions_values")
	if opts == nil || !opts.IsLoop() {
		return fmt.Errorf("scheme: template for %s missing joboptions_values loop", job.Kind)
	}

	varCol := opts.ColumnIndex("rlnJobOptionVariable")
	valCol := opts.ColumnIndex("rlnJobOptionValue")
	if varCol < 0 || valCol < 0 {
		return fmt.Errorf("scheme: template for %s missing rlnJobOptionVariable/Value columns", job.Kind)
	}

	kept := opts.Rows[:0:0]
	fnExeSet, otherArgsSet := false, false
	for _, row := range opts.Rows {
		name := row[varCol]
		if paramRowPattern.MatchString(name) {
			continue
		}
		if name == "fn_exe" {
			row[valCol] = job.Command
			fnExeSet = true
		}
		if name == "other_args" {
			row[valCol] = ""
			otherArgsSet = true
		}
		row[valCol] = rewriteSchemeRefs(row[valCol], schemeName)
		kept = append(kept, row)
	}
	if !fnExeSet {
		kept = append(kept, makeRow(varCol, valCol, "fn_exe", job.Command))
	}
	if !otherArgsSet {
		kept = append(kept, makeRow(varCol, valCol, "other_args", ""))
	}
	opts.Rows = kept

	destPath := filepath.Join(schemeDir, string(job.Kind), "job.star")
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("scheme: create job directory for %s: %w", job.Kind, err)
	}
	if err := star.WriteFile(destPath, doc); err != nil {
		return fmt.Errorf("scheme: write job.star for %s: %w", job.Kind, err)
	}
	return nil
}

func makeRow(varCol, valCol int, name, value string) []string {
	n := varCol
	if valCol > n {
		n = valCol
	}
	row := make([]string, n+1)
	row[varCol] = name
	row[valCol] = value
	return row
}

func rewriteSchemeRefs(value, schemeName string) string {
	return strings.ReplaceAll(value, "Schemes/"+templatePlaceholder+"/", "Schemes/"+schemeName+"/")
}

func writeSchemeDescription(schemeDir, schemeName string, jobs []JobSpec, floats Floats) error {
	doc := &star.Document{}

	general := doc.AddBlock("scheme_general")
	general.Set("rlnSchemeName", "Schemes/"+schemeName+"/")
	general.Set("rlnSchemeCurrentNodeName", "WAIT")

	floatsBlock := doc.AddBlock("scheme_floats")
	floatsBlock.Columns = []string{
		"rlnSchemeFloatVariableName",
		"rlnSchemeFloatVariableValue",
		"rlnSchemeFloatVariableResetValue",
	}
	floatsBlock.Rows = [][]string{
		{"do_at_most", fmtFloat(floats.DoAtMost), fmtFloat(floats.DoAtMost)},
		{"maxtime_hr", fmtFloat(floats.MaxtimeHr), fmtFloat(floats.MaxtimeHr)},
		{"wait_sec", fmtFloat(floats.WaitSec), fmtFloat(floats.WaitSec)},
	}

	operators := doc.AddBlock("scheme_operators")
	operators.Columns = []string{
		"rlnSchemeOperatorName",
		"rlnSchemeOperatorType",
		"rlnSchemeOperatorOutput",
		"rlnSchemeOperatorInput1",
		"rlnSchemeOperatorInput2",
	}
	operators.Rows = [][]string{
		{"EXIT", "EXIT", "undefined", "undefined", "undefined"},
		{"EXIT_maxtime", "EXIT_MAXTIME", "undefined", "maxtime_hr", "undefined"},
		{"WAIT", "WAIT", "undefined", "wait_sec", "undefined"},
	}

	jobsBlock := doc.AddBlock("scheme_jobs")
	jobsBlock.Columns = []string{
		"rlnSchemeJobNameOriginal",
		"rlnSchemeJobName",
		"rlnSchemeJobMode",
		"rlnSchemeJobHasStarted",
	}
	for _, job := range jobs {
		name := string(job.Kind)
		jobsBlock.Rows = append(jobsBlock.Rows, []string{name, name, "continue", "0"})
	}

	edges := doc.AddBlock("scheme_edges")
	edges.Columns = []string{
		"rlnSchemeEdgeInputNodeName",
		"rlnSchemeEdgeOutputNodeName",
		"rlnSchemeEdgeIsFork",
		"rlnSchemeEdgeOutputNodeNameIfTrue",
		"rlnSchemeEdgeBooleanVariable",
	}
	chain := append([]string{"WAIT", "EXIT_maxtime"}, jobKindNames(jobs)...)
	chain = append(chain, "EXIT")
	for i := 0; i < len(chain)-1; i++ {
		edges.Rows = append(edges.Rows, []string{chain[i], chain[i+1], "0", "undefined", "undefined"})
	}

	return star.WriteFile(filepath.Join(schemeDir, "scheme.star"), doc)
}

func jobKindNames(jobs []JobSpec) []string {
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = string(j.Kind)
	}
	return names
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
