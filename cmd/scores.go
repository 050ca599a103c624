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

package cmd

// scores.go implements `crboost project scores`, grounded on
// original_source/compare_scores.py: that script reads the small JSON
// sidecar a template-matching/candidate-extraction job writes next to its
// (large, binary) score volume and reports the volume's search-noise
// statistic. We only ever read that sidecar JSON, never the volume
// itself, so this stays within the "no scientific file format parsing"
// non-goal: it formats numbers the tool already computed and wrote out.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// searchStdKeys are, in order of preference, the JSON keys
// compare_scores.py checks for a job's search-noise statistic. Different
// tool versions have used different names for the same quantity.
var searchStdKeys = []string{"SearchStd", "search_std", "score_std", "std", "sigma"}

// scoreEntry is one row of the ranked table: a template-matching or
// candidate-extraction job's output directory and the search statistic
// recorded in its <name>_job.json sidecar.
type scoreEntry struct {
	Path        string
	SearchStd   float64
	HasStd      bool
	VolumeBytes uint64
	HasVolume   bool
}

// volumeSizeFor stats the (large, binary) score volume that sits next to
// jsonPath's sidecar, trying each of the extensions template
// matching/candidate extraction tools have used for that volume. Only the
// size is ever read, never the contents.
func volumeSizeFor(jsonPath string) (uint64, bool) {
	base := strings.TrimSuffix(jsonPath, "_job.json")
	for _, ext := range []string{".mrc", ".map", ".mrcs"} {
		if fi, err := os.Stat(base + ext); err == nil {
			return uint64(fi.Size()), true
		}
	}
	return 0, false
}

var projectScoresCmd = &cobra.Command{
	Use:   "scores <project-path>",
	Short: "Print a ranked table of template-matching search statistics",
	Long: `scores walks <project-path>/External/job*/tmResults for
*_job.json sidecar files written by template_matching/extract_candidates
jobs, extracts each one's search-noise statistic, and prints them ranked
highest first. This is read-only: it never touches project state and
never parses the accompanying score volumes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := collectScores(args[0])
		if err != nil {
			die("scores: %s", err)
		}
		if len(entries) == 0 {
			fmt.Println("no tmResults job.json sidecars found")
			return
		}
		printScoreTable(entries)
	},
}

// collectScores globs every tmResults/*_job.json file under root and
// parses each for its search-noise statistic, sorted descending so the
// noisiest (and therefore least reliable) results surface first.
func collectScores(root string) ([]scoreEntry, error) {
	matches, err := filepath.Glob(filepath.Join(root, "External", "job*", "tmResults", "*_job.json"))
	if err != nil {
		return nil, fmt.Errorf("glob tmResults sidecars: %w", err)
	}

	entries := make([]scoreEntry, 0, len(matches))
	for _, m := range matches {
		std, ok, err := readSearchStd(m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		volBytes, hasVol := volumeSizeFor(m)
		entries = append(entries, scoreEntry{Path: m, SearchStd: std, HasStd: ok, VolumeBytes: volBytes, HasVolume: hasVol})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SearchStd > entries[j].SearchStd
	})
	return entries, nil
}

// readSearchStd parses path's JSON and looks for a search-noise value
// either at the top level or nested one level under one of a handful of
// conventional container keys, matching compare_scores.py's
// load_search_std.
func readSearchStd(path string) (value float64, found bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, false, err
	}

	if v, ok := numericFieldAny(doc, searchStdKeys); ok {
		return v, true, nil
	}

	for _, container := range []string{"search", "match", "template_matching", "result", "statistics"} {
		if nested, ok := doc[container].(map[string]interface{}); ok {
			if v, ok := numericFieldAny(nested, searchStdKeys); ok {
				return v, true, nil
			}
		}
	}

	return 0, false, nil
}

// numericFieldAny returns the first of keys present in doc as a float64.
func numericFieldAny(doc map[string]interface{}, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := doc[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func printScoreTable(entries []scoreEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Job Output", "Search Std", "Volume Size"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, e := range entries {
		std := "unknown"
		if e.HasStd {
			std = fmt.Sprintf("%.4f", e.SearchStd)
		}
		size := "-"
		if e.HasVolume {
			size = bytefmt.ByteSize(e.VolumeBytes)
		}
		table.Append([]string{fmt.Sprintf("%d", i+1), e.Path, std, size})
	}
	table.Render()
}
