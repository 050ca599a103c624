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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Klumpe-lab/crboost-server/project"
)

// WriteQsubTemplate copies templatePath into <root>/qsub/qsub.sh,
// substituting only the cluster-defaults placeholders. `XXXoutfileXXX`,
// `XXXerrfileXXX`, and `XXXcommandXXX` are left untouched: the pipeliner
// substitutes those itself at job dispatch time.
//
// modules, if non-empty, becomes XXXmoduleXXX: a newline-joined block of
// `module load <name>` lines for every non-containerized tool this
// project's selected jobs need, so the qsub script loads them before the
// (unwrapped, host-binary) tool command runs.
func WriteQsubTemplate(templatePath, root string, defaults project.Computing, modules []string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("projectsvc: read qsub template: %w", err)
	}

	replacer := strings.NewReplacer(
		"XXXextra1XXX", strconv.Itoa(defaults.Nodes),
		"XXXextra2XXX", strconv.Itoa(defaults.NTasksPerNode),
		"XXXextra3XXX", defaults.Partition,
		"XXXextra4XXX", defaults.Gres,
		"XXXextra5XXX", defaults.Mem,
		"XXXthreadsXXX", strconv.Itoa(defaults.CPUsPerTask),
		"XXXmoduleXXX", moduleLoadBlock(modules),
	)

	destPath := filepath.Join(root, "qsub", "qsub.sh")
	if err := os.WriteFile(destPath, []byte(replacer.Replace(string(data))), 0o644); err != nil {
		return fmt.Errorf("projectsvc: write qsub template: %w", err)
	}
	return nil
}

// moduleLoadBlock renders modules (deduplicated, order preserved) as
// newline-joined `module load <name>` lines, or "" if modules is empty.
func moduleLoadBlock(modules []string) string {
	seen := make(map[string]bool, len(modules))
	var lines []string
	for _, m := range modules {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		lines = append(lines, "module load "+m)
	}
	return strings.Join(lines, "\n")
}
