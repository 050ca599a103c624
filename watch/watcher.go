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

package watch

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/grafov/bcast"
	"github.com/inconshreveable/log15"

	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/Klumpe-lab/crboost-server/project"
)

// degradedThreshold is the number of consecutive failed polls after which
// a watcher reports itself degraded rather than quietly retrying forever.
const degradedThreshold = 5

// Aggregate is the per-run roll-up of every selected job's status.
type Aggregate struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
}

// Complete reports whether every selected job has reached a terminal
// status (succeeded or failed; aborted counts as failed for this count).
func (a Aggregate) Complete() bool {
	return a.Total > 0 && a.Succeeded+a.Failed == a.Total
}

// Event is one update pushed to subscribers: either a per-job status
// delta, a degraded-watcher warning, or both (Message is set only for a
// warning).
type Event struct {
	ProjectName string                        `json:"project_name"`
	Statuses    map[project.JobKind]project.JobStatus `json:"statuses,omitempty"`
	Aggregate   Aggregate                     `json:"aggregate"`
	Degraded    bool                          `json:"degraded"`
	Message     string                        `json:"message,omitempty"`
}

// Watcher polls one project's processes file on a ticker and broadcasts
// an Event carrying the full derived statuses to every Subscribe()r after
// every successful read of that file.
type Watcher struct {
	projectName string
	projectRoot string
	selected    []project.JobKind
	store       *project.Store
	interval    time.Duration
	log15.Logger

	group      *bcast.Group
	stop       chan struct{}
	stopped    chan struct{}
	consecFail int
}

// NewWatcher returns a Watcher for projectName, rooted at projectRoot,
// tracking selected. It does not start polling until Start is called.
func NewWatcher(store *project.Store, projectName, projectRoot string, selected []project.JobKind, interval time.Duration, logger log15.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	group := bcast.NewGroup()
	group.Broadcasting(0)
	return &Watcher{
		projectName: projectName,
		projectRoot: projectRoot,
		selected:    selected,
		store:       store,
		interval:    interval,
		Logger:      logger,
		group:       group,
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Subscribe joins the watcher's broadcast group. Callers must Close the
// returned *bcast.Member when done listening on its In channel.
func (w *Watcher) Subscribe() *bcast.Member {
	return w.group.Join()
}

// Start runs the poll loop in a new goroutine. It returns immediately.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends the poll loop and closes the broadcast group; it blocks until
// the poll goroutine has exited.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.stopped
	w.group.Close()
}

func (w *Watcher) run() {
	defer internal.LogPanic(w.Logger, "progress watcher poll loop", false)
	defer close(w.stopped)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	processesPath := path.Join(w.projectRoot, ProcessesFileName)
	rows, err := ReadProcesses(processesPath)
	if err != nil {
		w.consecFail++
		w.Warn("failed to read processes file", "path", processesPath, "err", err, "consecutive_failures", w.consecFail)
		if w.consecFail == degradedThreshold {
			w.group.Send(&Event{
				ProjectName: w.projectName,
				Degraded:    true,
				Message:     "progress watcher has failed to read the processes file " + fmtTimes(degradedThreshold) + " times in a row",
			})
		}
		return
	}
	w.consecFail = 0

	statuses := DeriveStatuses(w.selected, rows)
	agg := aggregate(statuses)

	for kind, status := range statuses {
		if err := w.store.SetJobStatus(w.projectName, kind, status); err != nil {
			w.Warn("failed to record derived job status", "kind", kind, "status", status, "err", err)
		}
	}

	w.group.Send(&Event{ProjectName: w.projectName, Statuses: statuses, Aggregate: agg})
}

// DeriveStatuses maps the pipeliner's processes rows onto project
// JobStatus values for every selected JobKind. A selected kind absent
// from the processes file (not yet dispatched) is scheduled, not
// not_scheduled: not_scheduled only ever describes a kind that isn't
// selected at all, which this loop never visits. Exported so open_project
// can re-derive statuses from the same processes file the poll loop reads,
// without the project package importing this one.
func DeriveStatuses(selected []project.JobKind, rows []ProcessRow) map[project.JobKind]project.JobStatus {
	byKind := make(map[project.JobKind]string, len(rows))
	for _, row := range rows {
		kind := kindFromRowName(row.Name)
		if kind != "" {
			byKind[kind] = row.Status
		}
	}

	statuses := make(map[project.JobKind]project.JobStatus, len(selected))
	for _, kind := range selected {
		label, ok := byKind[kind]
		if !ok {
			statuses[kind] = project.StatusScheduled
			continue
		}
		statuses[kind] = mapSchemeStatus(label)
	}
	return statuses
}

func mapSchemeStatus(label string) project.JobStatus {
	switch label {
	case SchemeStatusScheduled:
		return project.StatusScheduled
	case SchemeStatusRunning:
		return project.StatusRunning
	case SchemeStatusSucceeded:
		return project.StatusSucceeded
	case SchemeStatusFailed:
		return project.StatusFailed
	case SchemeStatusAborted:
		return project.StatusAborted
	default:
		return project.StatusScheduled
	}
}

// kindFromRowName recovers the JobKind a processes-table row refers to
// from its scheme-relative directory name
// ("Schemes/<scheme>/<kind>/"), returning "" if the trailing path
// component isn't a recognized JobKind.
func kindFromRowName(name string) project.JobKind {
	trimmed := strings.TrimSuffix(name, "/")
	kind := project.JobKind(path.Base(trimmed))
	if project.ValidJobKind(kind) {
		return kind
	}
	return ""
}

func aggregate(statuses map[project.JobKind]project.JobStatus) Aggregate {
	agg := Aggregate{Total: len(statuses)}
	for _, status := range statuses {
		switch status {
		case project.StatusRunning:
			agg.Running++
		case project.StatusSucceeded:
			agg.Succeeded++
		case project.StatusFailed, project.StatusAborted:
			agg.Failed++
		}
	}
	return agg
}

func fmtTimes(n int) string {
	if n == 1 {
		return "1 time"
	}
	return strconv.Itoa(n) + " times"
}
