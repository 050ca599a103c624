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

package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/watch"
)

// upgrader has no origin check beyond the default same-origin policy,
// matching jobqueue/serverWebI.go's own webSocket() upgrader: the UI is
// served from the same origin as the API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const wsWriteTimeout = 10 * time.Second

// progressWS implements the GET /projects/{name}/progress websocket: it
// upgrades the connection, subscribes to the project's Progress Watcher,
// and pushes every watch.Event the watcher broadcasts until the client
// disconnects. A project that was never started has no Watcher yet; that
// is reported as not_running rather than upgrading to a connection that
// would never receive anything.
func (s *Server) progressWS(w http.ResponseWriter, r *http.Request, name string) {
	watcher := s.watcherFor(name)
	if watcher == nil {
		writeError(w, &project.Error{Op: "progress", Kind: project.KindNotRunning, Message: "no pipeline run has ever been started for this project"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Warn("websocket upgrade failed", "project", name, "err", err)
		return
	}
	defer conn.Close()

	member := watcher.Subscribe()
	defer member.Close()

	stop := make(chan struct{})
	go s.drainClientReads(conn, stop)

	for {
		select {
		case <-stop:
			return
		case raw := <-member.In:
			event, ok := raw.(*watch.Event)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.Debug("websocket write failed, ending progress stream", "project", name, "err", err)
				return
			}
		}
	}
}

// drainClientReads discards whatever the browser client sends (this
// stream is server-to-client only) so the connection's read side notices
// a close or error promptly, then closes stop to end the write loop, the
// same role jobqueue/serverWebI.go's own read-pump goroutine plays.
func (s *Server) drainClientReads(conn *websocket.Conn, stop chan struct{}) {
	defer internal.LogPanic(s.Logger, "progress websocket read pump", false)
	defer close(stop)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
