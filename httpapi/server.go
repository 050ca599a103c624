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
	crand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/inconshreveable/log15"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/Klumpe-lab/crboost-server/cluster/slurm"
	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/Klumpe-lab/crboost-server/pipeline"
	"github.com/Klumpe-lab/crboost-server/project"
	"github.com/Klumpe-lab/crboost-server/watch"
)

const (
	caFileName     = "ca.pem"
	serverPemName  = "server.pem"
	serverKeyName  = "server.key"
	httpReadHeaderTimeout = 10 * time.Second
)

// Server is C10: it owns the project.Store, the per-project Pipeline
// Runners and Progress Watchers it starts on demand, and the
// net/http.Server that fronts all of it.
type Server struct {
	cfg       *internal.Config
	store     *project.Store
	scheduler *slurm.Backend
	log15.Logger

	httpServer *http.Server

	mu       deadlock.Mutex
	runners  map[string]*pipeline.Runner
	watchers map[string]*watch.Watcher
}

// NewServer wires a Server from cfg. It does not start listening; call
// Serve for that, or use the returned Server's Handler for testing.
func NewServer(cfg *internal.Config, logger log15.Logger) *Server {
	var scheduler *slurm.Backend
	if cfg.SlurmDefaults != (internal.SlurmDefaults{}) {
		scheduler = slurm.New(logger)
	}

	return &Server{
		cfg:       cfg,
		store:     project.NewStore(),
		scheduler: scheduler,
		Logger:    logger,
		runners:   make(map[string]*pipeline.Runner),
		watchers:  make(map[string]*watch.Watcher),
	}
}

// Handler returns the fully-routed mux, for use by tests and by Serve.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/projects", s.handleProjectsCollection)
	mux.HandleFunc("/projects/", s.handleProjectsItem)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Serve builds a Server from cfg and blocks serving HTTP (or HTTPS, if
// cfg.TLSEnabled) until the process is killed or Shutdown is called.
// This is what cmd/serve.go's runServer invokes.
func Serve(cfg *internal.Config, logger log15.Logger) error {
	s := NewServer(cfg, logger)

	addr := cfg.ServerHost + ":" + cfg.ServerPort
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	if !cfg.TLSEnabled {
		logger.Info("crboost httpapi listening", "addr", addr, "tls", false)
		return s.httpServer.ListenAndServe()
	}

	certFile, keyFile, err := s.ensureCerts()
	if err != nil {
		return fmt.Errorf("httpapi: prepare TLS certificates: %w", err)
	}
	logger.Info("crboost httpapi listening", "addr", addr, "tls", true)
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// ensureCerts returns the server cert/key pair under cfg.ServerDir,
// generating a fresh self-signed CA and server certificate on first
// start per internal/cert.go (grounded on wr's --tls manager startup).
func (s *Server) ensureCerts() (certFile, keyFile string, err error) {
	caFile := filepath.Join(s.cfg.ServerDir, caFileName)
	certFile = filepath.Join(s.cfg.ServerDir, serverPemName)
	keyFile = filepath.Join(s.cfg.ServerDir, serverKeyName)

	if err := internal.CheckCerts(certFile, keyFile); err == nil {
		if expiry, err := internal.CertExpiry(certFile); err == nil && time.Now().Before(expiry) {
			return certFile, keyFile, nil
		}
		s.Info("existing TLS certificate is expired or unreadable, regenerating", "path", certFile)
	}

	if err := os.MkdirAll(s.cfg.ServerDir, 0o755); err != nil {
		return "", "", err
	}
	// A partially-created or expired set would make GenerateCerts refuse
	// with ErrCertExists; clear it first.
	_ = os.Remove(caFile)
	_ = os.Remove(certFile)
	_ = os.Remove(keyFile)

	if err := internal.GenerateCerts(caFile, certFile, keyFile, s.cfg.TLSDomain,
		internal.DefaultBitsForRootRSAKey, internal.DefualtBitsForServerRSAKey, crand.Reader, internal.DefaultCertFileFlags); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

// Shutdown stops every project's Progress Watcher and then closes the HTTP
// server immediately (http.Server.Close). Pipeline Runners, and the
// pipeliner processes they launched, are left running.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	for name, w := range s.watchers {
		w.Stop()
		delete(s.watchers, name)
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// runnerFor returns the Runner for an open project, creating one with
// fresh Options derived from cfg and the project's own globals if this is
// the first time this process has touched that project.
func (s *Server) runnerFor(name string, opts pipeline.Options) *pipeline.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.runners[name]; ok {
		return r
	}
	r := pipeline.New(opts, s.Logger.New("project", name))
	s.runners[name] = r
	return r
}

// watcherFor returns the already-running Watcher for a project, or nil.
func (s *Server) watcherFor(name string) *watch.Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchers[name]
}

func (s *Server) setWatcher(name string, w *watch.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[name] = w
}
