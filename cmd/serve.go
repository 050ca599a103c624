// Copyright © 2016-2017 Genome Research Limited
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

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Klumpe-lab/crboost-server/httpapi"
	"github.com/inconshreveable/log15"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
)

// options for the serve sub-command
var foreground bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crboost server",
	Long: `Run the crboost server.

The server works in the background, doing all the work of tracking project
state, materializing schemes, launching the pipeliner that submits jobs to
SLURM and watching for their progress. It serves an HTTP/WebSocket API that the crboost CLI and web
interface both use.

You'll need to start this daemon with the 'start' sub-command before you can
achieve anything useful with the other crboost commands. If the background
process that is spawned when you run this dies, any running pipelines will
stop being watched until you run 'start' again.`,
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the crboost server",
	Long:  `Start the crboost server, daemonizing it in to the background (unless --foreground is supplied).`,
	Run: func(cmd *cobra.Command, args []string) {
		createWorkingDir()

		if isServerUp() {
			die("crboost server on %s is already running", serverAddr())
		}

		if err := config.Validate(); err != nil {
			die("invalid config: %s", err)
		}

		if foreground {
			runServer(setupLogging(debug))
			return
		}

		child, context := daemonize(pidFilePath())
		if child != nil {
			if !waitForServer(10 * time.Second) {
				die("crboost server failed to start on %s after 10s", serverAddr())
			}
			info("crboost server started on %s, pid %d", serverAddr(), child.Pid)
		} else {
			defer context.Release()
			runServer(setupLogging(debug))
		}
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the crboost server",
	Long:  `Immediately stop the crboost server.`,
	Run: func(cmd *cobra.Command, args []string) {
		pid, err := daemon.ReadPidFile(pidFilePath())
		if err != nil {
			die("crboost server does not seem to be running: could not read pid file %s", pidFilePath())
		}

		if stopdaemon(pid, "pid file "+pidFilePath()) {
			info("crboost server running with pid %d was gracefully shut down", pid)
			return
		}
		info("I've tried everything; giving up trying to stop the server with pid %d", pid)
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the crboost server",
	Long:  `Find out if the crboost server is currently running or not.`,
	Run: func(cmd *cobra.Command, args []string) {
		if isServerUp() {
			fmt.Println("running on " + serverAddr())
			return
		}
		fmt.Println("stopped")
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)

	serveStartCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "do not daemonize")
}

func pidFilePath() string {
	dir := config.ServerDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "crboost.pid")
}

// isServerUp does a quick health check against a running server.
func isServerUp() bool {
	client := http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + serverAddr() + "/healthz")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func waitForServer(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if isServerUp() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func runServer(logger log15.Logger) {
	if err := httpapi.Serve(config, logger); err != nil {
		die("crboost server on %s exited unexpectedly: %s", serverAddr(), err)
	}
}
