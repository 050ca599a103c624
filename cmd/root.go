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

// this is the cobra file that enables subcommands and handles command-line args

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/Klumpe-lab/crboost-server/internal"
	"github.com/inconshreveable/log15"
	"github.com/sb10/l15h"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
)

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// config is populated by initConfig and read by every subcommand.
var config *internal.Config

// these flags are shared by some of the subcommands.
var host string
var port string
var debug bool

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "crboost",
	Short: "crboost is a headnode-resident orchestrator for cryo-ET processing pipelines.",
	Long: `crboost drives RELION/WARP-style cryo-electron tomography processing
pipelines on a SLURM cluster from a single headnode process.

Start the server, which maintains the project state store and accepts HTTP
and WebSocket connections from clients:
$ crboost serve

Then use the other subcommands, or the web interface, to create and run
projects.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// for RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err.Error())
	}
}

func init() {
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))

	RootCmd.PersistentFlags().StringVar(&host, "host", "", "server host (overrides config server_host)")
	RootCmd.PersistentFlags().StringVar(&port, "port", "", "server port (overrides config server_port)")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cobra.OnInitialize(initConfig)
}

// initConfig reads in config files and environment variables.
func initConfig() {
	cfg, err := internal.ConfigLoad(appLogger)
	if err != nil {
		die("could not load config: %s", err)
	}
	if host != "" {
		cfg.ServerHost = host
	}
	if port != "" {
		cfg.ServerPort = port
	}
	config = cfg
}

// serverAddr returns the host:port of the server our clients should talk to.
func serverAddr() string {
	h := config.ServerHost
	if h == "0.0.0.0" {
		h = "localhost"
	}
	return h + ":" + config.ServerPort
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(msg string, a ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}

// createWorkingDir ensures the server's working directory is available.
func createWorkingDir() {
	if config.ServerDir == "" {
		return
	}
	_, err := os.Stat(config.ServerDir)
	if err != nil {
		if os.IsNotExist(err) {
			if merr := os.MkdirAll(config.ServerDir, os.ModePerm); merr != nil {
				die("could not create the working directory '%s': %v", config.ServerDir, merr)
			}
		} else {
			die("could not access or create the working directory '%s': %v", config.ServerDir, err)
		}
	}
}

// daemonize spawns a child copy of ourselves to run the server in the
// background.
func daemonize(pidFile string, extraArgs ...string) (*os.Process, *daemon.Context) {
	args := append([]string{}, os.Args...)
	args = append(args, extraArgs...)

	context := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		WorkDir:     "/",
		Args:        args,
	}

	child, err := context.Reborn()
	if err != nil {
		errr := os.Remove(pidFile)
		if errr != nil && !os.IsNotExist(errr) {
			warn("failed to delete existing pid file: %s", errr)
		}

		child, err = context.Reborn()
		if err != nil {
			die("failed to daemonize: %s", err)
		}
	}
	return child, context
}

// stopdaemon stops the daemon created by daemonize() by sending it SIGTERM
// and checking it really exited.
func stopdaemon(pid int, source string) bool {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err != nil {
		warn("crboost server is running with pid %d according to %s, but failed to send it SIGTERM: %s", pid, source, err)
		return false
	}

	giveupseconds := 30
	giveup := time.After(time.Duration(giveupseconds) * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	stopped := make(chan bool, 1)
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := syscall.Kill(pid, syscall.Signal(0)); err == nil {
					continue
				}
				ticker.Stop()
				stopped <- true
				return
			case <-giveup:
				ticker.Stop()
				stopped <- false
				return
			}
		}
	}()
	ok := <-stopped

	if !ok {
		warn("crboost server, running with pid %d according to %s, is still running %ds after I sent it a SIGTERM", pid, source, giveupseconds)
	}

	return ok
}

// setupLogging returns a new logger whose verbosity depends on debug.
func setupLogging(debug bool) log15.Logger {
	myLogger := log15.New()
	logLevel := log15.LvlInfo
	if debug {
		logLevel = log15.LvlDebug
	}
	myLogger.SetHandler(log15.LvlFilterHandler(logLevel, l15h.CallerInfoHandler(log15.StderrHandler)))
	return myLogger
}
