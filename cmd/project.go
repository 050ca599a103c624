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

// project.go's subcommands are thin HTTP clients of the wire surface
// httpapi.Server exposes, exactly as wr's `add`/`status` subcommands are
// thin clients of jobqueue.Client rather than talking to the queue
// directly.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	projectBase         string
	projectMoviesGlob   string
	projectMdocsGlob    string
	projectSelectedJobs string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create, run and inspect crboost projects",
	Long: `The project sub-commands are thin HTTP clients that talk to a
running 'crboost serve' instance over the wire surface the browser UI
also uses. They do not touch the state store or the filesystem directly.`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project (create_project)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body := map[string]interface{}{
			"name":          args[0],
			"base":          projectBase,
			"movies_glob":   projectMoviesGlob,
			"mdocs_glob":    projectMdocsGlob,
			"selected_jobs": splitJobs(projectSelectedJobs),
		}
		result, err := postJSON("/projects", body)
		if err != nil {
			die("create project: %s", err)
		}
		printJSON(result)
	},
}

var projectOpenCmd = &cobra.Command{
	Use:   "open <name>",
	Short: "Open a project and print its current state (open_project)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := getJSON("/projects/" + args[0])
		if err != nil {
			die("open project: %s", err)
		}
		printJSON(result)
	},
}

var projectRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Start the pipeline for a project (start_pipeline)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := postJSON("/projects/"+args[0]+"/run", nil)
		if err != nil {
			die("start pipeline: %s", err)
		}
		printJSON(result)
	},
}

var projectAbortCmd = &cobra.Command{
	Use:   "abort <name>",
	Short: "Abort a project's running pipeline (abort_pipeline)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := postJSON("/projects/"+args[0]+"/abort", nil)
		if err != nil {
			die("abort pipeline: %s", err)
		}
		printJSON(result)
	},
}

var projectResetHeadCmd = &cobra.Command{
	Use:   "reset-head <name>",
	Short: "Reset a project's scheme head back to WAIT (reset_head)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := postJSON("/projects/"+args[0]+"/reset-head", nil)
		if err != nil {
			die("reset head: %s", err)
		}
		printJSON(result)
	},
}

var projectPreflightCmd = &cobra.Command{
	Use:   "preflight <name>",
	Short: "Check a project's readiness to run without starting it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := getJSON("/projects/" + args[0] + "/preflight")
		if err != nil {
			die("preflight: %s", err)
		}
		printJSON(result)
	},
}

func init() {
	RootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd, projectOpenCmd, projectRunCmd,
		projectAbortCmd, projectResetHeadCmd, projectPreflightCmd, projectScoresCmd)

	projectCreateCmd.Flags().StringVar(&projectBase, "base", "", "directory the project is created under")
	projectCreateCmd.Flags().StringVar(&projectMoviesGlob, "movies-glob", "", "glob matching raw movie files")
	projectCreateCmd.Flags().StringVar(&projectMdocsGlob, "mdocs-glob", "", "glob matching SerialEM .mdoc session files")
	projectCreateCmd.Flags().StringVar(&projectSelectedJobs, "jobs", "", "comma-separated ordered list of job kinds to select")
}

func splitJobs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// httpClient is shared by every project subcommand; shell calls the
// orchestrator itself makes get a bounded timeout, and so does this one.
var httpClient = &http.Client{Timeout: 120 * time.Second}

func getJSON(path string) (map[string]interface{}, error) {
	resp, err := httpClient.Get("http://" + serverAddr() + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

func postJSON(path string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	resp, err := httpClient.Post("http://"+serverAddr()+path, "application/json", reader)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// decodeOrError decodes resp's JSON body, turning a non-2xx status into a
// Go error carrying the server's {kind, message} errorResponse shape.
func decodeOrError(resp *http.Response) (map[string]interface{}, error) {
	var v map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		kind, _ := v["kind"].(string)
		message, _ := v["message"].(string)
		return nil, fmt.Errorf("%s: %s", kind, message)
	}
	return v, nil
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		die("format response: %s", err)
	}
	fmt.Println(string(b))
}
