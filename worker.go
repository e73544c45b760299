// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cook

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// CmdRule is the immutable snapshot a Worker receives: everything it
// needs to run one edge's command without touching the graph. Workers
// never see the *Edge or *Graph themselves.
type CmdRule struct {
	Name       string
	Command    string
	Depfile    string
	DepsFormat DepsFormat
}

// WorkResult is the single message a Worker posts back to the
// scheduler: either a successful Completion (Err == nil) carrying any
// discovered deps, or a Failure carrying the captured output and exit
// code.
type WorkResult struct {
	Output   []byte
	Deps     []string
	ExitCode int
	Err      error
}

// runCommand implements the Worker's four steps: tokenize,
// spawn with stdin from the null device and stdout+stderr joined into one
// buffer, wait, then read the depfile if the rule declares gcc deps. It
// never mutates graph or log state; the caller (Scheduler) does that
// with the returned WorkResult.
func runCommand(ctx context.Context, r CmdRule) WorkResult {
	argv := splitCommandLine(r.Command)
	if len(argv) == 0 {
		return WorkResult{Err: newGraphError("empty command for %q", r.Name)}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return WorkResult{Err: wrapf("open null device: %w", err)}
	}
	defer devNull.Close()
	cmd.Stdin = devNull

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()

	res := WorkResult{Output: out.Bytes()}
	if runErr != nil {
		res.Err = runErr
		if ee, ok := runErr.(*exec.ExitError); ok {
			res.ExitCode = ee.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res
	}

	if r.DepsFormat == DepsGCC {
		if r.Depfile == "" {
			res.Err = newGraphError("rule %q declares deps=gcc but no depfile", r.Name)
			return res
		}
		content, err := os.ReadFile(r.Depfile)
		if err != nil {
			res.Err = wrapf("read depfile %s: %w", r.Depfile, err)
			return res
		}
		deps, err := parseDepfile(content, "")
		if err != nil {
			res.Err = wrapf("parse depfile %s: %w", r.Depfile, err)
			return res
		}
		res.Deps = dedupStrings(deps)
	}

	return res
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
