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
	"fmt"

	"golang.org/x/xerrors"
)

// ParseError is a fatal error encountered while reading a recipe file.
// It always carries the file and line number it was found on.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

func newParseError(file string, line int, format string, a ...interface{}) error {
	return &ParseError{File: file, Line: line, Message: fmt.Sprintf(format, a...)}
}

// GraphError is a fatal error about the build graph. Graph construction
// raises it for an unknown rule reference, a duplicate output producer,
// a zero job count, or a dependency cycle; planning and running raise it
// for an unknown target, a missing primary input, a template expansion
// error, an output missing after its command succeeded, or a build that
// can make no further progress.
type GraphError struct {
	Message string
}

func (e *GraphError) Error() string { return e.Message }

func newGraphError(format string, a ...interface{}) error {
	return &GraphError{Message: fmt.Sprintf(format, a...)}
}

// BuildError is a fatal error raised when a worker reports a failure: a
// non-zero exit code, or an error spawning the command or reading its
// depfile. It always
// carries the edge's description and, if a command was involved, its
// fully expanded form.
type BuildError struct {
	Description string
	Command     string
	Output      string
	ExitCode    int
}

func (e *BuildError) Error() string {
	if e.Command == "" {
		return e.Description
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: %s (exit status %d)\n%s", e.Description, e.Command, e.ExitCode, e.Output)
	}
	return fmt.Sprintf("%s: %s\n%s", e.Description, e.Command, e.Output)
}

// wrapf mirrors xerrors.Errorf so every fallible layer of cook attaches
// context the same way, regardless of whether the chain started in this
// package or in an x/sys or os call.
func wrapf(format string, a ...interface{}) error {
	return xerrors.Errorf(format, a...)
}
