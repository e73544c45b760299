// Copyright 2016 Google Inc. All Rights Reserved.
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
	"io"
	"os"
	"regexp"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// LinePrinter prints progress lines to a writer, overprinting the
// previous line in place on a smart (interactive) terminal and emitting
// one line per call otherwise: verbose mode wants a plain per-line
// trail, not a twitching status line. Targets ANSI terminals and dumb
// pipes; there is no Win32 console-buffer path.
type LinePrinter struct {
	out           io.Writer
	smart         bool
	haveBlankLine bool
}

// NewLinePrinter detects whether out is an interactive terminal (a TTY
// whose $TERM is not "dumb") and configures overwrite-in-place behavior
// accordingly.
func NewLinePrinter(out *os.File) *LinePrinter {
	smart := false
	if isatty.IsTerminal(out.Fd()) && os.Getenv("TERM") != "dumb" {
		smart = true
	}
	return &LinePrinter{out: out, smart: smart, haveBlankLine: true}
}

// Print shows a status line, overwriting the previous one when the
// terminal is smart, eliding it to the terminal width first.
func (p *LinePrinter) Print(line string) {
	if p.smart {
		if f, ok := p.out.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				line = elideMiddle(line, w)
			}
		}
		fmt.Fprintf(p.out, "\r%s\x1B[K", line)
		p.haveBlankLine = false
		return
	}
	fmt.Fprintln(p.out, line)
}

// PrintOnNewLine flushes any in-progress overwritten status line to a
// permanent line of output before printing toPrint, so build output
// never gets clobbered by the next status update.
func (p *LinePrinter) PrintOnNewLine(toPrint string) {
	if !p.haveBlankLine {
		fmt.Fprint(p.out, "\n")
		p.haveBlankLine = true
	}
	if toPrint != "" {
		fmt.Fprint(p.out, toPrint)
		p.haveBlankLine = toPrint[len(toPrint)-1] == '\n'
	}
}

func elideMiddle(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width < 5 {
		return s[:width]
	}
	half := (width - 3) / 2
	return s[:half] + "..." + s[len(s)-(width-3-half):]
}

var ansiEscapeRE = regexp.MustCompile("\x1B\\[[0-9;]*[a-zA-Z]")

// stripAnsiEscapeCodes removes ISO 6429 (ANSI) color sequences, used
// when writing subprocess output to a non-smart destination: compilers
// like clang colorize unconditionally when they detect a pty, and cook
// must not leak raw escapes into a log file or dumb pipe.
func stripAnsiEscapeCodes(s string) string {
	return ansiEscapeRE.ReplaceAllString(s, "")
}

// Status reports build progress to the user: the events the Scheduler
// actually emits, nothing more.
type Status struct {
	printer *LinePrinter
	verbose bool

	total, started, finished int
}

// NewStatus constructs a Status printing to stdout. verbose disables
// the overwritten status line and always prints the full command
// instead of the rule's description.
func NewStatus(verbose bool) *Status {
	p := NewLinePrinter(os.Stdout)
	if verbose {
		p.smart = false
	}
	return &Status{printer: p, verbose: verbose}
}

// PlanHasTotalEdges records the number of edges the scheduler plans to
// run, for the "[f/t]" progress prefix.
func (s *Status) PlanHasTotalEdges(total int) { s.total = total }

// EdgeStarted prints a progress line for e as it is dispatched.
func (s *Status) EdgeStarted(e *Edge) {
	s.started++
	desc, _ := e.Description()
	cmd, _ := e.Command()
	toPrint := desc
	if toPrint == "" || s.verbose {
		toPrint = cmd
	}
	s.printer.Print(fmt.Sprintf("[%d/%d] %s", s.started, s.total, toPrint))
}

// EdgeFinished reports e's outcome, echoing its captured output (ANSI
// codes stripped when the destination isn't a smart terminal) and, on
// failure, the failing command line.
func (s *Status) EdgeFinished(e *Edge, success bool, output string) {
	s.finished++
	if !success {
		cmd, _ := e.Command()
		s.printer.PrintOnNewLine("FAILED: " + cmd + "\n")
	}
	if output != "" {
		if !s.printer.smart {
			output = stripAnsiEscapeCodes(output)
		}
		s.printer.PrintOnNewLine(output)
	}
}

// BuildFinished ensures the cursor is left on a fresh line once the
// build loop exits, success or failure.
func (s *Status) BuildFinished() {
	s.printer.PrintOnNewLine("")
}

func (s *Status) Info(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "cook: "+format+"\n", a...)
}

func (s *Status) Warning(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "cook: warning: "+format+"\n", a...)
}

func (s *Status) Error(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "cook: error: "+format+"\n", a...)
}
