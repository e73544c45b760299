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
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
)

// LogEntry is one output's recorded build fingerprint: the command hash
// that produced it, the output's mtime immediately after the command
// finished, and any dependencies the command reported through its
// depfile.
type LogEntry struct {
	Output  string   `json:"output"`
	CmdHash uint64   `json:"cmd_hash"`
	Mtime   int64    `json:"mtime"`
	Deps    []string `json:"deps,omitempty"`
}

// CommandLogName is the file, inside a recipe's cache directory, that
// holds the command log. The name is part of the on-disk contract.
const CommandLogName = ".cook_log"

// CommandLog is the persistent output-path -> LogEntry map: an
// append-only log file plus an in-memory map, one JSON object per line
// so a crash mid-write only corrupts its own tail, recompacted when it
// is closed. An advisory file lock guards it so concurrent cook
// invocations against the same cache directory don't interleave writes.
type CommandLog struct {
	path string

	mu      sync.Mutex
	entries map[string]*LogEntry

	file *os.File
	lock *fileLock
}

// OpenCommandLog opens (creating if absent) the command log rooted at
// dir, replaying any existing entries and taking the advisory lock that
// guards concurrent writers for the lifetime of the returned CommandLog.
// The caller must call Close when done.
func OpenCommandLog(dir string) (*CommandLog, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, wrapf("create cache dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, CommandLogName)

	lock, err := lockFile(path + ".lock")
	if err != nil {
		return nil, wrapf("lock command log: %w", err)
	}

	l := &CommandLog{path: path, entries: map[string]*LogEntry{}, lock: lock}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		lock.Unlock()
		return nil, wrapf("open command log %s: %w", path, err)
	}
	if err := l.load(f); err != nil {
		f.Close()
		lock.Unlock()
		return nil, err
	}
	l.file = f
	return l, nil
}

func (l *CommandLog) load(f *os.File) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			// A truncated final line from a crash mid-append; stop replaying
			// rather than fail the whole log.
			break
		}
		entry := e
		l.entries[e.Output] = &entry
	}
	return sc.Err()
}

// Entry returns the recorded fingerprint for output, if any.
func (l *CommandLog) Entry(output string) (LogEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[output]
	if !ok {
		return LogEntry{}, false
	}
	return *e, true
}

// Record appends a new fingerprint for output, overwriting any prior
// in-memory entry and persisting it as one appended JSON line.
func (l *CommandLog) Record(e LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return wrapf("marshal command log entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return wrapf("append command log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return wrapf("sync command log: %w", err)
	}
	entry := e
	l.entries[e.Output] = &entry
	return nil
}

// Compact rewrites the log file to hold exactly one entry per output,
// atomically replacing the prior file via renameio so a crash mid-compact
// never leaves a partially-written log in place.
func (l *CommandLog) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := renameio.TempFile("", l.path)
	if err != nil {
		return wrapf("create replacement command log: %w", err)
	}
	defer t.Cleanup()

	enc := json.NewEncoder(t)
	for _, e := range l.entries {
		if err := enc.Encode(e); err != nil {
			return wrapf("encode command log entry: %w", err)
		}
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return wrapf("replace command log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND, 0o666)
	if err != nil {
		return wrapf("reopen compacted command log: %w", err)
	}
	l.file.Close()
	l.file = f
	return nil
}

// Close writes the full table back (see Compact), closes the log file and
// releases the command log's advisory lock.
func (l *CommandLog) Close() error {
	err := l.Compact()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		if ferr := l.file.Close(); err == nil {
			err = ferr
		}
	}
	if uerr := l.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
