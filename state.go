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

import "os"

// StateEngine computes node freshness by combining on-disk mtimes, the
// persistent Command Log, and compiler-discovered implicit inputs.
type StateEngine struct {
	Log  *CommandLog
	stat func(path string) (int64, bool, error) // seam for tests
}

// NewStateEngine returns a StateEngine backed by the given Command Log
// (may be nil, meaning "treat every output as having no log entry").
func NewStateEngine(log *CommandLog) *StateEngine {
	return &StateEngine{Log: log, stat: statPath}
}

func statPath(path string) (mtime int64, exists bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return fi.ModTime().UnixNano(), true, nil
}

// CheckStateIfNeeded is a no-op once the node's state has been decided,
// otherwise it recurses into CheckState.
func (s *StateEngine) CheckStateIfNeeded(n *Node) error {
	if n.State != NodeUnknown {
		return nil
	}
	return s.CheckState(n)
}

// CheckState computes freshness for a single node in six steps,
// recursing into its producing edge's inputs as needed.
func (s *StateEngine) CheckState(n *Node) error {
	if n.InEdge == nil {
		// Step 1: a primary input. It must exist on disk; absence is fatal.
		mtime, exists, err := s.stat(n.Path)
		if err != nil {
			return wrapf("stat %s: %w", n.Path, err)
		}
		if !exists {
			return newGraphError("%s: missing and no known rule to make it", n.Path)
		}
		n.Mtime = mtime
		n.State = NodeUpToDate
		return nil
	}

	e := n.InEdge

	mtime, exists, err := s.stat(n.Path)
	if err != nil {
		return wrapf("stat %s: %w", n.Path, err)
	}
	if !exists {
		// Step 2.
		n.State = NodeNotExist
		return nil
	}
	n.Mtime = mtime

	// Step 3: fold in discovered implicit inputs from a prior run, if any,
	// inserted after the implicit-inputs region and before order-only.
	if s.Log != nil && !e.depsApplied {
		if entry, ok := s.Log.Entry(n.Path); ok && len(entry.Deps) > 0 {
			e.insertDiscoveredDeps(e.graph, entry.Deps)
		}
		e.depsApplied = true
	}

	// Step 4: recurse on update-only inputs; dirty if any needs rebuild or
	// is newer than this node.
	dirty := false
	var mostRecentInput int64 = -1
	for _, in := range e.UpdateOnlyInputs() {
		if err := s.CheckStateIfNeeded(in); err != nil {
			return err
		}
		if in.NeedsRebuild() {
			dirty = true
		} else if in.Mtime > mostRecentInput {
			mostRecentInput = in.Mtime
		}
		if in.Mtime > n.Mtime {
			dirty = true
		}
	}
	// Order-only inputs still need their own state resolved so the
	// scheduler can order dispatch around them, even though they never
	// make this node dirty by themselves.
	for i := len(e.AllInputs) - e.OrderOnlyDeps; i < len(e.AllInputs); i++ {
		if err := s.CheckStateIfNeeded(e.AllInputs[i]); err != nil {
			return err
		}
	}

	if !dirty {
		// Step 5: compare cmd-hash and most-recent-input mtime against the
		// log entry. Step 6: an existing output with no log entry is dirty,
		// since nothing proves the current command produced it.
		cmd, err := e.Command()
		if err != nil {
			return err
		}
		entry, ok := LogEntry{}, false
		if s.Log != nil {
			entry, ok = s.Log.Entry(n.Path)
		}
		if !ok {
			dirty = true
		} else if entry.CmdHash != hashCommand(cmd) {
			dirty = true
		} else if mostRecentInput > entry.Mtime {
			dirty = true
		}
	}

	if dirty {
		n.State = NodeDirty
	} else {
		n.State = NodeUpToDate
	}
	return nil
}
