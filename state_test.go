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

import "testing"

// fakeClock backs StateEngine.stat with an in-memory map so freshness
// tests don't need to touch the real filesystem.
type fakeClock map[string]int64

func (f fakeClock) stat(path string) (int64, bool, error) {
	mtime, ok := f[path]
	return mtime, ok, nil
}

func TestStateEngine_MissingPrimaryInputIsFatal(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	se := NewStateEngine(nil)
	// a.o exists on disk (so the engine proceeds to check its inputs) but
	// a.c, its primary input, does not.
	se.stat = fakeClock{"a.o": 5}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err == nil {
		t.Fatal("CheckState: want error, a.c does not exist")
	}
}

func TestStateEngine_DirtyWhenOutputMissing(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	se := NewStateEngine(nil)
	se.stat = fakeClock{"a.c": 1}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err != nil {
		t.Fatalf("CheckState: %v", err)
	}
	if g.Nodes["a.o"].State != NodeNotExist {
		t.Errorf("State = %v, want NodeNotExist", g.Nodes["a.o"].State)
	}
	if !g.Nodes["a.o"].NeedsRebuild() {
		t.Error("NeedsRebuild() = false, want true")
	}
}

func TestStateEngine_DirtyWhenInputNewer(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	log, err := OpenCommandLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCommandLog: %v", err)
	}
	defer log.Close()

	cmd, _ := g.Nodes["a.o"].InEdge.Command()
	if err := log.Record(LogEntry{Output: "a.o", CmdHash: hashCommand(cmd), Mtime: 10}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	se := NewStateEngine(log)
	se.stat = fakeClock{"a.c": 20, "a.o": 15}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err != nil {
		t.Fatalf("CheckState: %v", err)
	}
	if g.Nodes["a.o"].State != NodeDirty {
		t.Errorf("State = %v, want NodeDirty (input newer than log's recorded mtime)", g.Nodes["a.o"].State)
	}
}

func TestStateEngine_UpToDateWhenHashAndMtimeMatch(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	log, err := OpenCommandLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCommandLog: %v", err)
	}
	defer log.Close()

	cmd, _ := g.Nodes["a.o"].InEdge.Command()
	if err := log.Record(LogEntry{Output: "a.o", CmdHash: hashCommand(cmd), Mtime: 20}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	se := NewStateEngine(log)
	se.stat = fakeClock{"a.c": 10, "a.o": 15}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err != nil {
		t.Fatalf("CheckState: %v", err)
	}
	if g.Nodes["a.o"].State != NodeUpToDate {
		t.Errorf("State = %v, want NodeUpToDate", g.Nodes["a.o"].State)
	}
}

func TestStateEngine_DiscoveredDepsTriggerRebuild(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	log, err := OpenCommandLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCommandLog: %v", err)
	}
	defer log.Close()

	// A prior run discovered a.h via the depfile; a.h is not in the recipe.
	cmd, _ := g.Nodes["a.o"].InEdge.Command()
	if err := log.Record(LogEntry{Output: "a.o", CmdHash: hashCommand(cmd), Mtime: 20, Deps: []string{"a.h"}}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	se := NewStateEngine(log)
	se.stat = fakeClock{"a.c": 10, "a.o": 15, "a.h": 30}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err != nil {
		t.Fatalf("CheckState: %v", err)
	}
	if g.Nodes["a.o"].State != NodeDirty {
		t.Errorf("State = %v, want NodeDirty (discovered header newer than output)", g.Nodes["a.o"].State)
	}

	e := g.Nodes["a.o"].InEdge
	if len(e.UpdateOnlyInputs()) != 2 {
		t.Errorf("UpdateOnlyInputs = %v, want a.c plus the discovered a.h", e.UpdateOnlyInputs())
	}
	if e.ImplicitDeps != 1 {
		t.Errorf("ImplicitDeps = %d, want 1", e.ImplicitDeps)
	}
}

func TestStateEngine_DirtyWhenCommandChanged(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	log, err := OpenCommandLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCommandLog: %v", err)
	}
	defer log.Close()

	if err := log.Record(LogEntry{Output: "a.o", CmdHash: hashCommand("a different command"), Mtime: 20}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	se := NewStateEngine(log)
	se.stat = fakeClock{"a.c": 10, "a.o": 15}.stat

	if err := se.CheckState(g.Nodes["a.o"]); err != nil {
		t.Fatalf("CheckState: %v", err)
	}
	if g.Nodes["a.o"].State != NodeDirty {
		t.Errorf("State = %v, want NodeDirty (command hash changed)", g.Nodes["a.o"].State)
	}
}
