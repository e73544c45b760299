// Copyright 2012 Google Inc. All Rights Reserved.
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
	"os"
	"path/filepath"
	"testing"
)

func TestCleaner_RemovesOutputsAndDepfile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.o", "out.d"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}

	src := `rule cc
	command gcc -c $in -o $out
	depfile out.d
	deps gcc

build cc
	input a.c
	output a.o
`
	r, err := ParseRecipe(filepath.Join(dir, "t.recipe"), []byte(src))
	if err != nil {
		t.Fatalf("ParseRecipe: %v", err)
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	c := NewCleaner(r)
	if err := c.Clean(g); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for _, name := range []string{"a.o", "out.d"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s still exists after Clean", name)
		}
	}
	if c.CleanedFilesCount() != 2 {
		t.Errorf("CleanedFilesCount() = %d, want 2", c.CleanedFilesCount())
	}
}

func TestCleaner_DryRunDoesNotRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.o"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	src := "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n"
	r, err := ParseRecipe(filepath.Join(dir, "t.recipe"), []byte(src))
	if err != nil {
		t.Fatalf("ParseRecipe: %v", err)
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	c := NewCleaner(r)
	c.DryRun = true
	if err := c.Clean(g); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.o")); err != nil {
		t.Errorf("a.o removed during dry run: %v", err)
	}
	if c.CleanedFilesCount() != 1 {
		t.Errorf("CleanedFilesCount() = %d, want 1", c.CleanedFilesCount())
	}
}

func TestCleaner_RemovesCommandLog(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, ".cook")
	log, err := OpenCommandLog(cacheDir)
	if err != nil {
		t.Fatalf("OpenCommandLog: %v", err)
	}
	if err := log.Record(LogEntry{Output: "a.o", CmdHash: 1, Mtime: 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	src := "cacheDir " + cacheDir + "\n\nrule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n"
	r, err := ParseRecipe(filepath.Join(dir, "t.recipe"), []byte(src))
	if err != nil {
		t.Fatalf("ParseRecipe: %v", err)
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	c := NewCleaner(r)
	if err := c.Clean(g); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, CommandLogName)); !os.IsNotExist(err) {
		t.Error("log file still exists after Clean")
	}
}
