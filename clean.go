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
	"os"
	"path/filepath"
)

// Cleaner removes every output the recipe knows how to produce, its
// depfile, and finally the command log itself, so the next build
// starts from scratch.
type Cleaner struct {
	Recipe *Recipe

	Verbose bool
	DryRun  bool

	removed map[string]bool
	count   int
}

// NewCleaner returns a Cleaner for the given recipe.
func NewCleaner(r *Recipe) *Cleaner {
	return &Cleaner{Recipe: r, removed: map[string]bool{}}
}

// CleanedFilesCount reports how many files the last Clean call removed
// (or, in dry-run mode, would have removed).
func (c *Cleaner) CleanedFilesCount() int { return c.count }

// Clean walks every node with an in_edge (every declared output),
// removes its path and its rule's depfile, prunes the directory if that
// leaves it empty, then deletes the command-log file (and its lock
// file) from the recipe's cache directory.
func (c *Cleaner) Clean(g *Graph) error {
	c.removed = map[string]bool{}
	c.count = 0

	for _, e := range g.Edges {
		for _, out := range e.AllOutputs {
			if err := c.remove(out.Path); err != nil {
				return err
			}
		}
		if depfile, err := e.Depfile(); err == nil && depfile != "" {
			if err := c.remove(depfile); err != nil {
				return err
			}
		}
	}

	cacheDir := c.Recipe.CacheDir
	if cacheDir == "" {
		cacheDir = "."
	}
	logPath := filepath.Join(cacheDir, CommandLogName)
	if err := c.remove(logPath); err != nil {
		return err
	}
	if err := c.remove(logPath + ".lock"); err != nil {
		return err
	}

	return nil
}

func (c *Cleaner) remove(path string) error {
	if c.removed[path] {
		return nil
	}
	c.removed[path] = true

	if c.DryRun {
		if _, err := os.Stat(path); err == nil {
			c.report(path)
		}
		return nil
	}

	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapf("remove %s: %w", path, err)
	}
	c.report(path)

	dir := filepath.Dir(path)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		os.Remove(dir) // best effort; a non-empty race loser is not an error
	}
	return nil
}

func (c *Cleaner) report(path string) {
	c.count++
	if c.Verbose {
		os.Stdout.WriteString("Remove " + path + "\n")
	}
}
