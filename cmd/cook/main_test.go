// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cook-build/cook"
)

func TestRebaseRelativeToCWD_RewritesWhenRecipeElsewhere(t *testing.T) {
	cwd := t.TempDir()
	sub := filepath.Join(cwd, "proj")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(cwd); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	r := cook.NewRecipe()
	b := cook.NewBuild("cc")
	b.Inputs = []string{"a.c"}
	b.Outputs = []string{"a.o"}
	r.Builds = []*cook.Build{b}

	if err := rebaseRelativeToCWD(r, filepath.Join(sub, "build.recipe")); err != nil {
		t.Fatalf("rebaseRelativeToCWD: %v", err)
	}

	wantIn := filepath.Join(sub, "a.c")
	wantOut := filepath.Join(sub, "a.o")
	if b.Inputs[0] != wantIn {
		t.Errorf("Inputs[0] = %q, want %q", b.Inputs[0], wantIn)
	}
	if b.Outputs[0] != wantOut {
		t.Errorf("Outputs[0] = %q, want %q", b.Outputs[0], wantOut)
	}
}

func TestRebaseRelativeToCWD_NoOpWhenRecipeInCWD(t *testing.T) {
	cwd := t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(cwd); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	r := cook.NewRecipe()
	b := cook.NewBuild("cc")
	b.Inputs = []string{"a.c"}
	b.Outputs = []string{"a.o"}
	r.Builds = []*cook.Build{b}

	if err := rebaseRelativeToCWD(r, "build.recipe"); err != nil {
		t.Fatalf("rebaseRelativeToCWD: %v", err)
	}
	if b.Inputs[0] != "a.c" || b.Outputs[0] != "a.o" {
		t.Errorf("paths were rewritten when recipe dir equals cwd: Inputs=%v Outputs=%v", b.Inputs, b.Outputs)
	}
}

func TestRebaseRelativeToCWD_LeavesAbsolutePathsAlone(t *testing.T) {
	cwd := t.TempDir()
	sub := filepath.Join(cwd, "proj")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	oldwd, _ := os.Getwd()
	if err := os.Chdir(cwd); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	abs := filepath.Join(cwd, "shared", "a.h")
	r := cook.NewRecipe()
	b := cook.NewBuild("cc")
	b.ImplicitInputs = []string{abs}
	b.Outputs = []string{"a.o"}
	r.Builds = []*cook.Build{b}

	if err := rebaseRelativeToCWD(r, filepath.Join(sub, "build.recipe")); err != nil {
		t.Fatalf("rebaseRelativeToCWD: %v", err)
	}
	if b.ImplicitInputs[0] != abs {
		t.Errorf("ImplicitInputs[0] = %q, want unchanged %q", b.ImplicitInputs[0], abs)
	}
}
