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

// Package cook implements a parallel build engine: a declarative recipe
// of rules and builds is parsed into a dependency graph between file
// artifacts, a minimal set of stale targets is computed, and commands are
// executed in parallel under a bounded job budget, with a persistent
// command log so later invocations rebuild only what changed.
package cook

// DepsFormat names the style of compiler-emitted dependency information a
// Rule's command produces.
type DepsFormat int

const (
	// DepsNone means the rule's command does not emit a depfile.
	DepsNone DepsFormat = iota
	// DepsGCC is GCC/Clang's `-MMD -MF` makefile-fragment output.
	DepsGCC
	// DepsMSVC is reserved: the loader accepts it but the scheduler and
	// worker treat it identically to DepsNone.
	DepsMSVC
	// DepsDMD is reserved, same treatment as DepsMSVC.
	DepsDMD
)

func (d DepsFormat) String() string {
	switch d {
	case DepsNone:
		return "none"
	case DepsGCC:
		return "gcc"
	case DepsMSVC:
		return "msvc"
	case DepsDMD:
		return "dmd"
	default:
		return "unknown"
	}
}

func parseDepsFormat(s string) (DepsFormat, bool) {
	switch s {
	case "none":
		return DepsNone, true
	case "gcc":
		return DepsGCC, true
	case "msvc":
		return DepsMSVC, true
	case "dmd":
		return DepsDMD, true
	default:
		return DepsNone, false
	}
}

// Rule is an immutable template for producing outputs from inputs via a
// command line.
type Rule struct {
	Name        string
	Description string // default "Processing $in"
	Command     string
	Depfile     string
	Deps        DepsFormat
	Jobs        int // default 1, must stay positive
}

// NewRule returns a Rule with its documented defaults.
func NewRule(name string) *Rule {
	return &Rule{
		Name:        name,
		Description: "Processing $in",
		Jobs:        1,
	}
}

// Build instantiates a Rule with concrete input/output paths and optional
// local bindings.
type Build struct {
	RuleName string

	Inputs          []string
	ImplicitInputs  []string
	OrderOnlyInputs []string
	Outputs         []string
	ImplicitOutputs []string

	Bindings map[string]string

	// Jobs overrides the rule's default when non-zero.
	Jobs int
}

// NewBuild returns a Build referencing the named rule with empty path lists.
func NewBuild(ruleName string) *Build {
	return &Build{
		RuleName: ruleName,
		Bindings: map[string]string{},
	}
}

// AllOutputs returns Outputs followed by ImplicitOutputs, the order in
// which an Edge stores its outputs.
func (b *Build) AllOutputs() []string {
	out := make([]string, 0, len(b.Outputs)+len(b.ImplicitOutputs))
	out = append(out, b.Outputs...)
	out = append(out, b.ImplicitOutputs...)
	return out
}

// AllInputs returns Inputs, ImplicitInputs and OrderOnlyInputs
// concatenated in that order, the order in which an Edge stores its
// inputs.
func (b *Build) AllInputs() []string {
	in := make([]string, 0, len(b.Inputs)+len(b.ImplicitInputs)+len(b.OrderOnlyInputs))
	in = append(in, b.Inputs...)
	in = append(in, b.ImplicitInputs...)
	in = append(in, b.OrderOnlyInputs...)
	return in
}

// Recipe is the declarative input to the build engine: an ordered
// sequence of Rules (unique by name), an ordered sequence of Builds, a
// set of top-level bindings, and the cache directory housing the command
// log and build outputs.
type Recipe struct {
	Rules    []*Rule
	Builds   []*Build
	Bindings map[string]string
	CacheDir string // defaults to process CWD
}

// NewRecipe returns an empty Recipe. CacheDir is left empty, which the
// command log and the cleaner treat as the process's current directory.
func NewRecipe() *Recipe {
	return &Recipe{Bindings: map[string]string{}}
}

// RuleByName returns the rule with the given name, or nil.
func (r *Recipe) RuleByName(name string) *Rule {
	for _, rule := range r.Rules {
		if rule.Name == name {
			return rule
		}
	}
	return nil
}
