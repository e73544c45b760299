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

import "sort"

// NodeState is a node's freshness classification, computed by the State
// Engine. States only move forward within a build session:
// Unknown -> {NotExist, Dirty, UpToDate}.
type NodeState int

const (
	NodeUnknown NodeState = iota
	NodeNotExist
	NodeDirty
	NodeUpToDate
)

// EdgeState advances monotonically Unknown -> MustBuild -> Ready ->
// InProgress -> Completed.
type EdgeState int

const (
	EdgeUnknown EdgeState = iota
	EdgeMustBuild
	EdgeReady
	EdgeInProgress
	EdgeCompleted
)

// Node is a file in the dependency graph, identified by its path
// Nodes are interned by path within a Graph and referenced
// by the *Node pointer the Graph itself owns, never copied.
type Node struct {
	Path string

	State NodeState
	Mtime int64 // nanosecond resolution or platform-best; valid once State != NodeUnknown

	// InEdge is the edge that produces this node, or nil if it is a
	// primary input. Invariant: at most one edge may set this.
	InEdge *Edge

	// OutEdges are all edges that consume this node as an input.
	OutEdges []*Edge
}

type visitMark int

const (
	visitNone visitMark = iota
	visitInStack
	visitDone
)

// NeedsRebuild reports whether the node's state requires its producing
// edge to run.
func (n *Node) NeedsRebuild() bool {
	return n.State == NodeNotExist || n.State == NodeDirty
}

// Edge links input Nodes to output Nodes via a Rule. An Edge
// is identified by its position in the Graph's edge slice; Edges refer to
// Nodes, and Nodes refer back to Edges, purely by pointer within the same
// arena -- there is no ownership cycle to manage since the
// Graph owns both slices for its entire lifetime.
type Edge struct {
	Rule   *Rule
	Build  *Build
	Recipe *Recipe // for top-level binding fallback during expansion
	Jobs   int     // effective job cost: Build.Jobs if non-zero, else Rule.Jobs

	State EdgeState

	// AllInputs is Inputs ‖ ImplicitInputs ‖ OrderOnlyInputs, in that
	// order; ImplicitDeps and OrderOnlyDeps count the trailing regions.
	AllInputs     []*Node
	ImplicitDeps  int
	OrderOnlyDeps int

	// AllOutputs is Outputs ‖ ImplicitOutputs; ImplicitOuts counts the
	// trailing implicit-output region.
	AllOutputs   []*Node
	ImplicitOuts int

	Bindings map[string]string // Build-scope bindings

	env *edgeEnv // cached lazily by Command/Description/Depfile

	// ready-queue intrusive links, owned and mutated only by the Scheduler.
	prev, next *Edge

	mark visitMark // used by the cycle check during graph construction

	graph       *Graph // back-pointer, set once by NewGraph
	depsApplied bool   // whether a prior run's discovered deps have been folded in
}

// insertDiscoveredDeps interns each discovered dependency path into the
// owning graph and appends any not already present as additional
// implicit inputs, growing ImplicitDeps to match.
func (e *Edge) insertDiscoveredDeps(g *Graph, deps []string) {
	if g == nil {
		return
	}
	existing := make(map[string]bool, len(e.AllInputs))
	for _, n := range e.AllInputs {
		existing[n.Path] = true
	}
	insertAt := len(e.AllInputs) - e.OrderOnlyDeps
	var added []*Node
	for _, p := range deps {
		if existing[p] {
			continue
		}
		n := g.internNode(p)
		n.OutEdges = append(n.OutEdges, e)
		added = append(added, n)
		existing[p] = true
	}
	if len(added) == 0 {
		return
	}
	tail := append([]*Node{}, e.AllInputs[insertAt:]...)
	e.AllInputs = append(e.AllInputs[:insertAt], append(added, tail...)...)
	e.ImplicitDeps += len(added)
}

// UpdateOnlyInputs returns the inputs that influence the dirty decision:
// explicit and implicit inputs, excluding order-only inputs.
func (e *Edge) UpdateOnlyInputs() []*Node {
	return e.AllInputs[:len(e.AllInputs)-e.OrderOnlyDeps]
}

// ExplicitInputs returns the inputs that appear as $in on the command
// line: neither implicit nor order-only.
func (e *Edge) ExplicitInputs() []*Node {
	return e.AllInputs[:len(e.AllInputs)-e.ImplicitDeps-e.OrderOnlyDeps]
}

// IsOrderOnly reports whether AllInputs[index] is an order-only input.
func (e *Edge) IsOrderOnly(index int) bool {
	return index >= len(e.AllInputs)-e.OrderOnlyDeps
}

// IsImplicit reports whether AllInputs[index] is an implicit (not
// order-only) input.
func (e *Edge) IsImplicit(index int) bool {
	return index >= len(e.AllInputs)-e.OrderOnlyDeps-e.ImplicitDeps && !e.IsOrderOnly(index)
}

// IsImplicitOut reports whether AllOutputs[index] is an implicit output.
func (e *Edge) IsImplicitOut(index int) bool {
	return index >= len(e.AllOutputs)-e.ImplicitOuts
}

// Graph is the full build graph: interned Nodes keyed by path, and Edges
// owning contiguous input/output slices.
type Graph struct {
	Nodes map[string]*Node
	Edges []*Edge

	Recipe *Recipe
}

// NewGraph constructs a Graph from a Recipe in one pass: rules are
// resolved by name, nodes interned by path, and edges wired to their
// input and output nodes. It fails on an unknown rule reference, a
// duplicate output producer, or a non-positive effective job count, and
// eagerly rejects dependency cycles with a DFS-based check that reports
// the cycle.
func NewGraph(r *Recipe) (*Graph, error) {
	g := &Graph{
		Nodes:  map[string]*Node{},
		Recipe: r,
	}

	for _, b := range r.Builds {
		rule := r.RuleByName(b.RuleName)
		if rule == nil {
			if suggestion, found := suggestRule(b.RuleName, r); found {
				return nil, newGraphError("build references unknown rule %q, did you mean %q?", b.RuleName, suggestion)
			}
			return nil, newGraphError("build references unknown rule %q", b.RuleName)
		}

		jobs := rule.Jobs
		if b.Jobs != 0 {
			jobs = b.Jobs
		}
		if jobs <= 0 {
			return nil, newGraphError("build of rule %q has non-positive effective jobs %d", b.RuleName, jobs)
		}

		e := &Edge{
			Rule:          rule,
			Build:         b,
			Recipe:        r,
			Jobs:          jobs,
			ImplicitDeps:  len(b.ImplicitInputs),
			OrderOnlyDeps: len(b.OrderOnlyInputs),
			ImplicitOuts:  len(b.ImplicitOutputs),
			Bindings:      b.Bindings,
		}

		for _, p := range b.AllInputs() {
			n := g.internNode(p)
			n.OutEdges = append(n.OutEdges, e)
			e.AllInputs = append(e.AllInputs, n)
		}

		for _, p := range b.AllOutputs() {
			n := g.internNode(p)
			if n.InEdge != nil {
				return nil, newGraphError("multiple build statements produce output %q", p)
			}
			n.InEdge = e
			e.AllOutputs = append(e.AllOutputs, n)
		}

		e.graph = g
		g.Edges = append(g.Edges, e)
	}

	if err := g.verifyDAG(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Graph) internNode(path string) *Node {
	if n, ok := g.Nodes[path]; ok {
		return n
	}
	n := &Node{Path: path}
	g.Nodes[path] = n
	return n
}

// verifyDAG walks every edge via DFS, raising a GraphError naming the
// cycle if one is found: a temporary mark on the producing edge while
// it is on the call stack reveals a cycle; a permanent mark once
// finished lets later visits short-circuit.
func (g *Graph) verifyDAG() error {
	var stack []*Node
	var visit func(n *Node) error
	visit = func(n *Node) error {
		e := n.InEdge
		if e == nil {
			return nil
		}
		switch e.mark {
		case visitDone:
			return nil
		case visitInStack:
			return cycleError(stack, n)
		}
		e.mark = visitInStack
		stack = append(stack, n)
		for _, in := range e.AllInputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		e.mark = visitDone
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, n := range g.allNodes() {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

func cycleError(stack []*Node, closing *Node) error {
	start := 0
	for start < len(stack) && stack[start].InEdge != closing.InEdge {
		start++
	}
	msg := "dependency cycle: "
	for _, n := range stack[start:] {
		msg += n.Path + " -> "
	}
	msg += closing.Path
	return newGraphError("%s", msg)
}

// allNodes returns the graph's nodes in map iteration order. Cycle
// detection finds a cycle regardless of where the walk starts, so no
// ordering is imposed here.
func (g *Graph) allNodes() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Sinks returns every node with no OutEdges, ordered by path: the
// default build targets when the caller supplies none.
func (g *Graph) Sinks() []*Node {
	var sinks []*Node
	for _, n := range g.allNodes() {
		if len(n.OutEdges) == 0 {
			sinks = append(sinks, n)
		}
	}
	sort.Slice(sinks, func(i, j int) bool { return sinks[i].Path < sinks[j].Path })
	return sinks
}
