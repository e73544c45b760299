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
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scheduler walks a Graph's plan and dispatches ready edges to Workers
// within a job budget. One Scheduler drives one build; all graph and log
// mutation happens on the goroutine calling Run, so a Scheduler is not
// safe for concurrent use.
type Scheduler struct {
	Graph   *Graph
	State   *StateEngine
	Log     *CommandLog
	MaxJobs int
	Status  *Status

	headReady, tailReady *Edge // FIFO ready-queue, intrusive via Edge.prev/next
}

// NewScheduler returns a Scheduler with MaxJobs defaulting to the
// logical CPU count when maxJobs <= 0.
func NewScheduler(g *Graph, state *StateEngine, log *CommandLog, maxJobs int) *Scheduler {
	if maxJobs <= 0 {
		maxJobs = runtime.NumCPU()
	}
	return &Scheduler{Graph: g, State: state, Log: log, MaxJobs: maxJobs, Status: NewStatus(false)}
}

// Plan resolves targets to nodes (or the graph's sinks if targets is
// empty), classifies each via the State Engine, and recursively plans
// any edge whose output needs rebuild.
func (s *Scheduler) Plan(targets []string) error {
	var roots []*Node
	if len(targets) == 0 {
		roots = s.Graph.Sinks()
	} else {
		for _, t := range targets {
			n, ok := s.Graph.Nodes[t]
			if !ok {
				if suggestion, found := suggestTarget(t, s.Graph); found {
					return newGraphError("unknown target %q, did you mean %q?", t, suggestion)
				}
				return newGraphError("unknown target %q", t)
			}
			roots = append(roots, n)
		}
	}

	for _, n := range roots {
		if err := s.State.CheckStateIfNeeded(n); err != nil {
			return err
		}
		if n.NeedsRebuild() && n.InEdge != nil && n.InEdge.State == EdgeUnknown {
			if err := s.addEdgeToPlan(n.InEdge); err != nil {
				return err
			}
		}
	}

	total := 0
	for _, e := range s.Graph.Edges {
		if e.State != EdgeUnknown {
			total++
		}
	}
	if s.Status != nil {
		s.Status.PlanHasTotalEdges(total)
	}
	return nil
}

// addEdgeToPlan implements planning step: mark e
// MustBuild, resolve every input's state, recursing into any
// still-Unknown producing edge whose output needs rebuild. When no
// input needs rebuild, e is appended to the ready queue.
func (s *Scheduler) addEdgeToPlan(e *Edge) error {
	e.State = EdgeMustBuild

	needsWait := false
	for _, in := range e.AllInputs {
		if err := s.State.CheckStateIfNeeded(in); err != nil {
			return err
		}
		if in.NeedsRebuild() && in.InEdge != nil {
			if in.InEdge.State == EdgeUnknown {
				if err := s.addEdgeToPlan(in.InEdge); err != nil {
					return err
				}
			}
			needsWait = true
		}
	}

	if !needsWait {
		s.enqueueReady(e)
	}
	return nil
}

func (s *Scheduler) enqueueReady(e *Edge) {
	e.State = EdgeReady
	e.prev, e.next = nil, nil
	if s.tailReady == nil {
		s.headReady, s.tailReady = e, e
		return
	}
	s.tailReady.next = e
	e.prev = s.tailReady
	s.tailReady = e
}

func (s *Scheduler) dequeueReady(e *Edge) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.headReady = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tailReady = e.prev
	}
	e.prev, e.next = nil, nil
}

type completion struct {
	edge   *Edge
	result WorkResult
}

// Run executes the planned graph to completion: it dispatches every
// Ready edge whose jobs cost fits the remaining budget, then blocks for
// at least one completion, draining any others non-blockingly, until the
// ready queue is empty or a Worker fails.
func (s *Scheduler) Run(ctx context.Context) error {
	budget := s.MaxJobs
	inProgress := 0
	done := make(chan completion)

	group, gctx := errgroup.WithContext(context.Background())
	defer group.Wait() //nolint:errcheck // failures are already surfaced via done/buildErr

	var buildErr error

	for s.headReady != nil || inProgress > 0 {
		for e := s.headReady; e != nil && buildErr == nil; {
			next := e.next
			overBudget := e.Jobs > budget && inProgress > 0
			if e.State == EdgeInProgress || overBudget {
				e = next
				continue
			}
			cr, err := s.prepare(e)
			if err != nil {
				buildErr = err
				break
			}
			s.dequeueReady(e)
			e.State = EdgeInProgress
			budget -= e.Jobs
			inProgress++

			edge := e
			group.Go(func() error {
				res := runCommand(ctx, cr)
				select {
				case done <- completion{edge: edge, result: res}:
				case <-gctx.Done():
				}
				return nil
			})
			e = next
		}

		if inProgress == 0 {
			break
		}

		c := <-done
		inProgress--
		budget += c.edge.Jobs
		if err := s.complete(c); err != nil && buildErr == nil {
			buildErr = err
		}

	drain:
		for {
			select {
			case c := <-done:
				inProgress--
				budget += c.edge.Jobs
				if err := s.complete(c); err != nil && buildErr == nil {
					buildErr = err
				}
			default:
				break drain
			}
		}

		if buildErr != nil && inProgress == 0 {
			break
		}
	}

	if s.Status != nil {
		s.Status.BuildFinished()
	}
	if buildErr == nil {
		for _, e := range s.Graph.Edges {
			if e.State == EdgeMustBuild || e.State == EdgeReady {
				desc, _ := e.Description()
				buildErr = newGraphError("no progress possible: %q still waiting on its inputs", desc)
				break
			}
		}
	}
	return buildErr
}

// prepare expands the edge's command and depfile on the scheduler
// goroutine and snapshots them into the CmdRule the worker will own.
// Workers never touch the Edge after this point.
func (s *Scheduler) prepare(e *Edge) (CmdRule, error) {
	cmd, err := e.Command()
	if err != nil {
		return CmdRule{}, err
	}
	depfile, err := e.Depfile()
	if err != nil {
		return CmdRule{}, err
	}
	if s.Status != nil {
		s.Status.EdgeStarted(e)
	}
	return CmdRule{
		Name:       e.Rule.Name,
		Command:    cmd,
		Depfile:    depfile,
		DepsFormat: e.Rule.Deps,
	}, nil
}

// complete implements Completion/Failure handling.
func (s *Scheduler) complete(c completion) error {
	e, res := c.edge, c.result

	if res.Err != nil {
		desc, _ := e.Description()
		cmd, _ := e.Command()
		if s.Status != nil {
			s.Status.EdgeFinished(e, false, string(res.Output))
		}
		return &BuildError{
			Description: desc,
			Command:     cmd,
			Output:      string(res.Output),
			ExitCode:    res.ExitCode,
		}
	}

	e.State = EdgeCompleted
	if s.Status != nil {
		s.Status.EdgeFinished(e, true, string(res.Output))
	}

	cmd, err := e.Command()
	if err != nil {
		return err
	}
	cmdHash := hashCommand(cmd)

	for _, out := range e.AllOutputs {
		if err := s.postBuild(out, cmdHash, res.Deps); err != nil {
			return err
		}
	}

	for _, out := range e.AllOutputs {
		for _, down := range out.OutEdges {
			if down.State != EdgeMustBuild {
				continue
			}
			// Order-only inputs don't affect the dirty decision but do
			// gate dispatch: an edge may not start while any input,
			// order-only included, is still being rebuilt.
			ready := true
			for _, in := range down.AllInputs {
				if in.NeedsRebuild() {
					ready = false
					break
				}
			}
			if ready {
				s.enqueueReady(down)
			}
		}
	}
	return nil
}

// postBuild implements post_build: refresh mtime, compute
// and record the command hash and discovered deps, and mark the node
// UpToDate.
func (s *Scheduler) postBuild(n *Node, cmdHash uint64, deps []string) error {
	mtime, exists, err := statPath(n.Path)
	if err != nil {
		return wrapf("stat %s: %w", n.Path, err)
	}
	if !exists {
		return newGraphError("%s: command reported success but output is missing", n.Path)
	}
	n.Mtime = mtime
	n.State = NodeUpToDate

	if s.Log != nil {
		if err := s.Log.Record(LogEntry{Output: n.Path, CmdHash: cmdHash, Mtime: mtime, Deps: deps}); err != nil {
			return err
		}
	}
	return nil
}
