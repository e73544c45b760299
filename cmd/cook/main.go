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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/cook-build/cook"
)

func main() {
	os.Exit(run())
}

func fatalf(format string, a ...interface{}) int {
	fmt.Fprintf(os.Stderr, "cook: fatal: "+format+"\n", a...)
	return 1
}

func run() int {
	var (
		recipePath string
		jobs       int
		dryRun     bool
		verbose    bool
		clean      bool
		help       bool
	)

	flags := pflag.NewFlagSet("cook", pflag.ContinueOnError)
	flags.StringVarP(&recipePath, "recipe", "r", "cook.recipe", "path to the recipe file")
	flags.IntVarP(&jobs, "jobs", "j", 0, "run N jobs in parallel (0 means logical CPU count)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "don't run commands, just report what would run")
	flags.BoolVarP(&verbose, "verbose", "v", false, "show full command lines instead of descriptions")
	flags.BoolVar(&clean, "clean", false, "remove every declared output, depfile, and the command log")
	flags.BoolVarP(&help, "help", "h", false, "show usage and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: cook [--recipe|-r <path>] [target ...]\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return fatalf("%s", err)
	}
	if help {
		flags.Usage()
		return 0
	}

	targets := flags.Args()

	data, err := os.ReadFile(recipePath)
	if err != nil {
		return fatalf("reading recipe %s: %s", recipePath, err)
	}

	recipe, err := cook.ParseRecipe(recipePath, data)
	if err != nil {
		return fatalf("%s", err)
	}

	if err := rebaseRelativeToCWD(recipe, recipePath); err != nil {
		return fatalf("%s", err)
	}

	graph, err := cook.NewGraph(recipe)
	if err != nil {
		return fatalf("%s", err)
	}

	if clean {
		cleaner := cook.NewCleaner(recipe)
		cleaner.Verbose = verbose
		cleaner.DryRun = dryRun
		if err := cleaner.Clean(graph); err != nil {
			return fatalf("%s", err)
		}
		fmt.Printf("%d files.\n", cleaner.CleanedFilesCount())
		return 0
	}

	cacheDir := recipe.CacheDir
	if cacheDir == "" {
		cacheDir = "."
	}

	var log *cook.CommandLog
	if !dryRun {
		log, err = cook.OpenCommandLog(cacheDir)
		if err != nil {
			return fatalf("opening command log: %s", err)
		}
		defer log.Close()
	}

	state := cook.NewStateEngine(log)
	sched := cook.NewScheduler(graph, state, log, jobs)
	sched.Status = cook.NewStatus(verbose)

	if err := sched.Plan(targets); err != nil {
		sched.Status.Error("%s", err)
		return 2
	}

	if dryRun {
		for _, e := range graph.Edges {
			if e.State == cook.EdgeUnknown {
				continue
			}
			line, err := e.Description()
			if verbose {
				line, err = e.Command()
			}
			if err != nil {
				sched.Status.Error("%s", err)
				return 2
			}
			fmt.Printf("would run: %s\n", line)
		}
		return 0
	}

	if err := sched.Run(context.Background()); err != nil {
		sched.Status.Error("%s", err)
		return 2
	}

	return 0
}

// rebaseRelativeToCWD resolves recipe paths relative to the recipe's own
// directory, not the process's current working directory: when the two
// differ, it rewrites every relative input and output path, and the
// cache directory, to be correct from the CWD. Rule depfile templates are
// not rewritten: a depfile derived from $out follows the rebased output,
// but a literal relative depfile path stays relative to the CWD.
func rebaseRelativeToCWD(r *cook.Recipe, recipePath string) error {
	recipeDir := filepath.Dir(recipePath)
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	absRecipeDir, err := filepath.Abs(recipeDir)
	if err != nil {
		return fmt.Errorf("resolving recipe directory: %w", err)
	}
	if absRecipeDir == cwd {
		return nil
	}
	rebase := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(recipeDir, p)
	}
	for _, b := range r.Builds {
		for i, p := range b.Inputs {
			b.Inputs[i] = rebase(p)
		}
		for i, p := range b.ImplicitInputs {
			b.ImplicitInputs[i] = rebase(p)
		}
		for i, p := range b.OrderOnlyInputs {
			b.OrderOnlyInputs[i] = rebase(p)
		}
		for i, p := range b.Outputs {
			b.Outputs[i] = rebase(p)
		}
		for i, p := range b.ImplicitOutputs {
			b.ImplicitOutputs[i] = rebase(p)
		}
	}
	r.CacheDir = rebase(r.CacheDir)
	return nil
}
