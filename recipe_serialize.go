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
	"bytes"
	"fmt"
	"sort"
)

// Serialize renders the Recipe back into text format. A
// Recipe serialized then re-parsed with ParseRecipe produces a
// structurally identical graph.
func (r *Recipe) Serialize() []byte {
	var buf bytes.Buffer
	for _, rule := range r.Rules {
		fmt.Fprintf(&buf, "rule %s\n", rule.Name)
		if rule.Description != "" && rule.Description != "Processing $in" {
			fmt.Fprintf(&buf, "\tdescription %s\n", rule.Description)
		}
		if rule.Command != "" {
			fmt.Fprintf(&buf, "\tcommand %s\n", rule.Command)
		}
		if rule.Depfile != "" {
			fmt.Fprintf(&buf, "\tdepfile %s\n", rule.Depfile)
		}
		if rule.Deps != DepsNone {
			fmt.Fprintf(&buf, "\tdeps %s\n", rule.Deps)
		}
		if rule.Jobs != 0 && rule.Jobs != 1 {
			fmt.Fprintf(&buf, "\tjobs %d\n", rule.Jobs)
		}
		buf.WriteByte('\n')
	}

	for _, b := range r.Builds {
		fmt.Fprintf(&buf, "build %s\n", b.RuleName)
		for _, p := range b.Inputs {
			fmt.Fprintf(&buf, "\tinput %s\n", p)
		}
		for _, p := range b.ImplicitInputs {
			fmt.Fprintf(&buf, "\timplicitInput %s\n", p)
		}
		for _, p := range b.OrderOnlyInputs {
			fmt.Fprintf(&buf, "\torderOnlyInput %s\n", p)
		}
		for _, p := range b.Outputs {
			fmt.Fprintf(&buf, "\toutput %s\n", p)
		}
		for _, p := range b.ImplicitOutputs {
			fmt.Fprintf(&buf, "\timplicitOutput %s\n", p)
		}
		for _, k := range sortedKeys(b.Bindings) {
			fmt.Fprintf(&buf, "\tbinding %s = %s\n", k, b.Bindings[k])
		}
		if b.Jobs != 0 {
			fmt.Fprintf(&buf, "\tjobs %d\n", b.Jobs)
		}
		buf.WriteByte('\n')
	}

	for _, k := range sortedKeys(r.Bindings) {
		fmt.Fprintf(&buf, "binding %s = %s\n", k, r.Bindings[k])
	}
	if r.CacheDir != "" {
		fmt.Fprintf(&buf, "cacheDir %s\n", r.CacheDir)
	}

	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
