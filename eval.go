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

import "strings"

// edgeEnv caches an Edge's expanded command/description/depfile, computed
// once lazily on first access, looked up through the two-level (Build,
// then Recipe) binding scope.
type edgeEnv struct {
	command     string
	description string
	depfile     string
	expanded    bool
}

func (e *Edge) expand() error {
	if e.env != nil && e.env.expanded {
		return nil
	}
	env := &edgeEnv{}
	var err error
	if env.command, err = expandTemplate(e.Rule.Command, e); err != nil {
		return err
	}
	if env.description, err = expandTemplate(e.Rule.Description, e); err != nil {
		return err
	}
	if env.depfile, err = expandTemplate(e.Rule.Depfile, e); err != nil {
		return err
	}
	env.expanded = true
	e.env = env
	return nil
}

// Command returns the edge's fully expanded command line, expanding (and
// caching) it on first access.
func (e *Edge) Command() (string, error) {
	if err := e.expand(); err != nil {
		return "", err
	}
	return e.env.command, nil
}

// Description returns the edge's fully expanded description.
func (e *Edge) Description() (string, error) {
	if err := e.expand(); err != nil {
		return "", err
	}
	return e.env.description, nil
}

// Depfile returns the edge's fully expanded depfile path.
func (e *Edge) Depfile() (string, error) {
	if err := e.expand(); err != nil {
		return "", err
	}
	return e.env.depfile, nil
}

// lookupBinding resolves a variable name against, in order, the Build's
// local bindings then the Recipe's top-level bindings. A missing key
// expands to the empty string, not an error.
func (e *Edge) lookupBinding(name string) string {
	if e.Bindings != nil {
		if v, ok := e.Bindings[name]; ok {
			return v
		}
	}
	if e.Recipe != nil {
		if v, ok := e.Recipe.Bindings[name]; ok {
			return v
		}
	}
	return ""
}

// escapePathForInOut replaces space with `\ ` and `"` with `\"`, the
// escaping applied to each path joined into $in/$out.
func escapePathForInOut(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case ' ':
			b.WriteString(`\ `)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (e *Edge) joinEscaped(nodes []*Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = escapePathForInOut(n.Path)
	}
	return strings.Join(parts, " ")
}

// in resolves the $in built-in: explicit inputs only.
func (e *Edge) in() string { return e.joinEscaped(e.ExplicitInputs()) }

// out resolves the $out built-in: Outputs (not implicit).
func (e *Edge) out() string {
	return e.joinEscaped(e.AllOutputs[:len(e.AllOutputs)-e.ImplicitOuts])
}

// expandTemplate scans tmpl character by character: `$`
// introduces a reference, `$$` emits a literal `$`, a variable name is the
// longest run matching [A-Za-z][A-Za-z0-9]*, and an empty name (e.g. `$.`)
// is a fatal error naming the template.
func expandTemplate(tmpl string, e *Edge) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(tmpl) {
			return "", newGraphError("unterminated '$' in template %q", tmpl)
		}
		if tmpl[i] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		start := i
		for i < len(tmpl) && isVarNameByte(tmpl[i], i == start) {
			i++
		}
		name := tmpl[start:i]
		if name == "" {
			return "", newGraphError("empty variable name in template %q", tmpl)
		}
		switch name {
		case "in":
			b.WriteString(e.in())
		case "out":
			b.WriteString(e.out())
		default:
			b.WriteString(e.lookupBinding(name))
		}
	}
	return b.String(), nil
}

func isVarNameByte(c byte, first bool) bool {
	isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	if first {
		return isAlpha
	}
	return isAlpha || (c >= '0' && c <= '9')
}
