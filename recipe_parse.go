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
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// recipeParser turns a recipe file's text into a Recipe, one line at a
// time. Top-level statements are "rule <name>", "build <rule>",
// "binding <key> = <value>", and "cacheDir <path>", each possibly
// followed by a block of single-indent body lines and terminated by a
// blank line. One error-returning method per statement kind, scanning
// one line at a time.
type recipeParser struct {
	file   string
	lines  []string
	lineNo int // 1-based line of the last line returned by next()
	recipe *Recipe
}

// ParseRecipe parses the text serialization of a Recipe. filename is
// used only to annotate parse errors.
func ParseRecipe(filename string, data []byte) (*Recipe, error) {
	p := &recipeParser{
		file:   filename,
		lines:  splitLines(data),
		recipe: NewRecipe(),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.recipe, nil
}

func splitLines(data []byte) []string {
	var lines []string
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines
}

// peek returns the line after the one at lineNo without consuming it, or
// "" and false past the end.
func (p *recipeParser) peek() (string, bool) {
	if p.lineNo >= len(p.lines) {
		return "", false
	}
	return p.lines[p.lineNo], true
}

func (p *recipeParser) next() (string, bool) {
	line, ok := p.peek()
	if ok {
		p.lineNo++
	}
	return line, ok
}

func (p *recipeParser) errorf(format string, a ...interface{}) error {
	return newParseError(p.file, p.lineNo, format, a...)
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func (p *recipeParser) parse() error {
	for {
		line, ok := p.next()
		if !ok {
			return nil
		}
		if isBlank(line) {
			continue
		}
		if isIndented(line) {
			return p.errorf("unexpected indented line outside of a block")
		}
		word, rest := splitWord(line)
		switch word {
		case "rule":
			if err := p.parseRule(rest); err != nil {
				return err
			}
		case "build":
			if err := p.parseBuild(rest); err != nil {
				return err
			}
		case "binding":
			key, value, err := parseBindingStmt(rest)
			if err != nil {
				return p.errorf("%s", err)
			}
			p.recipe.Bindings[key] = value
		case "cacheDir":
			if strings.TrimSpace(rest) == "" {
				return p.errorf("cacheDir requires a path")
			}
			p.recipe.CacheDir = strings.TrimSpace(rest)
		default:
			return p.errorf("unknown top-level keyword %q", word)
		}
	}
}

// splitWord splits a line into its first whitespace-delimited word and the
// (trimmed-left, not fully trimmed) remainder.
func splitWord(line string) (string, string) {
	trimmed := strings.TrimLeft(line, " \t")
	i := strings.IndexAny(trimmed, " \t")
	if i < 0 {
		return trimmed, ""
	}
	return trimmed[:i], strings.TrimLeft(trimmed[i+1:], " \t")
}

func parseBindingStmt(rest string) (key, value string, err error) {
	i := strings.Index(rest, "=")
	if i < 0 {
		return "", "", newFormatError("malformed binding, expected 'key = value'")
	}
	key = strings.TrimSpace(rest[:i])
	value = strings.TrimSpace(rest[i+1:])
	if key == "" {
		return "", "", newFormatError("binding has an empty key")
	}
	return key, value, nil
}

func newFormatError(msg string) error { return &formatError{msg} }

type formatError struct{ msg string }

func (e *formatError) Error() string { return e.msg }

// parseRule parses a "rule <name>" statement and its indented body, up to
// the terminating blank line.
func (p *recipeParser) parseRule(rest string) error {
	name := strings.TrimSpace(rest)
	if name == "" {
		return p.errorf("rule requires a name")
	}
	if p.recipe.RuleByName(name) != nil {
		return p.errorf("duplicate rule %q", name)
	}
	rule := NewRule(name)
	for {
		line, ok := p.peek()
		if !ok || isBlank(line) {
			if ok {
				p.next() // consume the blank terminator
			}
			break
		}
		if !isIndented(line) {
			return p.errorf("expected blank line to terminate rule %q", name)
		}
		p.next()
		key, value := splitWord(line)
		switch key {
		case "description":
			rule.Description = value
		case "command":
			rule.Command = value
		case "depfile":
			rule.Depfile = value
		case "deps":
			df, ok := parseDepsFormat(value)
			if !ok {
				return p.errorf("unknown deps format %q", value)
			}
			rule.Deps = df
		case "jobs":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return p.errorf("jobs must be a positive integer, got %q", value)
			}
			rule.Jobs = n
		default:
			return p.errorf("unknown key %q in rule %q", key, name)
		}
	}
	p.recipe.Rules = append(p.recipe.Rules, rule)
	return nil
}

// parseBuild parses a "build <rule-name>" statement and its indented body.
func (p *recipeParser) parseBuild(rest string) error {
	ruleName := strings.TrimSpace(rest)
	if ruleName == "" {
		return p.errorf("build requires a rule name")
	}
	b := NewBuild(ruleName)
	for {
		line, ok := p.peek()
		if !ok || isBlank(line) {
			if ok {
				p.next()
			}
			break
		}
		if !isIndented(line) {
			return p.errorf("expected blank line to terminate build %q", ruleName)
		}
		p.next()
		key, value := splitWord(line)
		switch key {
		case "input":
			b.Inputs = append(b.Inputs, value)
		case "implicitInput":
			b.ImplicitInputs = append(b.ImplicitInputs, value)
		case "orderOnlyInput":
			b.OrderOnlyInputs = append(b.OrderOnlyInputs, value)
		case "output":
			b.Outputs = append(b.Outputs, value)
		case "implicitOutput":
			b.ImplicitOutputs = append(b.ImplicitOutputs, value)
		case "binding":
			bk, bv, err := parseBindingStmt(value)
			if err != nil {
				return p.errorf("%s", err)
			}
			b.Bindings[bk] = bv
		case "jobs":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return p.errorf("jobs must be a positive integer, got %q", value)
			}
			b.Jobs = n
		default:
			return p.errorf("unknown key %q in build of rule %q", key, ruleName)
		}
	}
	p.recipe.Builds = append(p.recipe.Builds, b)
	return nil
}
