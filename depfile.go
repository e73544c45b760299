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

// parseDepfile parses the subset of Makefile syntax emitted by GCC/Clang
// "-MMD -MF <file>": a single rule of the form "<target>: <dep> <dep> ..."
// possibly continued across lines with a trailing backslash. If
// wantTarget is non-empty and the depfile's target does not match it,
// parseDepfile fails.
//
// Backslash escapes honored in dependency tokens: "\ " -> " ", "\\" ->
// "\".
func parseDepfile(content []byte, wantTarget string) ([]string, error) {
	text := string(content)
	// Join continuation lines: a trailing backslash immediately before a
	// newline means the rule continues on the next line.
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")

	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		return nil, newGraphError("depfile has no ':' separating target from deps")
	}
	target := strings.TrimSpace(text[:colon])
	if wantTarget != "" && target != wantTarget {
		return nil, newGraphError("depfile target %q does not match expected %q", target, wantTarget)
	}

	rest := text[colon+1:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	return tokenizeDepfileDeps(rest), nil
}

// tokenizeDepfileDeps splits a whitespace-separated list of dependency
// paths, honoring the backslash-escaped space and backslash tokens.
// Duplicates are allowed; the caller is responsible for deduping.
func tokenizeDepfileDeps(s string) []string {
	var deps []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			deps = append(deps, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == ' ':
			cur.WriteByte(' ')
			i++
		case c == '\\' && i+1 < len(s) && s[i+1] == '\\':
			cur.WriteByte('\\')
			i++
		case c == ' ' || c == '\t' || c == '\r':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return deps
}
