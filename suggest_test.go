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

import "testing"

func TestEditDistance(t *testing.T) {
	tests := []struct {
		s1, s2            string
		allowReplacements bool
		maxEditDistance   int
		want              int
	}{
		{"", "", true, 0, 0},
		{"foo", "foo", true, 0, 0},
		{"foo", "fo", true, 0, 1},
		{"kitten", "sitting", true, 0, 3},
		{"abc", "abc", false, 0, 0},
		{"abc", "axc", false, 0, 2}, // replacements disallowed: substitution costs a delete+insert
		{"abcdef", "xxxxxx", true, 2, 3},
	}
	for _, tt := range tests {
		got := editDistance(tt.s1, tt.s2, tt.allowReplacements, tt.maxEditDistance)
		if got != tt.want {
			t.Errorf("editDistance(%q, %q, %v, %d) = %d, want %d", tt.s1, tt.s2, tt.allowReplacements, tt.maxEditDistance, got, tt.want)
		}
	}
}

func TestSuggestTarget(t *testing.T) {
	r := mustParse(t, "rule cc\n\tcommand gcc -c $in -o $out\n\nbuild cc\n\tinput a.c\n\toutput a.o\n")
	g, err := NewGraph(r)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	got, found := suggestTarget("a.oo", g)
	if !found || got != "a.o" {
		t.Errorf("suggestTarget(a.oo) = (%q, %v), want (a.o, true)", got, found)
	}

	if _, found := suggestTarget("completely_unrelated_name", g); found {
		t.Error("suggestTarget: want no suggestion for an unrelated name")
	}
}

func TestSuggestRule(t *testing.T) {
	r := mustParse(t, "rule compile\n\tcommand gcc -c $in -o $out\n\nbuild compile\n\tinput a.c\n\toutput a.o\n")

	got, found := suggestRule("compil", r)
	if !found || got != "compile" {
		t.Errorf("suggestRule(compil) = (%q, %v), want (compile, true)", got, found)
	}
}
