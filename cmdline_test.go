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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "gcc -c a.c -o a.o", []string{"gcc", "-c", "a.c", "-o", "a.o"}},
		{"quoted group", `echo "hello world"`, []string{"echo", "hello world"}},
		{"escaped space outside quotes", `gcc -c a\ file.c`, []string{"gcc", "-c", "a file.c"}},
		{"escaped quote", `echo \"lit\"`, []string{"echo", `"lit"`}},
		{"collapsed whitespace", "a   b\tc", []string{"a", "b", "c"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCommandLine(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitCommandLine(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
