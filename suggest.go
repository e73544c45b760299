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

// editDistance computes the Levenshtein distance between s1 and s2,
// capped at maxEditDistance+1 once a row's best value exceeds it so
// callers scanning many candidates can bail out early. The algorithm
// implemented below is the "classic" dynamic-programming algorithm for
// computing the Levenshtein distance, which is described here:
//
//	http://en.wikipedia.org/wiki/LevenshteinDistance
//
// Although the algorithm is typically described using an m x n array,
// only one row plus one element are used at a time, so this
// implementation keeps one vector for the row. To update one entry,
// only the entries to the left, top, and top-left are needed. The left
// entry is in row[x-1], the top entry is what's in row[x] from the last
// iteration, and the top-left entry is stored in previous.
func editDistance(s1, s2 string, allowReplacements bool, maxEditDistance int) int {
	m := len(s1)
	n := len(s2)

	row := make([]int, n+1)
	for i := 1; i <= n; i++ {
		row[i] = i
	}

	for y := 1; y <= m; y++ {
		row[0] = y
		bestThisRow := row[0]

		previous := y - 1
		for x := 1; x <= n; x++ {
			oldRow := row[x]
			if allowReplacements {
				v := 0
				if s1[y-1] != s2[x-1] {
					v = 1
				}
				row[x] = minInt(previous+v, minInt(row[x-1], row[x])+1)
			} else {
				if s1[y-1] == s2[x-1] {
					row[x] = previous
				} else {
					row[x] = minInt(row[x-1], row[x]) + 1
				}
			}
			previous = oldRow
			bestThisRow = minInt(bestThisRow, row[x])
		}

		if maxEditDistance != 0 && bestThisRow > maxEditDistance {
			return maxEditDistance + 1
		}
	}

	return row[n]
}

func minInt(i, j int) int {
	if i < j {
		return i
	}
	return j
}

// A candidate may differ from the typo by at most a third of the typo's
// own length and still be offered, so short names never draw nonsense
// suggestions.

// suggestTarget finds the closest-matching node path to an unknown
// target the user asked to build, for an error message like "unknown
// target 'fooo', did you mean 'foo'?".
func suggestTarget(want string, g *Graph) (string, bool) {
	best := ""
	bestDist := len(want)/3 + 1
	for path := range g.Nodes {
		d := editDistance(want, path, true, bestDist)
		if d < bestDist {
			bestDist = d
			best = path
		}
	}
	return best, best != ""
}

// suggestRule is the same heuristic applied to an unknown rule name
// referenced by a build statement.
func suggestRule(want string, r *Recipe) (string, bool) {
	best := ""
	bestDist := len(want)/3 + 1
	for _, rule := range r.Rules {
		d := editDistance(want, rule.Name, true, bestDist)
		if d < bestDist {
			bestDist = d
			best = rule.Name
		}
	}
	return best, best != ""
}
