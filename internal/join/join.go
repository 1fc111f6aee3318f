// Package join attaches relationship records to profile/organization records
// once canonical ids exist, and falls back to a best-effort fuzzy join on
// display names when they do not.
package join

import (
	"fmt"
	"sort"

	"github.com/b33n-tech/club-suite-quest/internal/match"
	"github.com/b33n-tech/club-suite-quest/internal/normalize"
	"github.com/b33n-tech/club-suite-quest/internal/table"
)

// MatchScoreColumn is the extra column carried by fuzzy-joined views in
// place of a canonical id.
const MatchScoreColumn = "match_score"

// Left produces a left join of two tables on the given key columns: every
// left row is preserved; right columns are attached where the keys coincide
// (compared by normalized form), else left empty.
//
// Right headers that collide with a left header are suffixed with the right
// table's name. When several right rows share a key, the first one wins.
func Left(left, right *table.Table, leftKey, rightKey string) (*table.Table, error) {
	lk, ok := left.ColumnIndex(leftKey)
	if !ok {
		return nil, fmt.Errorf("join: table %s has no column %q", left.Name, leftKey)
	}
	rk, ok := right.ColumnIndex(rightKey)
	if !ok {
		return nil, fmt.Errorf("join: table %s has no column %q", right.Name, rightKey)
	}

	// Index right rows by normalized key, first occurrence wins.
	byKey := make(map[string]int, right.Len())
	for i, row := range right.Rows {
		k := normalize.Value(row[rk])
		if k == "" {
			continue
		}
		if _, dup := byKey[k]; !dup {
			byKey[k] = i
		}
	}

	out := &table.Table{
		Name:    left.Name + "_x_" + right.Name,
		Headers: joinedHeaders(left, right),
	}

	blank := make([]string, len(right.Headers))
	for _, lrow := range left.Rows {
		rrow := blank
		if ri, ok := byKey[normalize.Value(lrow[lk])]; ok {
			rrow = right.Rows[ri]
		}
		row := make([]string, 0, len(out.Headers))
		row = append(row, lrow...)
		row = append(row, rrow...)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Fuzzy left-joins on display-name columns when canonical ids are not
// available, using the same similarity routine as the matcher. Exact
// (normalized) hits score 1.0 and skip scanning; otherwise the best right
// value above threshold wins, ties broken by right row order. threshold <= 0
// falls back to DefaultJoinThreshold.
//
// The result carries a trailing match_score column instead of a canonical
// id; unmatched rows keep empty right columns and score "0".
func Fuzzy(left, right *table.Table, leftName, rightName string, threshold float64) (*table.Table, error) {
	if threshold <= 0 {
		threshold = match.DefaultJoinThreshold
	}
	lk, ok := left.ColumnIndex(leftName)
	if !ok {
		return nil, fmt.Errorf("join: table %s has no column %q", left.Name, leftName)
	}
	rk, ok := right.ColumnIndex(rightName)
	if !ok {
		return nil, fmt.Errorf("join: table %s has no column %q", right.Name, rightName)
	}

	type rightVal struct {
		norm string
		row  int
	}
	byNorm := make(map[string]int, right.Len())
	vals := make([]rightVal, 0, right.Len())
	for i, row := range right.Rows {
		n := normalize.Value(row[rk])
		if n == "" {
			continue
		}
		if _, dup := byNorm[n]; dup {
			continue
		}
		byNorm[n] = i
		vals = append(vals, rightVal{norm: n, row: i})
	}

	out := &table.Table{
		Name:    left.Name + "_x_" + right.Name,
		Headers: append(joinedHeaders(left, right), MatchScoreColumn),
	}

	blank := make([]string, len(right.Headers))
	for _, lrow := range left.Rows {
		rrow := blank
		score := 0.0

		if n := normalize.Value(lrow[lk]); n != "" {
			if ri, ok := byNorm[n]; ok {
				rrow, score = right.Rows[ri], 1.0
			} else {
				bestRow, bestScore := -1, 0.0
				for _, rv := range vals {
					if s := match.Ratio(n, rv.norm); s > bestScore {
						bestScore, bestRow = s, rv.row
					}
				}
				if bestRow >= 0 && bestScore >= threshold {
					rrow, score = right.Rows[bestRow], bestScore
				}
			}
		}

		row := make([]string, 0, len(out.Headers))
		row = append(row, lrow...)
		row = append(row, rrow...)
		row = append(row, formatScore(score))
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// CountByKey aggregates rows per distinct key-column value: (key, count)
// pairs sorted by count descending, ties broken by first-encountered key
// order. Empty keys are skipped.
func CountByKey(t *table.Table, key string) ([]KeyCount, error) {
	ix, ok := t.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("join: table %s has no column %q", t.Name, key)
	}

	order := make(map[string]int)
	var out []KeyCount
	for _, row := range t.Rows {
		k := row[ix]
		if k == "" {
			continue
		}
		if pos, seen := order[k]; seen {
			out[pos].Count++
			continue
		}
		order[k] = len(out)
		out = append(out, KeyCount{Key: k})
		out[len(out)-1].Count = 1
	}

	// Stable sort: equal counts keep first-encountered key order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// KeyCount is one aggregate row of CountByKey.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func joinedHeaders(left, right *table.Table) []string {
	taken := make(map[string]bool, len(left.Headers))
	for _, h := range left.Headers {
		taken[h] = true
	}
	out := make([]string, 0, len(left.Headers)+len(right.Headers))
	out = append(out, left.Headers...)
	for _, h := range right.Headers {
		if taken[h] {
			h = h + "_" + right.Name
		}
		out = append(out, h)
	}
	return out
}

func formatScore(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
