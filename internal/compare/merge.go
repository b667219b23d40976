package compare

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
)

// Row is one calendar day of a merged timeline. An entity without a point
// that day has no key; absence is not zero.
type Row struct {
	Date   civil.Date
	Values map[string]float64
}

// Value returns the value of label on this row
func (r Row) Value(label string) (float64, bool) {
	v, ok := r.Values[label]
	return v, ok
}

// Merge builds the union of all days across series, ascending
func Merge(series []Series) []Row {
	labels := Labels(series)

	rows := make(map[civil.Date]Row)
	for i, s := range series {
		for _, p := range s.Points {
			row, ok := rows[p.Date]
			if !ok {
				row = Row{Date: p.Date, Values: make(map[string]float64, len(series))}
				rows[p.Date] = row
			}
			row.Values[labels[i]] = p.Value
		}
	}

	merged := make([]Row, 0, len(rows))
	for _, row := range rows {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}

// Labels returns the row key of each series; duplicate labels get a #<id> suffix
func Labels(series []Series) []string {
	counts := make(map[string]int, len(series))
	for _, s := range series {
		counts[s.Label]++
	}

	labels := make([]string, len(series))
	for i, s := range series {
		labels[i] = s.Label
		if counts[s.Label] > 1 {
			labels[i] = fmt.Sprintf("%s #%d", s.Label, s.EntityID)
		}
	}
	return labels
}
