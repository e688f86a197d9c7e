package query

import (
	"strconv"
	"strings"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

func attrAt(attrs []Aggregate, col int) Aggregate {
	if col < len(attrs) {
		return attrs[col]
	}
	return AggNone
}

// computeAggregates evaluates every requested aggregate over the rows of t.
// Nothing is written back, so each aggregate sees the original cells.
func computeAggregates(t *rtab.Table, attrs []Aggregate) map[int]string {
	results := make(map[int]string)
	for col := range t.Columns {
		if a := attrAt(attrs, col); a != AggNone {
			results[col] = Compute(t, col, a)
		}
	}
	return results
}

// renameAggregated prefixes every aggregated column name and retypes avg
// columns as floats
func renameAggregated(t *rtab.Table, attrs []Aggregate) {
	for col := range t.Columns {
		a := attrAt(attrs, col)
		if a == AggNone {
			continue
		}
		RenameWithPrefix(t, col, a.Prefix())
		if a == AggAvg && col < len(t.Types) {
			t.Types[col] = types.TypeFloat
		}
	}
}

// ProcessAggregates evaluates the aggregates in attrs over all rows, then
// writes each result into its column on every row and renames the column.
func ProcessAggregates(t *rtab.Table, attrs []Aggregate) {
	if !t.IsSuccess() {
		return
	}
	results := computeAggregates(t, attrs)
	for col, val := range results {
		ReplaceColumnValue(t, col, val)
	}
	renameAggregated(t, attrs)
}

// CollapseIfEmpty gives an aggregate query over no rows its single result
// row: count 0, sums and averages 0, everything else empty.
func CollapseIfEmpty(t *rtab.Table, countStar bool, attrs []Aggregate) {
	if !t.IsSuccess() || len(t.Rows) > 0 {
		return
	}
	countCol := -1
	if countStar {
		countCol = countColumn(t)
	}
	row := make(rtab.Row, len(t.Columns))
	for col := range row {
		if col == countCol {
			row[col] = "0"
			continue
		}
		row[col] = attrAt(attrs, col).empty()
	}
	t.Rows = append(t.Rows, row)
}

func groupKey(row rtab.Row, cols []int) string {
	var b strings.Builder
	for _, c := range cols {
		v := row[c]
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

// GroupBy collapses the rows sharing the values of groupColumns into one row
// per group, in order of first occurrence. Group columns keep their value,
// aggregated columns (attrs, indexed by column) take the aggregate over the
// group and are renamed, and any other column takes the group's first row.
// With countStar a count(*) column holds each group's size. Unknown group
// column names are ignored.
func GroupBy(t *rtab.Table, groupColumns []string, countStar bool, hasAggregates bool, attrs []Aggregate) {
	if !t.IsSuccess() {
		return
	}
	if !hasAggregates {
		attrs = nil
	}

	var keyCols []int
	for _, name := range groupColumns {
		if idx := t.ColumnIndex(name); idx >= 0 {
			keyCols = append(keyCols, idx)
		}
	}

	countCol := -1
	if countStar {
		countCol = countColumn(t)
	}

	var order []string
	groups := make(map[string][]rtab.Row)
	for _, row := range t.Rows {
		key := groupKey(row, keyCols)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	out := make([]rtab.Row, 0, len(order))
	for _, key := range order {
		group := &rtab.Table{Columns: t.Columns, Types: t.Types, Rows: groups[key]}
		results := computeAggregates(group, attrs)

		collapsed := append(rtab.Row{}, group.Rows[0]...)
		if countCol >= 0 {
			collapsed[countCol] = strconv.Itoa(len(group.Rows))
		}
		for col, val := range results {
			collapsed[col] = val
		}
		out = append(out, collapsed)
	}
	t.Rows = out

	if len(t.Rows) == 0 && (countStar || hasAggregates) {
		CollapseIfEmpty(t, countStar, attrs)
	}
	renameAggregated(t, attrs)
}
