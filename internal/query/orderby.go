package query

import (
	"sort"
	"strings"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
)

type sortKey struct {
	row    rtab.Row
	num    number
	parsed bool
}

// OrderBy stably sorts the rows ascending on the named column. Numeric
// columns compare as numbers, with unparseable cells after all numbers.
// An unknown column leaves the table untouched.
func OrderBy(t *rtab.Table, column string) {
	col := t.ColumnIndex(column)
	if col < 0 || !t.IsSuccess() {
		return
	}
	ct := columnType(t, col)
	numeric := ct.IsNumeric()

	keys := make([]sortKey, len(t.Rows))
	for i, row := range t.Rows {
		keys[i].row = row
		if numeric {
			keys[i].num, keys[i].parsed = parseCell(ct, row[col])
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if numeric {
			switch {
			case a.parsed && b.parsed:
				return compareNumbers(a.num, b.num) < 0
			case a.parsed != b.parsed:
				return a.parsed
			}
		}
		return strings.Compare(a.row[col], b.row[col]) < 0
	})

	for i := range keys {
		t.Rows[i] = keys[i].row
	}
}
