package query

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// CountStarColumn is the label of the per-group row count column
const CountStarColumn = "count(*)"

// ErrUnknownColumn is returned by Project for names the table does not have
var ErrUnknownColumn = errors.New("query: unknown column")

// ReplaceColumnValue sets column col to val on every row
func ReplaceColumnValue(t *rtab.Table, col int, val string) {
	if !validColumn(t, col) {
		return
	}
	for _, row := range t.Rows {
		if col < len(row) {
			row[col] = val
		}
	}
}

// RenameWithPrefix renames column col to prefix(name)
func RenameWithPrefix(t *rtab.Table, col int, prefix string) {
	if !validColumn(t, col) || prefix == "" {
		return
	}
	t.Columns[col] = prefix + "(" + t.Columns[col] + ")"
}

// countColumn returns the index of the count-star column, appending an empty
// one when the table has none
func countColumn(t *rtab.Table) int {
	if idx := t.ColumnIndex(CountStarColumn); idx >= 0 {
		return idx
	}
	t.Columns = append(t.Columns, CountStarColumn)
	t.Types = append(t.Types, types.TypeInteger)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// CountStar sets the count-star column of every row to the current row count
func CountStar(t *rtab.Table) {
	if !t.IsSuccess() {
		return
	}
	col := countColumn(t)
	ReplaceColumnValue(t, col, strconv.Itoa(len(t.Rows)))
}

// Project keeps only the named columns, in the given order
func Project(t *rtab.Table, columns []string) error {
	if !t.IsSuccess() {
		return nil
	}
	idx := make([]int, len(columns))
	for i, name := range columns {
		idx[i] = t.ColumnIndex(name)
		if idx[i] < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}

	names := make([]string, len(idx))
	colTypes := make([]types.ColumnType, len(idx))
	for i, c := range idx {
		names[i] = t.Columns[c]
		colTypes[i] = columnType(t, c)
	}
	for r, row := range t.Rows {
		out := make(rtab.Row, len(idx))
		for i, c := range idx {
			out[i] = row[c]
		}
		t.Rows[r] = out
	}
	t.Columns = names
	t.Types = colTypes
	return nil
}
