package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/hwdb-rtab/internal/query"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

func newTable(t *testing.T, names []string, colTypes []types.ColumnType, rows ...[]string) *rtab.Table {
	t.Helper()
	tbl, err := rtab.NewWithSchema(names, colTypes)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, tbl.AppendRow(row...))
	}
	return tbl
}

func eventTable(t *testing.T) *rtab.Table {
	return newTable(t,
		[]string{"ts", "app", "type", "data"},
		[]types.ColumnType{types.TypeInteger, types.TypeString, types.TypeString, types.TypeString},
		[]string{"100", "cam", "login", ""},
		[]string{"200", "cam", "login", ""},
	)
}

func readings(t *testing.T) *rtab.Table {
	return newTable(t,
		[]string{"sensor", "temp", "load"},
		[]types.ColumnType{types.TypeString, types.TypeInteger, types.TypeFloat},
		[]string{"a", "10", "0.5"},
		[]string{"b", "7", "1.5"},
		[]string{"a", "n/a", "2"},
		[]string{"c", "3", "x"},
		[]string{"b", "5", "0.25"},
		[]string{"a", "20", "1"},
	)
}

func column(tbl *rtab.Table, name string) []string {
	idx := tbl.ColumnIndex(name)
	out := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out = append(out, row[idx])
	}
	return out
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name   string
		column string
		want   []string
	}{
		{name: "numeric", column: "temp", want: []string{"3", "5", "7", "10", "20", "n/a"}},
		{name: "float", column: "load", want: []string{"0.25", "0.5", "1", "1.5", "2", "x"}},
		{name: "text_is_stable", column: "sensor", want: []string{"a", "a", "a", "b", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := readings(t)
			query.OrderBy(tbl, tt.column)
			assert.Equal(t, tt.want, column(tbl, tt.column))
		})
	}

	tbl := readings(t)
	query.OrderBy(tbl, "sensor")
	assert.Equal(t, []string{"10", "n/a", "20", "7", "5", "3"}, column(tbl, "temp"))
}

func TestOrderByIdempotent(t *testing.T) {
	once := readings(t)
	query.OrderBy(once, "temp")
	twice := once.Clone()
	query.OrderBy(twice, "temp")
	assert.Equal(t, once, twice)
}

func TestOrderByLargeIntegers(t *testing.T) {
	tbl := newTable(t, []string{"ts"}, []types.ColumnType{types.TypeInteger},
		[]string{"1318000000000000001"},
		[]string{"1318000000000000000"},
	)
	query.OrderBy(tbl, "ts")
	assert.Equal(t, []string{"1318000000000000000", "1318000000000000001"}, column(tbl, "ts"))
}

func TestOrderByUnknownColumn(t *testing.T) {
	tbl := readings(t)
	before := tbl.Clone()
	query.OrderBy(tbl, "missing")
	assert.Equal(t, before, tbl)
}

func TestAggregates(t *testing.T) {
	tbl := readings(t)
	temp := tbl.ColumnIndex("temp")
	load := tbl.ColumnIndex("load")
	sensor := tbl.ColumnIndex("sensor")

	assert.Equal(t, "3", query.Min(tbl, temp))
	assert.Equal(t, "20", query.Max(tbl, temp))
	assert.Equal(t, "45", query.Sum(tbl, temp))
	assert.Equal(t, "9", query.Avg(tbl, temp))

	assert.Equal(t, "0.25", query.Min(tbl, load))
	assert.Equal(t, "2", query.Max(tbl, load))
	assert.Equal(t, "5.25", query.Sum(tbl, load))
	assert.Equal(t, "1.05", query.Avg(tbl, load))

	assert.Equal(t, "a", query.Min(tbl, sensor))
	assert.Equal(t, "c", query.Max(tbl, sensor))

	assert.Equal(t, "", query.Min(tbl, 99))
	assert.Equal(t, "0", query.Sum(tbl, -1))
}

func TestAggregatesAllUnparsable(t *testing.T) {
	tbl := newTable(t, []string{"v"}, []types.ColumnType{types.TypeInteger},
		[]string{"x"}, []string{""}, []string{"1.5"},
	)
	assert.Equal(t, "0", query.Avg(tbl, 0))
	assert.Equal(t, "0", query.Sum(tbl, 0))
	assert.Equal(t, "", query.Min(tbl, 0))
	assert.Equal(t, "", query.Max(tbl, 0))
}

func TestSumWide(t *testing.T) {
	tbl := newTable(t, []string{"v"}, []types.ColumnType{types.TypeInteger},
		[]string{"9223372036854775807"}, []string{"9223372036854775807"},
	)
	assert.Equal(t, "18446744073709551614", query.Sum(tbl, 0))
	assert.Equal(t, "9223372036854775807", query.Avg(tbl, 0))
}

func TestCountStar(t *testing.T) {
	tbl := eventTable(t)
	query.CountStar(tbl)
	assert.Equal(t, query.CountStarColumn, tbl.Columns[4])
	assert.Equal(t, types.TypeInteger, tbl.Types[4])
	assert.Equal(t, []string{"2", "2"}, column(tbl, query.CountStarColumn))

	// an existing count column is filled, not duplicated
	tbl.Rows = tbl.Rows[:1]
	query.CountStar(tbl)
	assert.Equal(t, 5, tbl.NumColumns())
	assert.Equal(t, []string{"1"}, column(tbl, query.CountStarColumn))
}

func TestProcessAggregates(t *testing.T) {
	tbl := readings(t)
	query.ProcessAggregates(tbl, []query.Aggregate{query.AggNone, query.AggMax, query.AggAvg})

	assert.Equal(t, []string{"sensor", "max(temp)", "avg(load)"}, tbl.Columns)
	assert.Equal(t, types.TypeFloat, tbl.Types[2])
	for _, row := range tbl.Rows {
		assert.Equal(t, "20", row[1])
		assert.Equal(t, "1.05", row[2])
	}
}

func TestGroupBySum(t *testing.T) {
	tbl := newTable(t, []string{"g", "v"}, []types.ColumnType{types.TypeString, types.TypeInteger},
		[]string{"x", "1"},
		[]string{"y", "10"},
		[]string{"x", "2"},
		[]string{"z", "100"},
		[]string{"z", "oops"},
		[]string{"z", "200"},
	)
	query.GroupBy(tbl, []string{"g"}, false, true, []query.Aggregate{query.AggNone, query.AggSum})

	assert.Equal(t, []string{"g", "sum(v)"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, rtab.Row{"x", "3"}, tbl.Rows[0])
	assert.Equal(t, rtab.Row{"y", "10"}, tbl.Rows[1])
	assert.Equal(t, rtab.Row{"z", "300"}, tbl.Rows[2])
}

func TestGroupByMultipleAggregates(t *testing.T) {
	tbl := readings(t)
	query.GroupBy(tbl, []string{"sensor"}, true, true,
		[]query.Aggregate{query.AggNone, query.AggMin, query.AggAvg})

	assert.Equal(t, []string{"sensor", "min(temp)", "avg(load)", query.CountStarColumn}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, rtab.Row{"a", "10", "1.1666666666666667", "3"}, tbl.Rows[0])
	assert.Equal(t, rtab.Row{"b", "5", "0.875", "2"}, tbl.Rows[1])
	assert.Equal(t, rtab.Row{"c", "3", "0", "1"}, tbl.Rows[2])
}

func TestGroupByRepresentativeRow(t *testing.T) {
	tbl := readings(t)
	query.GroupBy(tbl, []string{"sensor"}, false, false, nil)
	assert.Equal(t, []string{"sensor", "temp", "load"}, tbl.Columns)
	assert.Equal(t, []string{"10", "7", "3"}, column(tbl, "temp"))
}

func TestGroupByCountStarEmpty(t *testing.T) {
	tbl := newTable(t, []string{"app"}, []types.ColumnType{types.TypeString})
	query.GroupBy(tbl, []string{"app"}, true, false, nil)

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "0", tbl.Rows[0][tbl.ColumnIndex(query.CountStarColumn)])
}

func TestGroupByAggregatesEmpty(t *testing.T) {
	tbl := newTable(t, []string{"g", "v", "w"},
		[]types.ColumnType{types.TypeString, types.TypeInteger, types.TypeInteger})
	query.GroupBy(tbl, nil, false, true, []query.Aggregate{query.AggNone, query.AggSum, query.AggMax})

	assert.Equal(t, []string{"g", "sum(v)", "max(w)"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, rtab.Row{"", "0", ""}, tbl.Rows[0])
}

func TestGroupByWholeTable(t *testing.T) {
	tbl := readings(t)
	query.GroupBy(tbl, nil, true, true, []query.Aggregate{query.AggNone, query.AggSum})
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, rtab.Row{"a", "45", "0.5", "6"}, tbl.Rows[0])
}

func TestGroupByStatusTable(t *testing.T) {
	tbl := rtab.NewStatus(types.StatusSelectFailed, "boom")
	query.GroupBy(tbl, []string{"a"}, true, false, nil)
	query.OrderBy(tbl, "a")
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 0, tbl.NumColumns())
}

func TestEndToEndExample(t *testing.T) {
	tbl := eventTable(t)

	query.OrderBy(tbl, "ts")
	assert.Equal(t, "100", tbl.Rows[0][0])

	query.GroupBy(tbl, []string{"app"}, true, false, nil)
	require.NoError(t, query.Project(tbl, []string{"app", query.CountStarColumn}))

	assert.Equal(t, []string{"app", "count(*)"}, tbl.Columns)
	assert.Equal(t, []rtab.Row{{"cam", "2"}}, tbl.Rows)
}

func TestProject(t *testing.T) {
	tbl := readings(t)
	require.NoError(t, query.Project(tbl, []string{"load", "sensor"}))
	assert.Equal(t, []string{"load", "sensor"}, tbl.Columns)
	assert.Equal(t, []types.ColumnType{types.TypeFloat, types.TypeString}, tbl.Types)
	assert.Equal(t, rtab.Row{"0.5", "a"}, tbl.Rows[0])

	err := query.Project(tbl, []string{"nope"})
	assert.ErrorIs(t, err, query.ErrUnknownColumn)
}

func TestRenameAndReplace(t *testing.T) {
	tbl := readings(t)
	query.RenameWithPrefix(tbl, 1, "min")
	query.ReplaceColumnValue(tbl, 1, "3")
	query.RenameWithPrefix(tbl, 7, "max")
	query.ReplaceColumnValue(tbl, -1, "x")

	assert.Equal(t, "min(temp)", tbl.Columns[1])
	assert.Equal(t, []string{"3", "3", "3", "3", "3", "3"}, column(tbl, "min(temp)"))
}

func TestParseAggregate(t *testing.T) {
	for _, a := range []query.Aggregate{query.AggMin, query.AggMax, query.AggAvg, query.AggSum} {
		got, err := query.ParseAggregate(a.Prefix())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := query.ParseAggregate("median")
	assert.Error(t, err)
	assert.Equal(t, "none", query.AggNone.String())
}

func TestNonFiniteCellsAreSkipped(t *testing.T) {
	tbl := newTable(t, []string{"load", "note"}, []types.ColumnType{types.TypeFloat, types.TypeString},
		[]string{"1.5", "inf"},
		[]string{"NaN", "3"},
		[]string{"2.5", "+Inf"},
		[]string{"-Infinity", "nan"},
		[]string{"1e400", "1"},
	)
	load := tbl.ColumnIndex("load")
	note := tbl.ColumnIndex("note")

	assert.Equal(t, "4", query.Sum(tbl, load))
	assert.Equal(t, "2", query.Avg(tbl, load))
	assert.Equal(t, "1.5", query.Min(tbl, load))
	assert.Equal(t, "2.5", query.Max(tbl, load))
	assert.Equal(t, "4", query.Sum(tbl, note))
	assert.Equal(t, "2", query.Avg(tbl, note))
}

func TestOrderByNaN(t *testing.T) {
	tbl := newTable(t, []string{"v"}, []types.ColumnType{types.TypeFloat},
		[]string{"3"}, []string{"NaN"}, []string{"1"}, []string{"2"}, []string{"Inf"},
	)
	query.OrderBy(tbl, "v")
	assert.Equal(t, []string{"1", "2", "3", "Inf", "NaN"}, column(tbl, "v"))

	again := tbl.Clone()
	query.OrderBy(again, "v")
	assert.Equal(t, tbl.Rows, again.Rows)
}

func TestIntegerColumnParsing(t *testing.T) {
	tbl := newTable(t, []string{"v"}, []types.ColumnType{types.TypeInteger},
		[]string{"99999999999999999999"},
		[]string{"5"},
		[]string{"1.5"},
		[]string{"-99999999999999999999"},
	)

	assert.Equal(t, "-99999999999999999999", query.Min(tbl, 0))
	assert.Equal(t, "99999999999999999999", query.Max(tbl, 0))
	assert.Equal(t, "5", query.Sum(tbl, 0))
	assert.Equal(t, "1.6666666666666667", query.Avg(tbl, 0))

	query.OrderBy(tbl, "v")
	assert.Equal(t, []string{"-99999999999999999999", "5", "99999999999999999999", "1.5"}, column(tbl, "v"))
}
