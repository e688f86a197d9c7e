package query

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// Aggregate names the function applied to a column when rows are collapsed
type Aggregate int

const (
	AggNone Aggregate = iota
	AggMin
	AggMax
	AggAvg
	AggSum
)

// Prefix returns the function name used to rename an aggregated column
func (a Aggregate) Prefix() string {
	switch a {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	case AggSum:
		return "sum"
	default:
		return ""
	}
}

func (a Aggregate) String() string {
	if a == AggNone {
		return "none"
	}
	return a.Prefix()
}

// ParseAggregate maps a function name onto an Aggregate
func ParseAggregate(name string) (Aggregate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "avg":
		return AggAvg, nil
	case "sum":
		return AggSum, nil
	default:
		return AggNone, fmt.Errorf("unknown aggregate function: %s", name)
	}
}

// empty returns the value an aggregate takes over a set with no usable cells
func (a Aggregate) empty() string {
	switch a {
	case AggSum, AggAvg:
		return "0"
	default:
		return ""
	}
}

// number is a parsed cell. Integer cells keep full precision so that large
// timestamps compare exactly.
type number struct {
	i *big.Int // nil for floats
	f float64
}

func (n number) bigFloat() *big.Float {
	if n.i != nil {
		return new(big.Float).SetInt(n.i)
	}
	return big.NewFloat(n.f)
}

func compareNumbers(a, b number) int {
	if a.i != nil && b.i != nil {
		return a.i.Cmp(b.i)
	}
	if a.i == nil && b.i == nil {
		switch {
		case a.f < b.f:
			return -1
		case a.f > b.f:
			return 1
		}
		return 0
	}
	return a.bigFloat().Cmp(b.bigFloat())
}

// parseCell reads a cell as a number of the column's type. Integer columns
// take only base-10 integers of any size; other columns take finite floats.
func parseCell(ct types.ColumnType, cell string) (number, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return number{}, false
	}
	if ct == types.TypeInteger {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return number{}, false
		}
		return number{i: i}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return number{}, false
	}
	return number{f: f}, true
}

func columnType(t *rtab.Table, col int) types.ColumnType {
	if col < len(t.Types) {
		return t.Types[col]
	}
	return types.TypeString
}

func validColumn(t *rtab.Table, col int) bool {
	return col >= 0 && col < len(t.Columns)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// extreme returns the cell holding the smallest (sign < 0) or largest
// (sign > 0) value of the column
func extreme(t *rtab.Table, col int, sign int) string {
	if !validColumn(t, col) {
		return ""
	}
	ct := columnType(t, col)
	numeric := ct.IsNumeric()

	best := ""
	var bestNum number
	found := false
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		cell := row[col]
		if numeric {
			n, ok := parseCell(ct, cell)
			if !ok {
				continue
			}
			if !found || compareNumbers(n, bestNum)*sign > 0 {
				best, bestNum, found = strings.TrimSpace(cell), n, true
			}
			continue
		}
		if !found || strings.Compare(cell, best)*sign > 0 {
			best, found = cell, true
		}
	}
	return best
}

// Min returns the smallest value of column col over the table's rows
func Min(t *rtab.Table, col int) string {
	return extreme(t, col, -1)
}

// Max returns the largest value of column col over the table's rows
func Max(t *rtab.Table, col int) string {
	return extreme(t, col, 1)
}

// total sums the usable cells of a column and reports how many were summed.
// Integer columns accumulate in a big.Int; everything else in float64.
func total(t *rtab.Table, col int) (*big.Int, float64, int, bool) {
	ct := columnType(t, col)
	sum := new(big.Int)
	var fsum float64
	count := 0
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		n, ok := parseCell(ct, row[col])
		if !ok {
			continue
		}
		if n.i != nil {
			sum.Add(sum, n.i)
		} else {
			fsum += n.f
		}
		count++
	}
	return sum, fsum, count, ct == types.TypeInteger
}

// Sum returns the sum of the parseable values of column col
func Sum(t *rtab.Table, col int) string {
	if !validColumn(t, col) {
		return AggSum.empty()
	}
	sum, fsum, count, isInt := total(t, col)
	if count == 0 {
		return AggSum.empty()
	}
	if isInt {
		return sum.String()
	}
	return formatFloat(fsum)
}

// Avg returns the mean of the parseable values of column col. The divisor is
// the number of values summed, not the row count.
func Avg(t *rtab.Table, col int) string {
	if !validColumn(t, col) {
		return AggAvg.empty()
	}
	sum, fsum, count, isInt := total(t, col)
	if count == 0 {
		return AggAvg.empty()
	}
	if isInt {
		avg := new(big.Rat).SetFrac(sum, big.NewInt(int64(count)))
		if avg.IsInt() {
			return avg.Num().String()
		}
		f, _ := avg.Float64()
		return formatFloat(f)
	}
	return formatFloat(fsum / float64(count))
}

// Compute applies a to column col over all rows of t
func Compute(t *rtab.Table, col int, a Aggregate) string {
	switch a {
	case AggMin:
		return Min(t, col)
	case AggMax:
		return Max(t, col)
	case AggAvg:
		return Avg(t, col)
	case AggSum:
		return Sum(t, col)
	default:
		return ""
	}
}
