package rtab

import (
	"strconv"

	"github.com/zakazai/hwdb-rtab/internal/types"
)

// FakeResults builds a small UserEvents-shaped table for debugging
func FakeResults() *Table {
	t, _ := NewWithSchema(
		[]string{"timestamp", "application", "type", "data"},
		[]types.ColumnType{types.TypeInteger, types.TypeString, types.TypeString, types.TypeString},
	)

	events := []struct {
		app, kind, data string
	}{
		{"camera", "login", "user=alice"},
		{"camera", "motion", "zone=2"},
		{"thermostat", "set", "21.5"},
		{"camera", "logout", "user=alice"},
		{"door", "open", ""},
	}
	base := int64(1318000000000000000)
	for i, e := range events {
		ts := strconv.FormatInt(base+int64(i)*1000000000, 10)
		_ = t.AppendRow(ts, e.app, e.kind, e.data)
	}
	return t
}
