// Package rtab holds the relation table: a rectangular, text-valued result set
// that doubles as the carrier for an in-band operation status.
package rtab

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/zakazai/hwdb-rtab/internal/types"
)

// MaxMessageLength bounds the status text a table may carry
const MaxMessageLength = 1024

var (
	// ErrOutOfRange is returned when a row index is not below the row count
	ErrOutOfRange = errors.New("rtab: row index out of range")
	// ErrRowWidth is returned when a row does not have one cell per column
	ErrRowWidth = errors.New("rtab: row width does not match column count")
	// ErrSchema is returned for mismatched or duplicate column metadata
	ErrSchema = errors.New("rtab: invalid column schema")
)

// Row is one ordered tuple of cells. Cell i belongs to column i.
type Row []string

// Table is a result set. A table whose Status is not StatusSuccess is a pure
// signal and carries no columns or rows.
type Table struct {
	Columns []string
	Types   []types.ColumnType
	Rows    []Row
	Status  types.StatusCode
	Message string
}

// StatusError reports a non-success status carried by a table
type StatusError struct {
	Code    types.StatusCode
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an empty success table ready to be populated
func New() *Table {
	return &Table{
		Columns: []string{},
		Types:   []types.ColumnType{},
		Rows:    []Row{},
	}
}

// NewStatus creates a status-only table
func NewStatus(code types.StatusCode, message string) *Table {
	if len(message) > MaxMessageLength {
		// cut on a rune boundary
		cut := MaxMessageLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	t := New()
	t.Status = code
	t.Message = message
	return t
}

// NewWithSchema creates an empty success table with the given columns
func NewWithSchema(names []string, colTypes []types.ColumnType) (*Table, error) {
	if len(names) != len(colTypes) {
		return nil, fmt.Errorf("%w: %d names but %d types", ErrSchema, len(names), len(colTypes))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrSchema, name)
		}
		seen[name] = true
	}
	for i, ct := range colTypes {
		if !ct.Valid() {
			return nil, fmt.Errorf("%w: column %q has unknown type %d", ErrSchema, names[i], int32(ct))
		}
	}

	t := New()
	t.Columns = append(t.Columns, names...)
	t.Types = append(t.Types, colTypes...)
	return t, nil
}

// AppendRow adds a row. The number of cells must equal the column count.
func (t *Table) AppendRow(cells ...string) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("%w: got %d cells for %d columns", ErrRowWidth, len(cells), len(t.Columns))
	}
	row := make(Row, len(cells))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the column count
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// RowAt returns the cells of the 0-based row i
func (t *Table) RowAt(i int) (Row, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("%w: %d (rows: %d)", ErrOutOfRange, i, len(t.Rows))
	}
	return t.Rows[i], nil
}

// ColumnIndex returns the position of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// IsSuccess reports whether the table carries data
func (t *Table) IsSuccess() bool {
	return t.Status == types.StatusSuccess
}

// Err returns nil for a success table and a *StatusError otherwise
func (t *Table) Err() error {
	if t.IsSuccess() {
		return nil
	}
	return &StatusError{Code: t.Status, Message: t.Message}
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string{}, t.Columns...),
		Types:   append([]types.ColumnType{}, t.Types...),
		Rows:    make([]Row, len(t.Rows)),
		Status:  t.Status,
		Message: t.Message,
	}
	for i, row := range t.Rows {
		c.Rows[i] = append(Row{}, row...)
	}
	return c
}

// Release drops everything the table owns. It is safe to call more than once
// and on tables whose rows were only partly built.
func (t *Table) Release() {
	if t == nil {
		return
	}
	for i := range t.Rows {
		t.Rows[i] = nil
	}
	t.Rows = nil
	t.Columns = nil
	t.Types = nil
	t.Message = ""
}

// Fprint writes a diagnostic rendering of the table to w
func (t *Table) Fprint(w io.Writer) error {
	if !t.IsSuccess() {
		_, err := fmt.Fprintf(w, "status: %s: %s\n", t.Status, t.Message)
		return err
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%-*s", widths[i], col)
	}
	b.WriteString("\n")
	for i := range t.Columns {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", widths[i]))
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s", widths[i], cell)
			} else {
				b.WriteString(cell)
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "(%d rows)\n", len(t.Rows))

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) String() string {
	var b strings.Builder
	_ = t.Fprint(&b)
	return b.String()
}
