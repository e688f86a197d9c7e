// Package codec packs relation tables into flat byte buffers and back.
//
// Wire version 1. Every integer is a 4-byte big-endian signed value and every
// string is an integer length followed by exactly that many bytes:
//
//	status, message
//	[status == success only]
//	ncols, ncols x name, ncols x type, nrows, nrows x ncols x cell
package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

var (
	// ErrEncodeOverflow is returned when a table does not fit the output buffer
	ErrEncodeOverflow = errors.New("codec: encoded table exceeds buffer capacity")
	// ErrMalformed is returned for truncated or inconsistent input
	ErrMalformed = errors.New("codec: malformed table buffer")
	// ErrTooLarge is returned for tables that cannot be represented on the wire
	ErrTooLarge = errors.New("codec: table too large to encode")
)

// EncodedSize returns the exact number of bytes Encode writes for t
func EncodedSize(t *rtab.Table) (int, error) {
	if !t.Status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %d", ErrTooLarge, int32(t.Status))
	}
	if len(t.Message) > rtab.MaxMessageLength {
		return 0, fmt.Errorf("%w: status message of %d bytes exceeds %d",
			ErrTooLarge, len(t.Message), rtab.MaxMessageLength)
	}

	size := intSize + intSize + len(t.Message)
	if !t.IsSuccess() {
		return size, nil
	}

	ncols := len(t.Columns)
	if len(t.Types) != ncols {
		return 0, fmt.Errorf("%w: %d types for %d columns", rtab.ErrSchema, len(t.Types), ncols)
	}
	if ncols > math.MaxInt32 || len(t.Rows) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d columns, %d rows", ErrTooLarge, ncols, len(t.Rows))
	}
	if ncols == 0 && len(t.Rows) > 0 {
		return 0, fmt.Errorf("%w: %d rows without columns", rtab.ErrSchema, len(t.Rows))
	}

	size += intSize
	seen := make(map[string]bool, ncols)
	for _, name := range t.Columns {
		if seen[name] {
			return 0, fmt.Errorf("%w: duplicate column name %q", rtab.ErrSchema, name)
		}
		seen[name] = true
		n, err := stringSize(name)
		if err != nil {
			return 0, err
		}
		size += n
	}
	size += ncols * intSize
	size += intSize
	for i, row := range t.Rows {
		if len(row) != ncols {
			return 0, fmt.Errorf("%w: row %d has %d cells", rtab.ErrRowWidth, i, len(row))
		}
		for _, cell := range row {
			n, err := stringSize(cell)
			if err != nil {
				return 0, err
			}
			size += n
		}
		if size < 0 {
			return 0, fmt.Errorf("%w: size overflows int", ErrTooLarge)
		}
	}
	return size, nil
}

// Encode packs t into buf and returns the number of bytes written. It never
// writes past len(buf); when t does not fit nothing is written.
func Encode(t *rtab.Table, buf []byte) (int, error) {
	size, err := EncodedSize(t)
	if err != nil {
		return 0, err
	}
	if size > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, capacity %d", ErrEncodeOverflow, size, len(buf))
	}

	w := &writer{buf: buf[:size]}
	w.writeInt(int32(t.Status))
	w.writeString(t.Message)
	if t.IsSuccess() {
		w.writeInt(int32(len(t.Columns)))
		for _, name := range t.Columns {
			w.writeString(name)
		}
		for _, ct := range t.Types {
			w.writeInt(int32(ct))
		}
		w.writeInt(int32(len(t.Rows)))
		for _, row := range t.Rows {
			for _, cell := range row {
				w.writeString(cell)
			}
		}
	}
	return w.pos, nil
}

// Marshal packs t into a newly allocated buffer of exactly the encoded size
func Marshal(t *rtab.Table) ([]byte, error) {
	size, err := EncodedSize(t)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := Encode(t, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func readStatus(r *reader) (types.StatusCode, string, error) {
	code, err := r.readInt()
	if err != nil {
		return 0, "", err
	}
	status := types.StatusCode(code)
	if !status.Valid() {
		return 0, "", fmt.Errorf("%w: unknown status %d", ErrMalformed, code)
	}
	msgAt := r.pos
	msg, err := r.readString()
	if err != nil {
		return 0, "", err
	}
	if len(msg) > rtab.MaxMessageLength {
		return 0, "", fmt.Errorf("%w: status message of %d bytes at offset %d exceeds %d",
			ErrMalformed, len(msg), msgAt, rtab.MaxMessageLength)
	}
	return status, msg, nil
}

// PeekStatus reads only the leading status fields of a packed table
func PeekStatus(buf []byte) (types.StatusCode, string, error) {
	return readStatus(&reader{buf: buf})
}

// Decode unpacks a table. The buffer must hold exactly one packed table.
func Decode(buf []byte) (*rtab.Table, error) {
	r := &reader{buf: buf}
	status, msg, err := readStatus(r)
	if err != nil {
		return nil, err
	}
	if status != types.StatusSuccess {
		if r.remaining() != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after status", ErrMalformed, r.remaining())
		}
		return rtab.NewStatus(status, msg), nil
	}

	ncols, err := r.readCount("column count")
	if err != nil {
		return nil, err
	}
	// every column needs at least a name length and a type tag
	if ncols > r.remaining()/(2*intSize) {
		return nil, fmt.Errorf("%w: %d columns cannot fit in %d bytes", ErrMalformed, ncols, r.remaining())
	}

	t := &rtab.Table{
		Columns: make([]string, ncols),
		Types:   make([]types.ColumnType, ncols),
		Message: msg,
	}
	seen := make(map[string]bool, ncols)
	for i := 0; i < ncols; i++ {
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrMalformed, name)
		}
		seen[name] = true
		t.Columns[i] = name
	}
	for i := 0; i < ncols; i++ {
		tag, err := r.readInt()
		if err != nil {
			return nil, err
		}
		ct := types.ColumnType(tag)
		if !ct.Valid() {
			return nil, fmt.Errorf("%w: column %q has unknown type %d", ErrMalformed, t.Columns[i], tag)
		}
		t.Types[i] = ct
	}

	nrows, err := r.readCount("row count")
	if err != nil {
		return nil, err
	}
	if ncols > 0 && nrows > r.remaining()/(ncols*intSize) {
		return nil, fmt.Errorf("%w: %d rows cannot fit in %d bytes", ErrMalformed, nrows, r.remaining())
	}
	if ncols == 0 && nrows > 0 {
		return nil, fmt.Errorf("%w: %d rows without columns", ErrMalformed, nrows)
	}

	t.Rows = make([]rtab.Row, nrows)
	for i := 0; i < nrows; i++ {
		row := make(rtab.Row, ncols)
		for j := 0; j < ncols; j++ {
			cell, err := r.readString()
			if err != nil {
				return nil, err
			}
			row[j] = cell
		}
		t.Rows[i] = row
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.remaining())
	}
	return t, nil
}
