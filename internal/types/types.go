package types

import (
	"fmt"
	"strings"
)

// StatusCode is the outcome tag embedded in every result table
type StatusCode int32

// Status codes carried in-band by result tables
const (
	StatusSuccess StatusCode = iota
	StatusError
	StatusCreateFailed
	StatusInsertFailed
	StatusSaveSelectFailed
	StatusSubscribeFailed
	StatusUnsubscribeFailed
	StatusParsingFailed
	StatusSelectFailed
	StatusExecSavedSelectFailed
	StatusCloseFlag
	StatusDeleteQueryFailed
	StatusNoTablesDefined
	StatusUpdateFailed
	StatusRegisterFailed
	StatusUnregisterFailed
)

var statusNames = [...]string{
	"success",
	"error",
	"create failed",
	"insert failed",
	"save select failed",
	"subscribe failed",
	"unsubscribe failed",
	"parsing failed",
	"select failed",
	"exec saved select failed",
	"close",
	"delete query failed",
	"no tables defined",
	"update failed",
	"register failed",
	"unregister failed",
}

// Valid reports whether the code belongs to the enumeration
func (c StatusCode) Valid() bool {
	return c >= StatusSuccess && c <= StatusUnregisterFailed
}

func (c StatusCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("status(%d)", int32(c))
	}
	return statusNames[c]
}

// ColumnType governs how cell text is compared and aggregated.
// Storage is always text.
type ColumnType int32

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeFloat
)

// Valid reports whether the tag is one of the known column types
func (t ColumnType) Valid() bool {
	return t >= TypeString && t <= TypeFloat
}

// IsNumeric reports whether cells of this type compare as numbers
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "STRING"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("TYPE(%d)", int32(t))
	}
}

// ParseColumnType maps a type name onto a ColumnType
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "STRING", "TEXT", "VARCHAR":
		return TypeString, nil
	case "INT", "INTEGER", "BIGINT", "TSTAMP":
		return TypeInteger, nil
	case "FLOAT", "REAL", "DOUBLE":
		return TypeFloat, nil
	default:
		return TypeString, fmt.Errorf("unknown column type: %s", name)
	}
}
