package types_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

func TestStatusCodeString(t *testing.T) {
	assert.Equal(t, "success", types.StatusSuccess.String())
	assert.Equal(t, "close", types.StatusCloseFlag.String())
	assert.Equal(t, "unregister failed", types.StatusUnregisterFailed.String())
	assert.Equal(t, "status(42)", types.StatusCode(42).String())
	assert.True(t, types.StatusNoTablesDefined.Valid())
	assert.False(t, types.StatusCode(-1).Valid())
	assert.False(t, types.StatusCode(16).Valid())
	assert.Equal(t, types.StatusCode(10), types.StatusCloseFlag)
}

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		input   string
		want    types.ColumnType
		wantErr bool
	}{
		{input: "text", want: types.TypeString},
		{input: "INT", want: types.TypeInteger},
		{input: " integer ", want: types.TypeInteger},
		{input: "real", want: types.TypeFloat},
		{input: "blob", want: types.TypeString, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseColumnType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, types.TypeFloat.IsNumeric())
	assert.False(t, types.TypeString.IsNumeric())
	assert.False(t, types.ColumnType(7).Valid())
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := types.InitLogger(types.LogLevelWarning, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warning("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARNING: ")
	assert.Contains(t, out, "shown 4")

	level, err := types.ParseLogLevel("debug")
	assert.NoError(t, err)
	l.SetLevel(level)
	assert.Equal(t, types.LogLevelDebug, l.GetLevel())

	_, err = types.ParseLogLevel("loud")
	assert.Error(t, err)

	var nilLogger *types.Logger
	assert.Same(t, types.GlobalLogger, nilLogger.OrGlobal())
}
