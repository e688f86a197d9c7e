package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/hwdb-rtab/internal/codec"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// run executes the CLI with args and stdin, returning stdout
func run(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func useStore(t *testing.T, kind string) {
	t.Setenv("RTAB_STORAGE_TYPE", kind)
	t.Setenv("RTAB_STORAGE_DIR", filepath.Join(t.TempDir(), "store"))
	t.Setenv("RTAB_LOG_LEVEL", "none")
}

func TestFakeAndDump(t *testing.T) {
	useStore(t, "memory")

	packed, err := run(t, nil, "fake")
	require.NoError(t, err)

	table, err := codec.Decode([]byte(packed))
	require.NoError(t, err)
	assert.Equal(t, rtab.FakeResults().Rows, table.Rows)

	out, err := run(t, []byte(packed), "dump")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "timestamp "))
	assert.Contains(t, out, "thermostat")
	assert.True(t, strings.HasSuffix(out, "(5 rows)\n"))

	file := filepath.Join(t.TempDir(), "fake.rtab")
	_, err = run(t, nil, "fake", "-o", file)
	require.NoError(t, err)
	fromFile, err := run(t, nil, "dump", file)
	require.NoError(t, err)
	assert.Equal(t, out, fromFile)
}

func TestStatus(t *testing.T) {
	useStore(t, "memory")

	packed, err := codec.Marshal(rtab.NewStatus(types.StatusInsertFailed, "table is full"))
	require.NoError(t, err)
	out, err := run(t, packed, "status")
	require.NoError(t, err)
	assert.Equal(t, "insert failed: table is full\n", out)

	ok, err := codec.Marshal(rtab.FakeResults())
	require.NoError(t, err)
	out, err = run(t, ok, "status")
	require.NoError(t, err)
	assert.Equal(t, "success\n", out)

	_, err = run(t, []byte{0, 0}, "status")
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestTransform(t *testing.T) {
	useStore(t, "memory")
	packed, err := codec.Marshal(rtab.FakeResults())
	require.NoError(t, err)

	out, err := run(t, packed, "transform", "SELECT application, COUNT(*) GROUP BY application ORDER BY application")
	require.NoError(t, err)
	table, err := codec.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"application", "count(*)"}, table.Columns)
	assert.Equal(t, []rtab.Row{{"camera", "3"}, {"door", "1"}, {"thermostat", "1"}}, table.Rows)

	printed, err := run(t, packed, "transform", "SELECT COUNT(*)", "--print")
	require.NoError(t, err)
	assert.Contains(t, printed, "count(*)")
	assert.Contains(t, printed, "(1 rows)")

	_, err = run(t, packed, "transform", "SELECT nosuch")
	assert.Error(t, err)
}

func TestArchiveRestoreList(t *testing.T) {
	for _, kind := range []string{"json", "parquet", "hybrid"} {
		t.Run(kind, func(t *testing.T) {
			useStore(t, kind)
			packed, err := codec.Marshal(rtab.FakeResults())
			require.NoError(t, err)

			_, err = run(t, packed, "archive", "events")
			require.NoError(t, err)

			out, err := run(t, nil, "list")
			require.NoError(t, err)
			assert.Equal(t, "events\n", out)

			restored, err := run(t, nil, "restore", "events")
			require.NoError(t, err)
			assert.Equal(t, packed, []byte(restored))

			out, err = run(t, nil, "query", "select * from UserEvents", "--from", "events", "--apply", "SELECT MAX(timestamp)")
			require.NoError(t, err)
			assert.Contains(t, out, "max(timestamp)")
			assert.Contains(t, out, "1318000004000000000")

			_, err = run(t, nil, "delete", "events")
			require.NoError(t, err)
			_, err = run(t, nil, "restore", "events")
			assert.Error(t, err)
		})
	}
}

func TestQuerySample(t *testing.T) {
	useStore(t, "memory")

	out, err := run(t, nil, "query", "select * from UserEvents", "--since", "@1318000000")
	require.NoError(t, err)
	assert.Contains(t, out, "(5 rows)")

	_, err = run(t, nil, "query", "select * from UserEvents", "--from", "missing")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	t.Setenv("RTAB_STORAGE_TYPE", "btree")
	_, err := run(t, nil, "fake")
	assert.Error(t, err)

	_, err = run(t, nil, "--config", filepath.Join(t.TempDir(), "none.yaml"), "list")
	assert.Error(t, err)
}
