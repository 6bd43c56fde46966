package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_Embedded(t *testing.T) {
	ms, err := Discover()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "001", ms[0].Version)
	assert.Equal(t, "001_ledger_core.sql", ms[0].Filename)
	assert.Len(t, ms[0].Checksum, 64)
	assert.Contains(t, ms[0].SQL, "CREATE TABLE IF NOT EXISTS stock_movements")
}

func TestDiscover_SortsAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
	}
	ms, err := discover(fsys)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001_first.sql", ms[0].Filename)
	assert.Equal(t, "002_second.sql", ms[1].Filename)
}

func TestDiscover_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := discover(fsys)
	assert.ErrorContains(t, err, "duplicate migration version 001")
}

func TestDiscover_RejectsBadFilename(t *testing.T) {
	fsys := fstest.MapFS{"schema.sql": {Data: []byte("SELECT 1;")}}
	_, err := discover(fsys)
	assert.ErrorContains(t, err, "invalid migration filename")
}

func TestDiscover_ChecksumTracksContent(t *testing.T) {
	a, err := discover(fstest.MapFS{"001_x.sql": {Data: []byte("SELECT 1;")}})
	require.NoError(t, err)
	b, err := discover(fstest.MapFS{"001_x.sql": {Data: []byte("SELECT 2;")}})
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Checksum, b[0].Checksum)
}
