package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winspan/boomacl/pkg/config"
)

func readAll(t *testing.T, s Store, id string) string {
	t.Helper()
	rc, err := s.Open(id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func testStore(t *testing.T, s Store) {
	assert.False(t, s.Exists("gfwlist"))
	_, err := s.Open("gfwlist")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write("gfwlist", strings.NewReader("[proxy_all]\n")))
	assert.True(t, s.Exists("gfwlist"))
	assert.Equal(t, "[proxy_all]\n", readAll(t, s, "gfwlist"))

	require.NoError(t, s.Write("gfwlist", strings.NewReader("[bypass_all]\n")))
	assert.Equal(t, "[bypass_all]\n", readAll(t, s, "gfwlist"))

	require.Error(t, s.Write("gfwlist", failReader{}))
	assert.Equal(t, "[bypass_all]\n", readAll(t, s, "gfwlist"))

	assert.Error(t, s.Write("../escape", strings.NewReader("x")))
	require.NoError(t, s.Close())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom-rules.acl"), s.Path("custom-rules"))
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "boomacl.db"))
	require.NoError(t, err)

	_, err = s.UpdatedAt("gfwlist")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Write("china-list", strings.NewReader("x")))
	ts, err := s.UpdatedAt("china-list")
	require.NoError(t, err)
	assert.False(t, ts.IsZero())

	testStore(t, s)
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Persistence.DataDir = t.TempDir()
	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	cfg.Persistence.Database.Type = "sqlite"
	cfg.Persistence.Database.SQLiteFile = filepath.Join(cfg.Persistence.DataDir, "rules.db")
	s, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.Persistence.Database.Type = "mysql"
	_, err = New(cfg)
	assert.Error(t, err)
}
