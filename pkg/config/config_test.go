package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.HTTP)
	assert.Equal(t, "bypass-lan-china", cfg.Profile.Route)
	assert.Equal(t, 5450, cfg.Profile.LocalDNSPort)
	assert.Equal(t, 1080, cfg.Profile.ProxyPort)
	assert.Equal(t, "hosts", cfg.Resolver.HostsFile)
	assert.Equal(t, 120, cfg.Resolver.MinimumTTL)
	assert.Equal(t, 4096, cfg.Resolver.CacheSize)
	assert.Equal(t, "china_ip_list.txt", cfg.Resolver.IPNetworkFile)
	assert.Equal(t, "file", cfg.GetDatabaseType())
	assert.False(t, cfg.IsSQLiteEnabled())
	assert.Equal(t, filepath.Join("data", "boomacl.db"), cfg.GetSQLiteFile())
	assert.Equal(t, 30*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, int64(8<<20), cfg.Fetch.MaxBytes)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"bad port":     "profile:\n  proxy_port: 70000\n",
		"bad database": "persistence:\n  database:\n    type: mysql\n",
		"bad level":    "logging:\n  level: loud\n",
		"bad format":   "logging:\n  format: xml\n",
		"bad yaml":     "profile: [\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadAndSaveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Profile.Route = "gfwlist"
	cfg.Persistence.Database.Type = "sqlite"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gfwlist", loaded.Profile.Route)
	assert.True(t, loaded.IsSQLiteEnabled())

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "配置文件不存在")

	require.NoError(t, os.WriteFile(path, []byte("\t:bad"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
