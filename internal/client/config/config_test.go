package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"marketctl"}, args...)
}

func defaults() *Config {
	var c Config
	c.LoadDefaults()
	return &c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, "http://127.0.0.1:10000", c.FileServerURL)
	assert.Equal(t, "marketctl.db", c.DatabasePath)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
}

func TestLoadConfig_NoArgs(t *testing.T) {
	withArgs(t)

	assert.Empty(t, cmp.Diff(defaults(), LoadConfig()))
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, "-a", "daemon:1", "-f", "http://fs:2", "-s", "x.db", "-i", "7", "-unknown", "v")

	want := &Config{
		ServerEndpointAddr:  "daemon:1",
		FileServerURL:       "http://fs:2",
		DatabasePath:        "x.db",
		OnlineCheckInterval: 7 * time.Second,
	}
	assert.Empty(t, cmp.Diff(want, LoadConfig()))
}

func TestLoadConfig_JSONThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketctl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_endpoint_addr": "json:1",
		"database_path": "json.db",
		"online_check_interval": "10s"
	}`), 0o600))
	withArgs(t, "-c", path, "-a", "flag:1")

	want := defaults()
	want.ServerEndpointAddr = "flag:1"
	want.DatabasePath = "json.db"
	want.OnlineCheckInterval = 10 * time.Second
	assert.Empty(t, cmp.Diff(want, LoadConfig()))
}

func TestLoadConfig_BadJSONPanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	withArgs(t, "-c", path)

	assert.Panics(t, func() { LoadConfig() })
}
