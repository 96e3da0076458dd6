package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
engine: quickjs
interface: eth0
script: https://wpad.example/proxy.pac
memory_limit_mb: 32
execution_timeout_ms: 250
max_script_size_kb: 512
resolve_timeout_ms: 1500
reclaim_interval_ms: 50
fetch_timeout_sec: 10
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacrunner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "quickjs", cfg.Engine)
	assert.Equal(t, "eth0", cfg.Interface)
	assert.Equal(t, "https://wpad.example/proxy.pac", cfg.Script)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())

	ec := cfg.EngineConfig()
	assert.Equal(t, 32, ec.MemoryLimitMB)
	assert.Equal(t, 250*time.Millisecond, ec.Timeout())
	assert.Equal(t, 512, ec.MaxScriptSizeKB)
	assert.Equal(t, 1500*time.Millisecond, ec.ResolveTimeout())
	assert.Equal(t, 50*time.Millisecond, ec.ReclaimInterval())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout())
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("script: a.pac\nengines: v8\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "minimal", cfg: Config{Script: "proxy.pac"}},
		{name: "auto engine", cfg: Config{Script: "proxy.pac", Engine: "auto"}},
		{name: "v8 engine", cfg: Config{Script: "proxy.pac", Engine: "v8"}},
		{name: "missing script", cfg: Config{}, wantErr: true},
		{name: "unknown engine", cfg: Config{Script: "proxy.pac", Engine: "spidermonkey"}, wantErr: true},
		{name: "negative timeout", cfg: Config{Script: "proxy.pac", ExecutionTimeoutMs: -1}, wantErr: true},
		{name: "negative memory", cfg: Config{Script: "proxy.pac", MemoryLimitMB: -5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	b, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	assert.Contains(t, props, "script")
	assert.Contains(t, props, "engine")
	assert.Contains(t, props, "execution_timeout_ms")
	assert.Contains(t, doc["required"], "script")
}
