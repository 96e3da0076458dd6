// Package config loads the pacrunner command's YAML configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// DefaultFetchTimeout bounds downloading a script given by URL.
const DefaultFetchTimeout = 30 * time.Second

// Config is the on-disk configuration of the pacrunner command.
type Config struct {
	Engine             string `yaml:"engine" json:"engine,omitempty" validate:"omitempty,oneof=auto quickjs v8" jsonschema:"enum=auto,enum=quickjs,enum=v8,default=auto,description=Script engine; auto picks the highest priority one compiled in"`
	Interface          string `yaml:"interface" json:"interface,omitempty" jsonschema:"description=Network interface whose IPv4 address myIpAddress() returns"`
	Script             string `yaml:"script" json:"script" validate:"required" jsonschema:"description=Path or http(s) URL of the PAC script"`
	MemoryLimitMB      int    `yaml:"memory_limit_mb" json:"memory_limit_mb,omitempty" validate:"gte=0" jsonschema:"minimum=0"`
	ExecutionTimeoutMs int    `yaml:"execution_timeout_ms" json:"execution_timeout_ms,omitempty" validate:"gte=0" jsonschema:"minimum=0,description=0 disables the watchdog"`
	MaxScriptSizeKB    int    `yaml:"max_script_size_kb" json:"max_script_size_kb,omitempty" validate:"gte=0" jsonschema:"minimum=0"`
	ResolveTimeoutMs   int    `yaml:"resolve_timeout_ms" json:"resolve_timeout_ms,omitempty" validate:"gte=0" jsonschema:"minimum=0,default=5000"`
	ReclaimIntervalMs  int    `yaml:"reclaim_interval_ms" json:"reclaim_interval_ms,omitempty" validate:"gte=0" jsonschema:"minimum=0,default=100"`
	FetchTimeoutSec    int    `yaml:"fetch_timeout_sec" json:"fetch_timeout_sec,omitempty" validate:"gte=0" jsonschema:"minimum=0,default=30"`
}

// Load reads and decodes the YAML file at path. Unknown keys are rejected.
// The result is not validated; callers merge flags first and then Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// EngineConfig returns the engine settings.
func (c *Config) EngineConfig() core.EngineConfig {
	return core.EngineConfig{
		MemoryLimitMB:     c.MemoryLimitMB,
		ExecutionTimeout:  c.ExecutionTimeoutMs,
		MaxScriptSizeKB:   c.MaxScriptSizeKB,
		ResolveTimeoutMs:  c.ResolveTimeoutMs,
		ReclaimIntervalMs: c.ReclaimIntervalMs,
	}
}

// FetchTimeout returns the script download timeout.
func (c *Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutSec <= 0 {
		return DefaultFetchTimeout
	}
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// Schema returns the JSON Schema describing Config.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&Config{})

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return b, nil
}
