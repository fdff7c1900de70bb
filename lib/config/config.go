// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/procbridge/lib/handshake"
	"github.com/bureau-foundation/procbridge/lib/netutil"
	"github.com/bureau-foundation/procbridge/lib/transcript"
	"github.com/bureau-foundation/procbridge/procbridge"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "PROCBRIDGE_CONFIG"

// Config is the file form of a bridge and its host's settings.
// Durations are Go duration strings ("10s", "500ms").
type Config struct {
	// Interpreter runs the script. Empty means python3, then python.
	Interpreter string `yaml:"interpreter" json:"interpreter"`

	// Script is the child program passed to the interpreter.
	Script string `yaml:"script" json:"script"`

	// Dir is the child's working directory.
	Dir string `yaml:"dir" json:"dir"`

	// Env is added to the child's environment.
	Env map[string]string `yaml:"env" json:"env"`

	// ListenAddress is the address the bridge binds. The host must be
	// 127.0.0.1; only the port may be chosen.
	// Default: 127.0.0.1:0
	ListenAddress string `yaml:"listen_address" json:"listen_address"`

	// KeySize is the handshake key length in bytes.
	// Default: 128
	KeySize int `yaml:"key_size" json:"key_size"`

	// HandshakeTimeout bounds how long a connection may take to send
	// the key.
	// Default: 10s
	HandshakeTimeout string `yaml:"handshake_timeout" json:"handshake_timeout"`

	// WriteTimeout bounds each line written to the child. Empty or "0"
	// means no bound.
	WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`

	// KillGrace is the time between SIGTERM and SIGKILL at shutdown.
	// Default: 2s
	KillGrace string `yaml:"kill_grace" json:"kill_grace"`

	// ShutdownTimeout bounds each wait during shutdown.
	// Default: 5s
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// MaxLineSize is the longest line accepted from the child.
	// Default: 1048576
	MaxLineSize int `yaml:"max_line_size" json:"max_line_size"`

	// Transcript configures session recording.
	Transcript TranscriptConfig `yaml:"transcript" json:"transcript"`
}

// TranscriptConfig configures session recording.
type TranscriptConfig struct {
	// Path is where the transcript is written. Empty disables
	// recording.
	Path string `yaml:"path" json:"path"`

	// Compression is none, zstd, or lz4.
	// Default: zstd
	Compression string `yaml:"compression" json:"compression"`
}

// Default returns the configuration that file values are loaded over.
func Default() *Config {
	return &Config{
		ListenAddress:    netutil.DefaultLoopbackAddress,
		KeySize:          handshake.DefaultKeySize,
		HandshakeTimeout: procbridge.DefaultHandshakeTimeout.String(),
		KillGrace:        "2s",
		ShutdownTimeout:  procbridge.DefaultShutdownTimeout.String(),
		MaxLineSize:      procbridge.DefaultMaxLineSize,
		Transcript: TranscriptConfig{
			Compression: transcript.CompressionZstd.String(),
		},
	}
}

// Load loads configuration from the file named by PROCBRIDGE_CONFIG.
// There is no search path: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a YAML or JSONC config file, or use --config",
			EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path. The format follows the
// extension: .yaml and .yml are YAML; .json and .jsonc are JSON with
// comments and trailing commas allowed. Values are loaded over Default
// and ${VAR} references in path fields are expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.expandVariables(path)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("unsupported config extension %q (want .yaml, .yml, .json, or .jsonc)", filepath.Ext(path))
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
// ${CONFIG_DIR} is the directory holding the config file, so scripts
// can be named relative to it.
func (c *Config) expandVariables(configPath string) {
	configDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		configDir = filepath.Dir(configPath)
	}
	vars := map[string]string{
		"CONFIG_DIR": configDir,
		"HOME":       os.Getenv("HOME"),
	}

	c.Interpreter = expandVars(c.Interpreter, vars)
	c.Script = expandVars(c.Script, vars)
	c.Dir = expandVars(c.Dir, vars)
	c.Transcript.Path = expandVars(c.Transcript.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Script == "" {
		errs = append(errs, errors.New("script is required"))
	}
	if c.KeySize <= 0 {
		errs = append(errs, fmt.Errorf("key_size must be positive, got %d", c.KeySize))
	}
	if c.MaxLineSize <= 0 {
		errs = append(errs, fmt.Errorf("max_line_size must be positive, got %d", c.MaxLineSize))
	}
	if err := netutil.CheckListenAddress(c.ListenAddress); err != nil {
		errs = append(errs, fmt.Errorf("listen_address: %w", err))
	}
	for _, field := range c.durationFields() {
		if _, err := parseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}
	if _, err := transcript.ParseCompression(c.Transcript.Compression); err != nil {
		errs = append(errs, fmt.Errorf("transcript.compression: %w", err))
	}
	for name := range c.Env {
		if name == "" || strings.ContainsAny(name, "=\x00") {
			errs = append(errs, fmt.Errorf("env: invalid variable name %q", name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

type durationField struct {
	name  string
	value string
}

func (c *Config) durationFields() []durationField {
	return []durationField{
		{name: "handshake_timeout", value: c.HandshakeTimeout},
		{name: "write_timeout", value: c.WriteTimeout},
		{name: "kill_grace", value: c.KillGrace},
		{name: "shutdown_timeout", value: c.ShutdownTimeout},
	}
}

// parseDuration parses a non-negative duration. Empty means zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", value)
	}
	return duration, nil
}

// Bridge converts the file configuration into a procbridge.Config. The
// caller fills in the Observer, Logger, and Clock. Bridge validates c
// first.
func (c *Config) Bridge() (procbridge.Config, error) {
	if err := c.Validate(); err != nil {
		return procbridge.Config{}, err
	}

	bridge := procbridge.Config{
		Interpreter:   c.Interpreter,
		Script:        c.Script,
		Dir:           c.Dir,
		Env:           c.environment(),
		ListenAddress: c.ListenAddress,
		KeySize:       c.KeySize,
		MaxLineSize:   c.MaxLineSize,
	}
	// Validate has already parsed every duration.
	bridge.HandshakeTimeout, _ = parseDuration(c.HandshakeTimeout)
	bridge.WriteTimeout, _ = parseDuration(c.WriteTimeout)
	bridge.KillGrace, _ = parseDuration(c.KillGrace)
	bridge.ShutdownTimeout, _ = parseDuration(c.ShutdownTimeout)
	return bridge, nil
}

// TranscriptCompression returns the parsed transcript compression.
func (c *Config) TranscriptCompression() (transcript.Compression, error) {
	return transcript.ParseCompression(c.Transcript.Compression)
}

// environment returns Env as KEY=VALUE pairs in key order.
func (c *Config) environment() []string {
	if len(c.Env) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Env))
	for name := range c.Env {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+c.Env[name])
	}
	return pairs
}
