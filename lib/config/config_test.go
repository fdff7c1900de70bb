// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/procbridge/lib/transcript"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddress != "127.0.0.1:0" {
		t.Errorf("listen_address = %q", cfg.ListenAddress)
	}
	if cfg.KeySize != 128 {
		t.Errorf("key_size = %d, want 128", cfg.KeySize)
	}
	if cfg.HandshakeTimeout != "10s" || cfg.ShutdownTimeout != "5s" {
		t.Errorf("timeouts = %q, %q", cfg.HandshakeTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Transcript.Compression != "zstd" {
		t.Errorf("transcript.compression = %q, want zstd", cfg.Transcript.Compression)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PROCBRIDGE_CONFIG is not set")
	}
	if !strings.HasPrefix(err.Error(), "PROCBRIDGE_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	path := writeConfig(t, "bridge.yaml", "script: child.py\n")
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Script != "child.py" {
		t.Errorf("script = %q", cfg.Script)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "bridge.yml", `
interpreter: python3
script: ${CONFIG_DIR}/child.py
dir: /srv/work
env:
  PYTHONUNBUFFERED: "1"
  MODE: test
handshake_timeout: 3s
kill_grace: 500ms
max_line_size: 4096
transcript:
  path: /tmp/session.transcript
  compression: lz4
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "child.py"); cfg.Script != want {
		t.Errorf("script = %q, want %q", cfg.Script, want)
	}
	if cfg.Interpreter != "python3" || cfg.Dir != "/srv/work" {
		t.Errorf("interpreter = %q, dir = %q", cfg.Interpreter, cfg.Dir)
	}
	if cfg.MaxLineSize != 4096 {
		t.Errorf("max_line_size = %d", cfg.MaxLineSize)
	}
	// Unset fields keep their defaults.
	if cfg.KeySize != 128 || cfg.ShutdownTimeout != "5s" {
		t.Errorf("defaults lost: key_size = %d, shutdown_timeout = %q", cfg.KeySize, cfg.ShutdownTimeout)
	}
	if cfg.Transcript.Compression != "lz4" || cfg.Transcript.Path != "/tmp/session.transcript" {
		t.Errorf("transcript = %+v", cfg.Transcript)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "bridge.jsonc", `{
	// The child program.
	"script": "worker.py",
	/* Tight timeouts for tests. */
	"handshake_timeout": "250ms",
	"env": {"A": "1",},
	"transcript": {"compression": "none"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Script != "worker.py" || cfg.HandshakeTimeout != "250ms" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Env["A"] != "1" {
		t.Errorf("env = %v", cfg.Env)
	}
	if cfg.Transcript.Compression != "none" {
		t.Errorf("transcript.compression = %q", cfg.Transcript.Compression)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadFile(writeConfig(t, "bridge.toml", "script = 'x'")); err == nil {
		t.Error("expected error for an unsupported extension")
	}
	if _, err := LoadFile(writeConfig(t, "bridge.yaml", "script: [unterminated")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("PROCBRIDGE_TEST_VAR", "from-env")
	vars := map[string]string{"CONFIG_DIR": "/etc/procbridge"}

	tests := []struct {
		input string
		want  string
	}{
		{"${CONFIG_DIR}/child.py", "/etc/procbridge/child.py"},
		{"${PROCBRIDGE_TEST_VAR}", "from-env"},
		{"${PROCBRIDGE_UNSET_VAR:-fallback}", "fallback"},
		{"${PROCBRIDGE_UNSET_VAR}", ""},
		{"plain/path", "plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []string
	}{
		{
			name:   "valid",
			modify: func(c *Config) { c.Script = "child.py" },
		},
		{
			name:    "missing script",
			modify:  func(c *Config) {},
			wantErr: []string{"script is required"},
		},
		{
			name: "bad durations",
			modify: func(c *Config) {
				c.Script = "child.py"
				c.HandshakeTimeout = "soon"
				c.KillGrace = "-1s"
			},
			wantErr: []string{"handshake_timeout", "kill_grace"},
		},
		{
			name: "bad sizes and compression",
			modify: func(c *Config) {
				c.Script = "child.py"
				c.KeySize = 0
				c.MaxLineSize = -1
				c.Transcript.Compression = "brotli"
			},
			wantErr: []string{"key_size", "max_line_size", "transcript.compression"},
		},
		{
			name: "ipv6 listen address",
			modify: func(c *Config) {
				c.Script = "child.py"
				c.ListenAddress = "[::1]:0"
			},
			wantErr: []string{"listen_address"},
		},
		{
			name: "bad env name",
			modify: func(c *Config) {
				c.Script = "child.py"
				c.Env = map[string]string{"A=B": "x"}
			},
			wantErr: []string{"env"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if len(test.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, fragment := range test.wantErr {
				if !strings.Contains(err.Error(), fragment) {
					t.Errorf("error %q does not mention %q", err, fragment)
				}
			}
		})
	}
}

func TestBridge(t *testing.T) {
	cfg := Default()
	cfg.Script = "child.py"
	cfg.Interpreter = "python3"
	cfg.WriteTimeout = "1s"
	cfg.Env = map[string]string{"ZED": "26", "ALPHA": "1"}

	bridge, err := cfg.Bridge()
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	if bridge.Script != "child.py" || bridge.Interpreter != "python3" {
		t.Errorf("bridge = %+v", bridge)
	}
	if bridge.HandshakeTimeout != 10*time.Second || bridge.WriteTimeout != time.Second ||
		bridge.KillGrace != 2*time.Second || bridge.ShutdownTimeout != 5*time.Second {
		t.Errorf("durations = %v %v %v %v",
			bridge.HandshakeTimeout, bridge.WriteTimeout, bridge.KillGrace, bridge.ShutdownTimeout)
	}
	if want := []string{"ALPHA=1", "ZED=26"}; !slices.Equal(bridge.Env, want) {
		t.Errorf("env = %v, want %v", bridge.Env, want)
	}
	if bridge.KeySize != 128 || bridge.ListenAddress != "127.0.0.1:0" {
		t.Errorf("key_size = %d, listen_address = %q", bridge.KeySize, bridge.ListenAddress)
	}
}

func TestBridge_Invalid(t *testing.T) {
	if _, err := Default().Bridge(); err == nil {
		t.Fatal("expected Bridge to reject a config without a script")
	}
}

func TestTranscriptCompression(t *testing.T) {
	cfg := Default()
	compression, err := cfg.TranscriptCompression()
	if err != nil {
		t.Fatalf("TranscriptCompression: %v", err)
	}
	if compression != transcript.CompressionZstd {
		t.Errorf("compression = %v, want zstd", compression)
	}
}
