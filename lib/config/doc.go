// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration for a procbridge host.
//
// Configuration comes from a single file named either by the
// PROCBRIDGE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no search path and no per-field
// environment override.
//
// YAML (.yaml, .yml) and JSONC (.json, .jsonc) are both accepted. JSONC
// is JSON extended with // and /* */ comments and trailing commas.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${CONFIG_DIR}, other environment variables, and
// ${VAR:-default} patterns are expanded.
//
// [Config.Bridge] converts a loaded file into a procbridge.Config.
package config
