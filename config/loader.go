package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the IRCPROBE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("750ms") or a bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty,
// parseable env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("IRCPROBE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("IRCPROBE_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("IRCPROBE_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("IRCPROBE_SCENARIO"); v != "" {
		if s, err := ParseScenarios(v); err == nil {
			cfg.Scenarios = s
		}
	}
	if v := envDuration("IRCPROBE_TIMEOUT"); v > 0 {
		cfg.Timeout = v
	}
	if v := envInt("IRCPROBE_CONNECT_ATTEMPTS"); v > 0 {
		cfg.ConnectAttempts = v
	}

	// Pacing
	if envBool("IRCPROBE_FIXED_PACING") {
		cfg.FixedPacing = true
	}
	if v := envDuration("IRCPROBE_REPLY_TIMEOUT"); v > 0 {
		cfg.ReplyTimeout = v
	}
	if v := envInt("IRCPROBE_READ_SIZE"); v > 0 {
		cfg.ReadSize = v
	}

	// SSH tunnel
	if v := os.Getenv("IRCPROBE_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("IRCPROBE_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("IRCPROBE_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("IRCPROBE_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("IRCPROBE_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	if v := os.Getenv("IRCPROBE_PROXY"); v != "" {
		cfg.ProxyAddr = v
	}

	// Output
	if v := os.Getenv("IRCPROBE_EVENTS"); v != "" {
		cfg.EventsPath = v
	}
	if v := os.Getenv("IRCPROBE_GOLDEN"); v != "" {
		cfg.GoldenPath = v
	}
	if envBool("IRCPROBE_STRICT") {
		cfg.Strict = true
	}
	if v := envInt("IRCPROBE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}
