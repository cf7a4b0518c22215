// Package config defines the runtime configuration for ircprobe and
// provides helpers for parsing tunnel specifications and scenario names.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ircerr "ircprobe/internal/errors"
)

// Config holds every tuneable for one ircprobe invocation.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Host            string // empty → each scenario's own default
	Port            int    // 0 → DefaultPort
	Password        string // empty → each scenario's own default
	AskPass         bool
	Timeout         time.Duration
	ConnectAttempts int
	Scenarios       []string

	// ── Pacing ───────────────────────────────────────────────────────
	FixedPacing  bool
	ReplyTimeout time.Duration
	ShortPause   time.Duration
	Pause        time.Duration
	SettlePause  time.Duration
	ReadSize     int

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── SOCKS proxy ──────────────────────────────────────────────────
	ProxyAddr string // [socks5://][user:pass@]host:port

	// ── Output ───────────────────────────────────────────────────────
	ConfigPath   string
	EventsPath   string
	GoldenPath   string
	UpdateGolden bool
	Strict       bool
	Stats        bool
	Verbose      int
	DryRun       bool
	SelfTest     bool // run against an in-process server
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Timeout:         DefaultConnTimeout,
		ConnectAttempts: DefaultConnectAttempts,
		Scenarios:       []string{ScenarioAll},
		ReplyTimeout:    DefaultReplyTimeout,
		ShortPause:      DefaultShortPause,
		Pause:           DefaultPause,
		SettlePause:     DefaultSettlePause,
		ReadSize:        DefaultReadSize,
		Verbose:         1,
	}
}

// HostFor returns the configured host, or def when none was given.
func (c *Config) HostFor(def string) string {
	if c.Host != "" {
		return c.Host
	}
	return def
}

// PortOrDefault returns the configured port or DefaultPort.
func (c *Config) PortOrDefault() int {
	if c.Port != 0 {
		return c.Port
	}
	return DefaultPort
}

// PasswordFor returns the configured password, or def when none was given.
func (c *Config) PasswordFor(def string) string {
	if c.Password != "" {
		return c.Password
	}
	return def
}

// ExpandScenarios resolves "all" and removes duplicates, preserving the
// canonical order e2e, modes.
func (c *Config) ExpandScenarios() []string {
	want := map[string]bool{}
	for _, s := range c.Scenarios {
		if s == ScenarioAll {
			want[ScenarioEndToEnd] = true
			want[ScenarioModes] = true
			continue
		}
		want[s] = true
	}
	var out []string
	for _, s := range []string{ScenarioEndToEnd, ScenarioModes} {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}

// ParseScenarios splits a comma separated list such as "e2e,modes".
func ParseScenarios(spec string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(spec, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		switch name {
		case ScenarioEndToEnd, ScenarioModes, ScenarioAll:
			out = append(out, name)
		default:
			return nil, fmt.Errorf("unknown scenario %q (want %s, %s or %s)",
				name, ScenarioEndToEnd, ScenarioModes, ScenarioAll)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario given")
	}
	return out, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port != 0 && (c.Port < 1 || c.Port > 65535) {
		return &ircerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "IRC servers usually listen on 6667",
		}
	}
	if c.ConnectAttempts < 1 {
		return &ircerr.ConfigError{
			Field:   "connect-attempts",
			Value:   c.ConnectAttempts,
			Message: "must be at least 1",
		}
	}
	if c.ReadSize < 1 || c.ReadSize > MaxReadSize {
		return &ircerr.ConfigError{
			Field:   "read-size",
			Value:   c.ReadSize,
			Message: fmt.Sprintf("must be between 1 and %d", MaxReadSize),
		}
	}
	if !c.FixedPacing && c.ReplyTimeout <= 0 {
		return &ircerr.ConfigError{
			Field:   "reply-timeout",
			Value:   c.ReplyTimeout,
			Message: "must be positive",
			Hint:    "use --fixed-pacing to disable reply matching instead",
		}
	}
	if c.ShortPause < 0 || c.Pause < 0 || c.SettlePause < 0 {
		return &ircerr.ConfigError{Field: "pause", Message: "pauses cannot be negative"}
	}
	if len(c.Scenarios) == 0 {
		return &ircerr.ConfigError{
			Field:   "scenario",
			Message: "no scenario selected",
			Hint:    "pass e2e, modes or all",
		}
	}
	for _, s := range c.Scenarios {
		if s != ScenarioEndToEnd && s != ScenarioModes && s != ScenarioAll {
			return &ircerr.ConfigError{Field: "scenario", Value: s, Message: "unknown scenario"}
		}
	}
	if c.UpdateGolden && c.GoldenPath == "" {
		return &ircerr.ConfigError{
			Field:   "golden",
			Message: "required with --update-golden",
		}
	}
	if c.AskPass && c.Password != "" {
		return fmt.Errorf("--ask-pass and --password are mutually exclusive")
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}
	if c.TunnelEnabled && c.ProxyAddr != "" {
		return &ircerr.ConfigError{
			Field:   "proxy",
			Value:   c.ProxyAddr,
			Message: "cannot be combined with an SSH tunnel",
		}
	}
	if c.SelfTest && (c.TunnelEnabled || c.ProxyAddr != "") {
		return &ircerr.ConfigError{
			Field:   "self-test",
			Message: "the built-in server is only reachable directly",
			Hint:    "drop -T/--proxy when using --self-test",
		}
	}
	return nil
}
