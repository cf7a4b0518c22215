package config

import (
	"reflect"
	"testing"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── Scenario selection ───────────────────────────────────────────────

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"e2e", []string{"e2e"}, false},
		{"modes", []string{"modes"}, false},
		{"E2E, modes", []string{"e2e", "modes"}, false},
		{"all", []string{"all"}, false},
		{"", nil, true},
		{"smoke", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScenarios(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScenarios(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandScenarios(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"all"}, []string{"e2e", "modes"}},
		{[]string{"modes", "e2e"}, []string{"e2e", "modes"}},
		{[]string{"modes", "modes"}, []string{"modes"}},
		{[]string{"e2e", "all"}, []string{"e2e", "modes"}},
	}
	for _, tt := range tests {
		cfg := &Config{Scenarios: tt.in}
		if got := cfg.ExpandScenarios(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExpandScenarios(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTargetDefaults(t *testing.T) {
	cfg := Default()
	if got := cfg.HostFor(DefaultE2EHost); got != "localhost" {
		t.Errorf("HostFor = %q, want localhost", got)
	}
	if got := cfg.HostFor(DefaultModeHost); got != "127.0.0.1" {
		t.Errorf("HostFor = %q, want 127.0.0.1", got)
	}
	if got := cfg.PortOrDefault(); got != 6667 {
		t.Errorf("PortOrDefault = %d, want 6667", got)
	}
	if got := cfg.PasswordFor(DefaultModePassword); got != "password" {
		t.Errorf("PasswordFor = %q", got)
	}

	cfg.Host = "irc.example.net"
	cfg.Port = 7000
	cfg.Password = "s3cret"
	if cfg.HostFor(DefaultE2EHost) != "irc.example.net" || cfg.HostFor(DefaultModeHost) != "irc.example.net" {
		t.Error("explicit host should override both scenario defaults")
	}
	if cfg.PortOrDefault() != 7000 {
		t.Error("explicit port should win")
	}
	if cfg.PasswordFor(DefaultE2EPassword) != "s3cret" {
		t.Error("explicit password should win")
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	valid := func(mut func(c *Config)) Config {
		c := Default()
		mut(c)
		return *c
	}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", valid(func(c *Config) {}), false},
		{"explicit target", valid(func(c *Config) { c.Host = "irc.local"; c.Port = 6697 }), false},
		{"port out of range", valid(func(c *Config) { c.Port = 70000 }), true},
		{"zero attempts", valid(func(c *Config) { c.ConnectAttempts = 0 }), true},
		{"read size too big", valid(func(c *Config) { c.ReadSize = MaxReadSize + 1 }), true},
		{"read size zero", valid(func(c *Config) { c.ReadSize = 0 }), true},
		{"no reply timeout", valid(func(c *Config) { c.ReplyTimeout = 0 }), true},
		{"fixed pacing needs no reply timeout", valid(func(c *Config) { c.ReplyTimeout = 0; c.FixedPacing = true }), false},
		{"negative pause", valid(func(c *Config) { c.Pause = -1 }), true},
		{"no scenario", valid(func(c *Config) { c.Scenarios = nil }), true},
		{"bad scenario", valid(func(c *Config) { c.Scenarios = []string{"smoke"} }), true},
		{"update golden without path", valid(func(c *Config) { c.UpdateGolden = true }), true},
		{"ask-pass and password", valid(func(c *Config) { c.AskPass = true; c.Password = "x" }), true},
		{"tunnel without host", valid(func(c *Config) { c.TunnelEnabled = true }), true},
		{"tunnel", valid(func(c *Config) { c.TunnelEnabled = true; c.TunnelHost = "gw" }), false},
		{"proxy", valid(func(c *Config) { c.ProxyAddr = "127.0.0.1:1080" }), false},
		{"proxy and tunnel", valid(func(c *Config) { c.ProxyAddr = "p:1080"; c.TunnelEnabled = true; c.TunnelHost = "gw" }), true},
		{"self-test", valid(func(c *Config) { c.SelfTest = true }), false},
		{"self-test through proxy", valid(func(c *Config) { c.SelfTest = true; c.ProxyAddr = "p:1080" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
