package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// duration lets TOML files spell pauses as "750ms" or "2s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// fileConfig mirrors the subset of Config that may be set from a file:
//
//	host = "irc.example.net"
//	port = 6667
//	scenarios = ["modes"]
//
//	[pacing]
//	reply_timeout = "5s"
//	pause = "250ms"
//
//	[tunnel]
//	spec = "admin@bastion:2222"
type fileConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	Password        string   `toml:"password"`
	Timeout         duration `toml:"timeout"`
	ConnectAttempts int      `toml:"connect_attempts"`
	Scenarios       []string `toml:"scenarios"`
	Proxy           string   `toml:"proxy"`

	Pacing struct {
		Fixed        bool     `toml:"fixed"`
		ReplyTimeout duration `toml:"reply_timeout"`
		ShortPause   duration `toml:"short_pause"`
		Pause        duration `toml:"pause"`
		SettlePause  duration `toml:"settle_pause"`
		ReadSize     int      `toml:"read_size"`
	} `toml:"pacing"`

	Tunnel struct {
		Spec          string `toml:"spec"`
		KeyPath       string `toml:"key"`
		UseAgent      bool   `toml:"agent"`
		StrictHostKey bool   `toml:"strict_hostkey"`
		KnownHosts    string `toml:"known_hosts"`
	} `toml:"tunnel"`

	Output struct {
		Events string `toml:"events"`
		Golden string `toml:"golden"`
		Strict bool   `toml:"strict"`
		Stats  bool   `toml:"stats"`
	} `toml:"output"`
}

// LoadFile overlays the TOML file at path onto cfg.  Keys absent from
// the file leave cfg untouched; unknown keys are rejected so typos do
// not silently fall back to defaults.
func LoadFile(path string, cfg *Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.Password != "" {
		cfg.Password = fc.Password
	}
	if fc.Timeout.Duration > 0 {
		cfg.Timeout = fc.Timeout.Duration
	}
	if fc.ConnectAttempts != 0 {
		cfg.ConnectAttempts = fc.ConnectAttempts
	}
	if len(fc.Scenarios) > 0 {
		cfg.Scenarios = fc.Scenarios
	}
	if fc.Proxy != "" {
		cfg.ProxyAddr = fc.Proxy
	}

	if fc.Pacing.Fixed {
		cfg.FixedPacing = true
	}
	if fc.Pacing.ReplyTimeout.Duration > 0 {
		cfg.ReplyTimeout = fc.Pacing.ReplyTimeout.Duration
	}
	if fc.Pacing.ShortPause.Duration > 0 {
		cfg.ShortPause = fc.Pacing.ShortPause.Duration
	}
	if fc.Pacing.Pause.Duration > 0 {
		cfg.Pause = fc.Pacing.Pause.Duration
	}
	if fc.Pacing.SettlePause.Duration > 0 {
		cfg.SettlePause = fc.Pacing.SettlePause.Duration
	}
	if fc.Pacing.ReadSize != 0 {
		cfg.ReadSize = fc.Pacing.ReadSize
	}

	if fc.Tunnel.Spec != "" {
		cfg.TunnelSpec = fc.Tunnel.Spec
	}
	if fc.Tunnel.KeyPath != "" {
		cfg.SSHKeyPath = fc.Tunnel.KeyPath
	}
	if fc.Tunnel.UseAgent {
		cfg.UseSSHAgent = true
	}
	if fc.Tunnel.StrictHostKey {
		cfg.StrictHostKey = true
	}
	if fc.Tunnel.KnownHosts != "" {
		cfg.KnownHostsPath = fc.Tunnel.KnownHosts
	}

	if fc.Output.Events != "" {
		cfg.EventsPath = fc.Output.Events
	}
	if fc.Output.Golden != "" {
		cfg.GoldenPath = fc.Output.Golden
	}
	if fc.Output.Strict {
		cfg.Strict = true
	}
	if fc.Output.Stats {
		cfg.Stats = true
	}
	return nil
}
