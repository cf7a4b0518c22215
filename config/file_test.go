package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ircprobe.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
host = "irc.example.net"
port = 6697
password = "fromfile"
scenarios = ["modes"]
proxy = "127.0.0.1:1080"

[pacing]
reply_timeout = "5s"
pause = "250ms"
read_size = 1024

[tunnel]
spec = "admin@bastion:2222"
agent = true

[output]
events = "run.jsonl"
strict = true
`)
	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Host != "irc.example.net" || cfg.Port != 6697 || cfg.Password != "fromfile" {
		t.Errorf("target = %s:%d pw=%q", cfg.Host, cfg.Port, cfg.Password)
	}
	if !reflect.DeepEqual(cfg.Scenarios, []string{"modes"}) {
		t.Errorf("Scenarios = %v", cfg.Scenarios)
	}
	if cfg.ProxyAddr != "127.0.0.1:1080" {
		t.Errorf("ProxyAddr = %q", cfg.ProxyAddr)
	}
	if cfg.ReplyTimeout != 5*time.Second {
		t.Errorf("ReplyTimeout = %v", cfg.ReplyTimeout)
	}
	if cfg.Pause != 250*time.Millisecond {
		t.Errorf("Pause = %v", cfg.Pause)
	}
	if cfg.ShortPause != DefaultShortPause {
		t.Errorf("ShortPause changed to %v although absent from file", cfg.ShortPause)
	}
	if cfg.ReadSize != 1024 {
		t.Errorf("ReadSize = %d", cfg.ReadSize)
	}
	if cfg.TunnelSpec != "admin@bastion:2222" || !cfg.UseSSHAgent {
		t.Errorf("tunnel = %q agent=%v", cfg.TunnelSpec, cfg.UseSSHAgent)
	}
	if cfg.EventsPath != "run.jsonl" || !cfg.Strict {
		t.Errorf("output = %q strict=%v", cfg.EventsPath, cfg.Strict)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeConfig(t, "hots = \"typo\"\n")
	if err := LoadFile(path, Default()); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFile_BadDuration(t *testing.T) {
	path := writeConfig(t, "[pacing]\npause = \"soon\"\n")
	if err := LoadFile(path, Default()); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), Default()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "host = \"fromfile\"\n")
	t.Setenv("IRCPROBE_HOST", "fromenv")

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatal(err)
	}
	LoadFromEnv(cfg)
	if cfg.Host != "fromenv" {
		t.Errorf("Host = %q, want fromenv", cfg.Host)
	}
}
