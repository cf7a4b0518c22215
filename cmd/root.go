// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"ircprobe/config"
	"ircprobe/internal/core"
	"ircprobe/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ircprobe/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// promptSecret reads the IRC password for --ask-pass; tests replace it.
var promptSecret = util.PromptSecret //nolint:gochecknoglobals

// cliOnly holds flags that do not map one-to-one onto Config fields.
type cliOnly struct {
	timeoutSec      int
	replyTimeoutSec float64
	verbose         int
	showVersion     bool
	showHelp        bool
}

// Execute parses args and runs the selected scenarios.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// First pass only finds --config so the file can sit underneath
	// the environment and the flags.
	probe := config.Default()
	fs, _ := newFlagSet(probe, stderr)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		printUsage(stderr, fs)
		return err
	}

	cfg := config.Default()
	if probe.ConfigPath != "" {
		if err := config.LoadFile(probe.ConfigPath, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	fs, cli := newFlagSet(cfg, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cli.showHelp {
		printUsage(stderr, fs)
		return nil
	}
	if cli.showVersion {
		fmt.Fprintf(stdout, "ircprobe %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(cli.timeoutSec) * time.Second
	}
	if fs.Changed("reply-timeout") {
		cfg.ReplyTimeout = time.Duration(cli.replyTimeoutSec * float64(time.Second))
	}
	if cli.verbose > 0 {
		cfg.Verbose = 1 + cli.verbose
	}

	// ── positional arguments ─────────────────────────────────────
	if rest := fs.Args(); len(rest) > 0 {
		names, err := config.ParseScenarios(strings.Join(rest, ","))
		if err != nil {
			return err
		}
		cfg.Scenarios = names
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.AskPass {
		pw, err := promptSecret("IRC password: ")
		if err != nil {
			return fmt.Errorf("password prompt: %w", err)
		}
		cfg.Password = pw
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	setStdout(mode, stdout)

	err = mode.Run(ctx)
	if errors.Is(err, context.Canceled) || (err != nil && ctx.Err() != nil) {
		fmt.Fprintln(stderr, "scenario cancelled by user")
		return nil
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

func newFlagSet(cfg *config.Config, stderr io.Writer) (*flag.FlagSet, *cliOnly) {
	cli := &cliOnly{}
	fs := flag.NewFlagSet("ircprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── target ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Server host (default: localhost for e2e, 127.0.0.1 for modes)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Server port (default 6667)")
	fs.StringVarP(&cfg.Password, "password", "P", cfg.Password, "Connection password (default: testpass for e2e, password for modes)")
	fs.BoolVar(&cfg.AskPass, "ask-pass", cfg.AskPass, "Prompt for the connection password")
	fs.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "TOML config file")
	fs.IntVarP(&cli.timeoutSec, "timeout", "w", int(cfg.Timeout/time.Second), "Dial timeout in seconds")
	fs.IntVar(&cfg.ConnectAttempts, "connect-attempts", cfg.ConnectAttempts, "Dial attempts with backoff")
	fs.BoolVar(&cfg.SelfTest, "self-test", cfg.SelfTest, "Run against a built-in server")

	// ── pacing ───────────────────────────────────────────────────
	fs.Float64Var(&cli.replyTimeoutSec, "reply-timeout", cfg.ReplyTimeout.Seconds(), "Seconds to wait for an expected reply")
	fs.BoolVar(&cfg.FixedPacing, "fixed-pacing", cfg.FixedPacing, "Sleep fixed pauses instead of matching replies")
	fs.IntVar(&cfg.ReadSize, "read-size", cfg.ReadSize, "Bytes requested per receive")

	// ── SSH tunnel / proxy ───────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server via SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.StringVar(&cfg.ProxyAddr, "proxy", cfg.ProxyAddr, "Reach the server via SOCKS5 proxy [user:pass@]host:port")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.EventsPath, "events", cfg.EventsPath, "Write the event log as JSON lines to file")
	fs.StringVar(&cfg.GoldenPath, "golden", cfg.GoldenPath, "Compare the sent transcript with a golden file")
	fs.BoolVar(&cfg.UpdateGolden, "update-golden", cfg.UpdateGolden, "Write the transcript to --golden instead")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Exit non-zero when a check fails")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print metrics as JSON at the end")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Print the plan and probe targets without registering")
	fs.CountVarP(&cli.verbose, "verbose", "v", "Increase verbosity (repeatable)")

	fs.BoolVar(&cli.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&cli.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }
	return fs, cli
}

func setStdout(mode core.Mode, w io.Writer) {
	switch m := mode.(type) {
	case *core.RunMode:
		m.Stdout = w
	case *core.PlanMode:
		m.Stdout = w
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `ircprobe – IRC server conformance harness v%s

Drives a running IRC server through scripted client sessions and
reports what it answered.

Usage:
  ircprobe [options] [e2e|modes|all]

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  ircprobe                                  Both scenarios against port 6667
  ircprobe -p 6697 -P secret modes          Mode scenario with another password
  ircprobe --strict --golden e2e.golden e2e Fail on bad checks or transcript drift
  ircprobe -T admin@bastion -H 10.0.0.5     Through an SSH gateway
  ircprobe --self-test -v                   Against the built-in server
`)
}
