package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ircprobe/config"
	"ircprobe/internal/scenario"
	"ircprobe/internal/transport"
	"ircprobe/util"
)

// PlanMode is --dry-run: it prints what each scenario would do and
// checks that the targets accept connections, without registering.
type PlanMode struct {
	Scenarios []*scenario.Scenario
	Dialer    transport.Dialer // nil skips the reachability probe
	Pacing    string
	Timeout   time.Duration
	Logger    *util.Logger

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *PlanMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run prints the plan and probes each distinct target once.
func (m *PlanMode) Run(ctx context.Context) error {
	if m.Dialer != nil {
		defer m.Dialer.Close()
	}
	out := m.stdout()

	var addrs []string
	seen := map[string]bool{}
	for _, sc := range m.Scenarios {
		addr := util.FormatAddr(sc.Target.Host, sc.Target.Port)
		fmt.Fprintf(out, "%s: %s, password %q, %s\n", sc.Name, addr, sc.Target.Password, m.Pacing)
		for _, line := range planLines(sc) {
			fmt.Fprintf(out, "  %s\n", line)
		}
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}

	if m.Dialer == nil {
		fmt.Fprintln(out, "targets: built-in server, not probed")
		return nil
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = config.DefaultConnTimeout
	}
	unreachable := 0
	for _, r := range ProbeTargets(ctx, addrs, timeout, m.Dialer.Dial) {
		if r.Reachable {
			fmt.Fprintf(out, "%s reachable\n", r.Addr)
			continue
		}
		unreachable++
		fmt.Fprintf(out, "%s unreachable: %v\n", r.Addr, r.Err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d target(s) unreachable", unreachable, len(addrs))
	}
	return nil
}

// planLines summarizes a scenario's steps for the dry run.
func planLines(sc *scenario.Scenario) []string {
	switch sc.Name {
	case config.ScenarioEndToEnd:
		return []string{
			"alice and bob register and join " + scenario.E2EChannel,
			"exchange PRIVMSG, set and query the topic",
			"NAMES, LIST and MODE queries, bob parts, both quit",
		}
	case config.ScenarioModes:
		cases := make([]string, len(scenario.ModeCases))
		for i, c := range scenario.ModeCases {
			cases[i] = c.String()
		}
		return []string{
			scenario.ModesNick + " registers and joins " + scenario.ModesChannel,
			"MODE cases: " + strings.Join(cases, " | "),
			"each case is followed by a bare MODE query",
		}
	}
	return nil
}
