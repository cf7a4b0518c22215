package core

import (
	"context"
	"fmt"
	"io"
	"os"

	ircerr "ircprobe/internal/errors"
	"ircprobe/internal/events"
	"ircprobe/internal/fakeircd"
	"ircprobe/internal/scenario"
	"ircprobe/util"
)

// RunMode plays the selected scenarios, narrates them on Stdout and
// prints a summary.  It fails when a scenario aborted, when --strict
// is set and a check failed, or when the transcript differs from the
// golden file.
type RunMode struct {
	Scenarios []*scenario.Scenario
	Options   scenario.Options

	EventsPath   string
	GoldenPath   string
	UpdateGolden bool
	Strict       bool
	Stats        bool
	SelfTest     bool
	Logger       *util.Logger

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *RunMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run plays every scenario.  The dialer, the event file and any
// built-in servers are released when Run returns.
func (m *RunMode) Run(ctx context.Context) error {
	if m.Options.Dialer != nil {
		defer m.Options.Dialer.Close()
	}
	if m.Options.Session.Recorder == nil {
		m.Options.Session.Recorder = events.NewRecorder()
	}
	rec := m.Options.Session.Recorder
	out := m.stdout()
	rec.AddSink(&events.ConsoleSink{W: out})

	if m.EventsPath != "" {
		f, err := os.Create(m.EventsPath)
		if err != nil {
			return fmt.Errorf("events file: %w", err)
		}
		defer f.Close()
		rec.AddSink(events.NewJSONSink(f))
	}

	if m.SelfTest {
		stop, err := m.startSelfTest()
		if err != nil {
			return err
		}
		defer stop()
	}

	m.Logger.Verbose("run %s: %d scenario(s)", rec.RunID(), len(m.Scenarios))
	reports := scenario.NewRunner(m.Options).RunAll(ctx, m.Scenarios)

	fmt.Fprintln(out)
	if err := scenario.WriteSummary(out, reports); err != nil {
		m.Logger.Warn("summary: %v", err)
	}
	if err := rec.Err(); err != nil {
		m.Logger.Warn("event log: %v", err)
	}
	if m.Stats {
		fmt.Fprintln(out, m.Options.Session.Metrics.JSON())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error
	for _, r := range reports {
		if r.OK(m.Strict) {
			continue
		}
		cause := r.Err
		if cause == nil {
			cause = ircerr.ErrChecksFailed
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.Scenario, cause))
	}
	if err := m.golden(rec); err != nil {
		errs = append(errs, err)
	}
	return ircerr.Join(errs...)
}

// golden writes or compares the outbound transcript.
func (m *RunMode) golden(rec *events.Recorder) error {
	if m.GoldenPath == "" {
		return nil
	}
	tr := events.Transcript(rec.Events())
	if m.UpdateGolden {
		if err := events.WriteGolden(m.GoldenPath, tr); err != nil {
			return err
		}
		m.Logger.Info("wrote golden transcript %s", m.GoldenPath)
		return nil
	}
	diff, err := events.CompareGolden(m.GoldenPath, tr)
	if err != nil {
		return err
	}
	if diff != "" {
		fmt.Fprintf(m.stdout(), "\ntranscript differs from %s:\n%s", m.GoldenPath, diff)
		return fmt.Errorf("%s: %w", m.GoldenPath, ircerr.ErrGoldenMismatch)
	}
	m.Logger.Verbose("transcript matches %s", m.GoldenPath)
	return nil
}

// startSelfTest points every scenario at its own built-in server that
// expects the scenario's password.
func (m *RunMode) startSelfTest() (stop func(), err error) {
	var servers []*fakeircd.Server
	stop = func() {
		for _, s := range servers {
			s.Close()
		}
	}
	for _, sc := range m.Scenarios {
		srv, err := fakeircd.Start(fakeircd.Options{Password: sc.Target.Password, Logger: m.Logger})
		if err != nil {
			stop()
			return nil, err
		}
		servers = append(servers, srv)
		sc.Target.Host, sc.Target.Port = srv.Host(), srv.Port()
		m.Logger.Info("self-test: %s scenario uses built-in server on %s", sc.Name, srv.Addr())
	}
	return stop, nil
}
