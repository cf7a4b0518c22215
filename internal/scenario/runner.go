// Package scenario sequences sessions into the fixed conformance runs
// (end-to-end and mode concatenation), narrates every step into the
// event log and evaluates checks from what the server sent back.
package scenario

import (
	"context"
	"errors"
	"strings"
	"time"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/conn"
	"ircprobe/internal/events"
	"ircprobe/internal/session"
	"ircprobe/internal/transport"
	"ircprobe/internal/wire"
	"ircprobe/util"
)

// Target is the server a scenario talks to and the connection
// password it registers with.
type Target struct {
	Host     string
	Port     int
	Password string
}

// Scenario is a named, fixed sequence of actions against a Target.
type Scenario struct {
	Name   string
	Target Target
	play   func(ctx context.Context, r *run) error
}

// Options configure every run started by a Runner.
type Options struct {
	Dialer          transport.Dialer
	ConnectAttempts int
	Timeout         time.Duration // dial and write timeout
	Session         session.Options
	SettlePause     time.Duration
}

// Runner plays scenarios one after the other.
type Runner struct {
	opts Options
	log  *util.Logger
}

// NewRunner returns a Runner.  Without a Recorder in opts.Session a
// private one is created, since the checks read the event log.
func NewRunner(opts Options) *Runner {
	if opts.Session.Recorder == nil {
		opts.Session.Recorder = events.NewRecorder()
	}
	return &Runner{opts: opts, log: opts.Session.Logger.Named("scenario")}
}

// Recorder returns the event log the runs write to.
func (rn *Runner) Recorder() *events.Recorder { return rn.opts.Session.Recorder }

// Run plays sc to completion and reports what happened.  Every session
// that reached Connecting is closed before Run returns.
func (rn *Runner) Run(ctx context.Context, sc *Scenario) *Report {
	r := &run{
		sc:      sc,
		opts:    rn.opts,
		rec:     rn.opts.Session.Recorder,
		log:     rn.log,
		machine: NewMachine(),
		mark:    len(rn.opts.Session.Recorder.Events()),
	}
	start := time.Now()
	r.rec.Notef("", "=== %s scenario against %s ===", sc.Name, r.addr())
	err := sc.play(ctx, r)
	reached := r.machine.State()
	rep := r.finish(err)
	rep.Elapsed = time.Since(start)

	switch {
	case rep.Cancelled:
		rn.log.Warn("%s: cancelled while %s", sc.Name, reached)
	case rep.Err != nil:
		rn.log.Error("%s: %v", sc.Name, rep.Err)
	default:
		rn.log.Info("%s: %d passed, %d failed, %d unobserved",
			sc.Name, rep.Count(Pass), rep.Count(Fail), rep.Count(Unobserved))
	}
	return rep
}

// RunAll plays each scenario in order and stops early on cancellation.
func (rn *Runner) RunAll(ctx context.Context, scs []*Scenario) []*Report {
	var out []*Report
	for _, sc := range scs {
		if ctx.Err() != nil {
			break
		}
		out = append(out, rn.Run(ctx, sc))
	}
	return out
}

// ── run ──────────────────────────────────────────────────────────────

// run is the state of one scenario while it plays.
type run struct {
	sc       *Scenario
	opts     Options
	rec      *events.Recorder
	log      *util.Logger
	machine  *Machine
	sessions []*session.Session
	checks   []Check
	steps    int
	mark     int // events before this index belong to earlier runs
}

func (r *run) addr() string {
	return util.FormatAddr(r.sc.Target.Host, r.sc.Target.Port)
}

// step narrates the next numbered step.
func (r *run) step(title string) {
	r.steps++
	r.rec.Notef("", "%d. %s", r.steps, title)
}

func (r *run) check(name string, st Status, detail string) {
	r.checks = append(r.checks, Check{Name: name, Status: st, Detail: detail})
	if st == Fail {
		r.log.Warn("check %q failed: %s", name, detail)
	} else {
		r.log.Debug("check %q: %s", name, st)
	}
}

// connect opens a new session called name against the target.
func (r *run) connect(ctx context.Context, name string) (*session.Session, error) {
	if err := r.machine.To(Connecting); err != nil {
		return nil, err
	}
	c := conn.New(r.sc.Target.Host, r.sc.Target.Port, conn.Options{
		Session:         name,
		Dialer:          r.opts.Dialer,
		Recorder:        r.rec,
		Metrics:         r.opts.Session.Metrics,
		Logger:          r.opts.Session.Logger,
		ConnectAttempts: r.opts.ConnectAttempts,
		Timeout:         r.opts.Timeout,
	})
	s := session.New(name, c, r.opts.Session)
	r.sessions = append(r.sessions, s)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	r.rec.Notef(name, "connected to %s", c.Addr())
	return s, nil
}

// register registers s and records whether the welcome arrived.
func (r *run) register(ctx context.Context, s *session.Session, nick, user, realname string) error {
	if err := r.machine.To(Registering); err != nil {
		return err
	}
	obs, err := s.Register(ctx, r.sc.Target.Password, nick, user, realname)
	if err != nil {
		if !isCancel(err) {
			r.check(s.Name()+" registered", Fail, err.Error())
		}
		return err
	}
	st, detail := replied(obs)
	r.check(s.Name()+" registered", st, detail)
	return nil
}

// settle pauses between phases so slow servers catch up.
func (r *run) settle(ctx context.Context) error {
	if r.opts.SettlePause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.opts.SettlePause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// events returns what this run recorded so far.
func (r *run) events() []events.Event {
	all := r.rec.Events()
	if r.mark > len(all) {
		return nil
	}
	return all[r.mark:]
}

// inbound parses everything the named session received during this run.
func (r *run) inbound(name string) []*irc.Message {
	var b strings.Builder
	for _, ev := range r.events() {
		if ev.Session == name && ev.Direction == events.In {
			b.WriteString(ev.Text)
		}
	}
	return wire.ParseLines(b.String())
}

// outbound lists the lines the named session sent during this run.
func (r *run) outbound(name string) []string {
	var out []string
	for _, ev := range r.events() {
		if ev.Session == name && ev.Direction == events.Out {
			out = append(out, ev.Text)
		}
	}
	return out
}

// finish moves the machine to Done, closing every session on the way.
func (r *run) finish(err error) *Report {
	if err != nil && !isCancel(err) {
		if st := r.machine.State(); st == Connecting || st == Registering {
			r.machine.To(Failed) //nolint:errcheck
		}
	}
	if terr := r.machine.To(Closing); terr != nil && err == nil {
		err = terr
	}
	for _, s := range r.sessions {
		if cerr := s.Close(); cerr != nil {
			r.log.Debug("close %s: %v", s.Name(), cerr)
		}
	}
	r.machine.To(Done) //nolint:errcheck

	if isCancel(err) {
		r.rec.Notef("", "scenario cancelled by user")
	}
	r.rec.Notef("", "=== %s scenario finished ===", r.sc.Name)
	return &Report{
		Scenario:  r.sc.Name,
		Run:       r.rec.RunID(),
		Target:    r.addr(),
		State:     r.machine.State(),
		Path:      r.machine.History(),
		Checks:    r.checks,
		Err:       err,
		Cancelled: isCancel(err),
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
