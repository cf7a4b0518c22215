// Package session drives one logical IRC user over a conn.Connection.
// Each action formats its command with the wire package, sends it, and
// then listens for the server's replies under the configured Pacer,
// answering server PINGs on the way.
package session

import (
	"context"
	"time"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/conn"
	ircerr "ircprobe/internal/errors"
	"ircprobe/internal/events"
	"ircprobe/internal/metrics"
	"ircprobe/internal/wire"
	"ircprobe/util"
)

// pollSlice bounds each read so cancellation is noticed promptly.
const pollSlice = 250 * time.Millisecond

// Options configure pacing and reporting for a Session.
type Options struct {
	Pacer      Pacer
	ShortPause time.Duration // after PASS and NICK
	Pause      time.Duration // after every other command
	ReadSize   int
	Recorder   *events.Recorder
	Metrics    *metrics.Collector
	Logger     *util.Logger
}

// Observation is what one action saw on the wire.
type Observation struct {
	Lines    []string       // complete lines, terminators removed
	Messages []*irc.Message // the lines that parsed
	Matched  *irc.Message   // the reply that completed the action
	Rejected *irc.Message   // an error reply refusing the action
	TimedOut bool           // an expected reply never arrived
	Closed   bool           // the server hung up while we listened
}

// Find returns every message with the given command or numeric.
func (o Observation) Find(command string) []*irc.Message {
	var out []*irc.Message
	for _, m := range o.Messages {
		if m.Command == command {
			out = append(out, m)
		}
	}
	return out
}

// First returns the first message with the given command, or nil.
func (o Observation) First(command string) *irc.Message {
	for _, m := range o.Messages {
		if m.Command == command {
			return m
		}
	}
	return nil
}

func (o *Observation) merge(other Observation) {
	o.Lines = append(o.Lines, other.Lines...)
	o.Messages = append(o.Messages, other.Messages...)
	if other.Matched != nil {
		o.Matched = other.Matched
	}
	if other.Rejected != nil && o.Rejected == nil {
		o.Rejected = other.Rejected
	}
	o.TimedOut = o.TimedOut || other.TimedOut
	o.Closed = o.Closed || other.Closed
}

// Session is a named user bound to one connection.
type Session struct {
	name string
	conn *conn.Connection
	opts Options
	log  *util.Logger
	buf  wire.LineBuffer
}

// New binds a session called name to c.
func New(name string, c *conn.Connection, opts Options) *Session {
	if opts.Pacer == nil {
		opts.Pacer = FixedPacer{}
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = util.DefaultReadSize
	}
	return &Session{name: name, conn: c, opts: opts, log: opts.Logger.Named(name)}
}

// Name returns the role name, e.g. "alice".
func (s *Session) Name() string { return s.name }

// Conn returns the underlying connection.
func (s *Session) Conn() *conn.Connection { return s.conn }

// Nick returns the nickname recorded by Register.
func (s *Session) Nick() string { return s.conn.Nick() }

// Connect opens the session's connection.
func (s *Session) Connect(ctx context.Context) error { return s.conn.Connect(ctx) }

// Close releases the session's connection.
func (s *Session) Close() error { return s.conn.Close() }

// do sends cmd and listens according to exp.  Send failures are logged
// and absorbed; only cancellation is returned as an error.
func (s *Session) do(ctx context.Context, cmd wire.Command, exp Expect) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	if err := s.conn.Send(cmd.String()); err != nil {
		s.log.Debug("%s not sent: %v", cmd.Verb(), err)
	}
	return s.await(ctx, exp)
}

func (s *Session) await(ctx context.Context, exp Expect) (Observation, error) {
	wait, stop := s.opts.Pacer.Window(exp)
	obs, err := s.collect(ctx, wait, stop)
	if err != nil {
		return obs, err
	}

	for _, m := range obs.Messages {
		if exp.Fail != nil && exp.Fail(m) {
			obs.Rejected = m
			break
		}
	}
	if exp.Done != nil && obs.Matched == nil {
		for _, m := range obs.Messages {
			if exp.Done(m) {
				obs.Matched = m
				break
			}
		}
	}
	if obs.Matched != nil && exp.Fail != nil && exp.Fail(obs.Matched) {
		obs.Matched = nil
	}

	switch {
	case obs.Rejected != nil:
		s.log.Warn("server refused: %s", obs.Rejected)
	case obs.Matched != nil:
		s.opts.Metrics.ReplyMatched()
	case exp.Done != nil && stop != nil && !obs.Closed:
		obs.TimedOut = true
		s.opts.Metrics.ReplyTimedOut()
		s.log.Warn("%v: waited %s for %s", ircerr.ErrReplyTimeout, wait, exp.What)
		s.opts.Recorder.Notef(s.name, "(no %s within %s)", exp.What, wait)
	}
	return obs, nil
}

// collect reads for up to wait, splitting fragments into lines, and
// returns early once stop accepts a message.  PINGs are answered.
func (s *Session) collect(ctx context.Context, wait time.Duration, stop func(*irc.Message) bool) (Observation, error) {
	var obs Observation
	deadline := time.Now().Add(wait)
	for {
		if err := ctx.Err(); err != nil {
			return obs, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return obs, nil
		}
		if remaining > pollSlice {
			remaining = pollSlice
		}

		text, err := s.conn.ReceiveWithin(s.opts.ReadSize, remaining)
		// The whole read is consumed even after a match: lines that
		// arrived in the same segment belong to this observation.
		for _, line := range s.buf.Feed(text) {
			obs.Lines = append(obs.Lines, line)
			msg := irc.ParseMessage(line)
			if msg == nil {
				continue
			}
			obs.Messages = append(obs.Messages, msg)
			if msg.Command == irc.PING {
				s.pong(msg)
			}
			if obs.Matched == nil && stop != nil && stop(msg) {
				obs.Matched = msg
			}
		}
		if obs.Matched != nil {
			return obs, nil
		}
		if err != nil && !util.IsTimeout(err) {
			obs.Closed = true
			return obs, nil
		}
	}
}

func (s *Session) pong(ping *irc.Message) {
	token := wire.LastParam(ping)
	if token == "" {
		token = s.Nick()
	}
	if err := s.conn.Send(wire.Pong(token).String()); err != nil {
		s.log.Debug("PONG not sent: %v", err)
	}
}
