package session

import (
	"time"

	"gopkg.in/sorcix/irc.v2"
)

// Expect describes what an action waits for after sending.
type Expect struct {
	// What names the awaited reply in log lines, e.g. "001".
	What string
	// Done reports whether msg is the reply that completes the action.
	// Nil means the action has no reply to wait for.
	Done func(msg *irc.Message) bool
	// Fail reports whether msg is the server refusing the action.
	Fail func(msg *irc.Message) bool
	// Pause is the fixed interval this step gets when not matching
	// replies, and the drain window for actions without a reply.
	Pause time.Duration
}

func (e Expect) stop(msg *irc.Message) bool {
	if e.Done != nil && e.Done(msg) {
		return true
	}
	return e.Fail != nil && e.Fail(msg)
}

// Pacer decides how long a step listens and when it may stop early.
// A nil stop function means "listen for the whole window".
type Pacer interface {
	Window(exp Expect) (wait time.Duration, stop func(*irc.Message) bool)
}

// FixedPacer listens for each step's fixed pause regardless of what
// arrives.
type FixedPacer struct{}

func (FixedPacer) Window(exp Expect) (time.Duration, func(*irc.Message) bool) {
	return exp.Pause, nil
}

// ReplyPacer listens until the expected reply (or a refusal) arrives,
// for at most Timeout.  Steps with no expected reply still listen for
// their pause but stop early on a refusal.
type ReplyPacer struct {
	Timeout time.Duration
}

func (p ReplyPacer) Window(exp Expect) (time.Duration, func(*irc.Message) bool) {
	if exp.Done == nil {
		if exp.Fail == nil {
			return exp.Pause, nil
		}
		return exp.Pause, exp.Fail
	}
	return p.Timeout, exp.stop
}
