package scenario

import (
	"fmt"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/session"
	"ircprobe/internal/wire"
)

// Status is the outcome of one check.
type Status int

const (
	// Unobserved means the evidence never arrived, e.g. the reply came
	// after the listening window closed.
	Unobserved Status = iota
	Pass
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	}
	return "unobserved"
}

// MarshalText renders the status in JSON reports.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Check is one verified property of a run.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ── evaluators ───────────────────────────────────────────────────────

// replied judges an action by its own reply: matched passes, a refusal
// fails, silence is unobserved.
func replied(obs session.Observation) (Status, string) {
	switch {
	case obs.Rejected != nil:
		return Fail, obs.Rejected.String()
	case obs.Matched != nil:
		return Pass, obs.Matched.String()
	case obs.Closed:
		return Fail, "connection closed"
	}
	return Unobserved, ""
}

// sawMessage looks through msgs for command from nick with text as
// the last parameter.
func sawMessage(msgs []*irc.Message, command, nick, text string) (Status, string) {
	for _, m := range msgs {
		if m.Command == command && strings.EqualFold(wire.Sender(m), nick) && wire.LastParam(m) == text {
			return Pass, m.String()
		}
	}
	return Unobserved, ""
}

// topicIs checks a TOPIC query reply against the topic that was set.
func topicIs(obs session.Observation, want string) (Status, string) {
	if st, detail := replied(obs); st != Pass {
		return st, detail
	}
	if obs.Matched.Command == irc.RPL_NOTOPIC {
		return Fail, "server reports no topic"
	}
	if got := wire.LastParam(obs.Matched); got != want {
		return Fail, fmt.Sprintf("topic %q, want %q", got, want)
	}
	return Pass, want
}

// namesInclude checks that the NAMES burst lists every nick.
func namesInclude(obs session.Observation, nicks ...string) (Status, string) {
	listed := map[string]bool{}
	for _, m := range obs.Find(irc.RPL_NAMREPLY) {
		for _, n := range wire.NamesFrom(m) {
			listed[strings.ToLower(n)] = true
		}
	}
	var missing []string
	for _, n := range nicks {
		if !listed[strings.ToLower(n)] {
			missing = append(missing, n)
		}
	}
	switch {
	case len(missing) == 0:
		return Pass, strings.Join(nicks, " ")
	case obs.Matched != nil:
		return Fail, "missing " + strings.Join(missing, ", ")
	}
	return Unobserved, ""
}

// listIncludes checks the LIST burst for channel.
func listIncludes(obs session.Observation, channel string) (Status, string) {
	for _, m := range obs.Find(irc.RPL_LIST) {
		if strings.EqualFold(wire.Param(m, 1), channel) {
			return Pass, m.String()
		}
	}
	if obs.Matched != nil {
		return Fail, channel + " not listed"
	}
	return Unobserved, ""
}

// modesMatch compares a 324 reply with the modes a channel should
// have.  Every expected flag must be present and every flag in
// touched that is not expected must be absent.  Parameters are only
// compared when the server echoes them.
func modesMatch(obs session.Observation, want *wire.ModeSet, touched []rune) (Status, string) {
	if st, detail := replied(obs); st != Pass {
		return st, detail
	}
	_, got, err := wire.ParseChannelModeIs(obs.Matched)
	if err != nil {
		return Fail, err.Error()
	}
	var problems []string
	for _, f := range touched {
		switch {
		case want.Has(f) && !got.Has(f):
			problems = append(problems, fmt.Sprintf("%c missing", f))
		case !want.Has(f) && got.Has(f):
			problems = append(problems, fmt.Sprintf("%c still set", f))
		}
	}
	for _, f := range want.Flags() {
		wp, gp := want.Param(f), got.Param(f)
		if wp != "" && gp != "" && gp != "*" && gp != wp {
			problems = append(problems, fmt.Sprintf("%c=%s, want %s", f, gp, wp))
		}
	}
	if len(problems) > 0 {
		return Fail, fmt.Sprintf("got %s, want %s: %s", got, want, strings.Join(problems, "; "))
	}
	return Pass, got.String()
}
