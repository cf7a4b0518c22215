package scenario

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/config"
	"ircprobe/internal/session"
)

// Fixtures of the end-to-end scenario.
const (
	E2EChannel     = config.DefaultE2EChannel
	E2EGreeting    = "Hola a todos!"
	E2EReply       = "Hola Alice!"
	E2ETopic       = "Canal de prueba para IRC"
	E2EPartReason  = "Adiós!"
	E2EQuitMessage = "Test completado"
)

// EndToEnd returns the two-user scenario: alice and bob register, meet
// in a channel, greet each other, work the topic, query names, list
// and modes, then bob parts and both quit.
func EndToEnd(t Target) *Scenario {
	return &Scenario{Name: config.ScenarioEndToEnd, Target: t, play: playEndToEnd}
}

func playEndToEnd(ctx context.Context, r *run) error {
	r.step("Creating client alice")
	alice, err := r.connect(ctx, "alice")
	if err != nil {
		return err
	}
	if err := r.register(ctx, alice, "alice", "alice", "Alice User"); err != nil {
		return err
	}

	r.step("Creating client bob")
	bob, err := r.connect(ctx, "bob")
	if err != nil {
		return err
	}
	if err := r.register(ctx, bob, "bob", "bob", "Bob User"); err != nil {
		return err
	}
	if err := r.machine.To(Active); err != nil {
		return err
	}

	r.step("alice joins " + E2EChannel)
	obs, err := alice.JoinChannel(ctx, E2EChannel)
	if err != nil {
		return err
	}
	st, detail := replied(obs)
	r.check("alice joined "+E2EChannel, st, detail)

	r.step("bob joins " + E2EChannel)
	if obs, err = bob.JoinChannel(ctx, E2EChannel); err != nil {
		return err
	}
	st, detail = replied(obs)
	r.check("bob joined "+E2EChannel, st, detail)

	r.step("alice greets the channel")
	if _, err = alice.SendMessage(ctx, E2EChannel, E2EGreeting); err != nil {
		return err
	}

	r.step("bob replies")
	if _, err = bob.SendMessage(ctx, E2EChannel, E2EReply); err != nil {
		return err
	}

	r.step("alice sets the topic")
	if obs, err = alice.SetTopic(ctx, E2EChannel, E2ETopic); err != nil {
		return err
	}
	st, detail = replied(obs)
	r.check("topic set", st, detail)

	r.step("bob queries the topic")
	if obs, err = bob.GetTopic(ctx, E2EChannel); err != nil {
		return err
	}
	st, detail = topicIs(obs, E2ETopic)
	r.check("topic query returns the topic", st, detail)

	r.step("alice queries names")
	if obs, err = alice.GetNames(ctx, E2EChannel); err != nil {
		return err
	}
	st, detail = namesInclude(obs, alice.Nick(), bob.Nick())
	r.check("NAMES lists alice and bob", st, detail)

	r.step("bob lists channels")
	if obs, err = bob.ListChannels(ctx); err != nil {
		return err
	}
	st, detail = listIncludes(obs, E2EChannel)
	r.check("LIST shows "+E2EChannel, st, detail)

	r.step("alice queries modes")
	if obs, err = alice.GetModes(ctx, E2EChannel); err != nil {
		return err
	}
	st, detail = replied(obs)
	r.check("MODE query answered", st, detail)

	r.step("bob leaves " + E2EChannel)
	if obs, err = bob.PartChannel(ctx, E2EChannel, E2EPartReason); err != nil {
		return err
	}
	st, detail = replied(obs)
	r.check("bob parted "+E2EChannel, st, detail)

	r.step("Closing connections")
	if err := r.machine.To(Closing); err != nil {
		return err
	}
	for _, s := range []*session.Session{alice, bob} {
		if _, err := s.Quit(ctx, E2EQuitMessage); err != nil {
			return err
		}
	}

	st, detail = sawMessage(r.inbound("bob"), irc.PRIVMSG, "alice", E2EGreeting)
	r.check("bob received alice's message", st, detail)
	st, detail = sawMessage(r.inbound("alice"), irc.PRIVMSG, "bob", E2EReply)
	r.check("alice received bob's message", st, detail)
	r.checkSentOnce("alice", "PRIVMSG "+E2EChannel+" :"+E2EGreeting)
	r.checkSentOnce("bob", "PRIVMSG "+E2EChannel+" :"+E2EReply)
	r.checkEndsWithQuit("alice", "bob")
	return nil
}

func (r *run) checkSentOnce(session, line string) {
	n := 0
	for _, l := range r.outbound(session) {
		if l == line {
			n++
		}
	}
	st := Pass
	if n != 1 {
		st = Fail
	}
	r.check(session+" sent its message once", st, fmt.Sprintf("%q sent %d time(s)", line, n))
}

func (r *run) checkEndsWithQuit(sessions ...string) {
	for _, s := range sessions {
		out := r.outbound(s)
		if len(out) > 0 && strings.HasPrefix(out[len(out)-1], irc.QUIT+" ") {
			r.check(s+" ended with QUIT", Pass, out[len(out)-1])
			continue
		}
		last := "(nothing sent)"
		if len(out) > 0 {
			last = out[len(out)-1]
		}
		r.check(s+" ended with QUIT", Fail, "last line "+last)
	}
}
