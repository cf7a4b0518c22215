package fakeircd

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/wire"
)

func (s *Server) sortedChannels() []*channel {
	out := make([]*channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (s *Server) handleMode(c *client, msg *irc.Message) {
	if len(msg.Params) < 1 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.MODE, "Not enough parameters")
		return
	}
	target := msg.Params[0]
	if !validChannel(target) {
		if !strings.EqualFold(target, c.nick) {
			s.numeric(c, irc.ERR_USERSDONTMATCH, "Cannot change mode for other users")
		}
		return
	}
	ch := s.lookup(c, target)
	if ch == nil {
		return
	}
	if len(msg.Params) < 2 {
		s.numeric(c, irc.RPL_CHANNELMODEIS, append([]string{ch.name}, ch.modeReply(c)...)...)
		return
	}
	if !ch.has(c) {
		s.numeric(c, irc.ERR_NOTONCHANNEL, ch.name, "You're not on that channel")
		return
	}
	if !ch.ops[c] {
		s.numeric(c, irc.ERR_CHANOPRIVSNEEDED, ch.name, "You're not channel operator")
		return
	}

	changes, err := wire.ParseModeString(msg.Params[1], msg.Params[2:])
	if errors.Is(err, wire.ErrMissingModeParam) {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.MODE, "Not enough parameters")
	}

	var applied []wire.ModeChange
	for _, mc := range changes {
		if !strings.ContainsRune(knownModes, mc.Flag) {
			s.numeric(c, irc.ERR_UNKNOWNMODE, string(mc.Flag), "is unknown mode char to me for "+ch.name)
			continue
		}
		if ok := s.applyOne(c, ch, mc); ok {
			applied = append(applied, mc)
		}
	}
	if len(applied) == 0 {
		return
	}
	ch.modes.Apply(applied)
	params := append([]string{ch.name}, renderChanges(applied)...)
	s.broadcast(ch, nil, &irc.Message{Prefix: c.prefix(), Command: irc.MODE, Params: params})
}

// applyOne validates a single change and updates state the ModeSet
// does not track (operators).  It reports whether the change stands.
func (s *Server) applyOne(c *client, ch *channel, mc wire.ModeChange) bool {
	switch mc.Flag {
	case 'o', 'v':
		if mc.Param == "" {
			return false
		}
		who := s.nicks[strings.ToLower(mc.Param)]
		if who == nil || !ch.has(who) {
			s.numeric(c, irc.ERR_USERNOTINCHANNEL, mc.Param, ch.name, "They aren't on that channel")
			return false
		}
		if mc.Flag == 'o' {
			if mc.Add {
				ch.ops[who] = true
			} else {
				delete(ch.ops, who)
			}
		}
		return true
	case 'b':
		return mc.Param != ""
	case 'k':
		if mc.Add && mc.Param == "" {
			return false
		}
		if !mc.Add && !ch.modes.Has('k') {
			return false
		}
		return true
	case 'l':
		if !mc.Add {
			return ch.modes.Has('l')
		}
		n, err := strconv.Atoi(mc.Param)
		return err == nil && n > 0
	}
	if mc.Add == ch.modes.Has(mc.Flag) {
		return false
	}
	return true
}

// renderChanges formats changes as a mode token followed by its
// parameters, emitting a sign only when it flips: "+itk-l clave456".
func renderChanges(changes []wire.ModeChange) []string {
	var (
		b      strings.Builder
		params []string
		sign   byte
	)
	for _, mc := range changes {
		want := byte('-')
		if mc.Add {
			want = '+'
		}
		if want != sign {
			b.WriteByte(want)
			sign = want
		}
		b.WriteRune(mc.Flag)
		if mc.Param != "" && !(mc.Flag == 'k' && !mc.Add) {
			params = append(params, mc.Param)
		}
	}
	return append([]string{b.String()}, params...)
}
