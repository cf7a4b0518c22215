package session

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	ircerr "ircprobe/internal/errors"
	"ircprobe/internal/wire"
)

// Default texts for PART and QUIT.
const (
	DefaultPartReason  = "Leaving"
	DefaultQuitMessage = "Goodbye"
)

// ── reply predicates ─────────────────────────────────────────────────

func oneOf(codes ...string) func(*irc.Message) bool {
	return func(m *irc.Message) bool {
		for _, c := range codes {
			if m.Command == c {
				return true
			}
		}
		return false
	}
}

// about matches command when its parameter at index i names channel.
func about(command string, i int, channel string) func(*irc.Message) bool {
	return func(m *irc.Message) bool {
		return m.Command == command && (channel == "" || strings.EqualFold(wire.Param(m, i), channel))
	}
}

var registrationErrors = oneOf(
	irc.ERR_NONICKNAMEGIVEN, irc.ERR_ERRONEUSNICKNAME, irc.ERR_NICKNAMEINUSE,
	irc.ERR_NICKCOLLISION, irc.ERR_NEEDMOREPARAMS, irc.ERR_ALREADYREGISTRED,
	irc.ERR_PASSWDMISMATCH, irc.ERR_YOUREBANNEDCREEP, irc.ERROR,
)

var joinErrors = oneOf(
	irc.ERR_NOSUCHCHANNEL, irc.ERR_TOOMANYCHANNELS, irc.ERR_CHANNELISFULL,
	irc.ERR_INVITEONLYCHAN, irc.ERR_BANNEDFROMCHAN, irc.ERR_BADCHANNELKEY,
	irc.ERR_BADCHANMASK, irc.ERR_NEEDMOREPARAMS, irc.ERR_NOTREGISTERED,
)

var messageErrors = oneOf(
	irc.ERR_NOSUCHNICK, irc.ERR_NOSUCHCHANNEL, irc.ERR_CANNOTSENDTOCHAN,
	irc.ERR_NORECIPIENT, irc.ERR_NOTEXTTOSEND, irc.ERR_NOTREGISTERED,
)

var channelErrors = oneOf(
	irc.ERR_NOSUCHCHANNEL, irc.ERR_NOTONCHANNEL, irc.ERR_CHANOPRIVSNEEDED,
	irc.ERR_NEEDMOREPARAMS, irc.ERR_NOTREGISTERED,
)

var modeErrors = oneOf(
	irc.ERR_NOSUCHCHANNEL, irc.ERR_NOTONCHANNEL, irc.ERR_CHANOPRIVSNEEDED,
	irc.ERR_UNKNOWNMODE, irc.ERR_KEYSET, irc.ERR_NEEDMOREPARAMS, irc.ERR_NOTREGISTERED,
)

// ── actions ──────────────────────────────────────────────────────────

// Register sends PASS, NICK and USER in that order, always all three,
// then waits for the welcome numeric.  A registration error numeric or
// a server ERROR returns ErrRegistrationFailed; a missing welcome is
// only logged.
func (s *Session) Register(ctx context.Context, password, nick, username, realname string) (Observation, error) {
	var obs Observation
	short := Expect{Pause: s.opts.ShortPause, Fail: registrationErrors}

	o, err := s.do(ctx, wire.Pass(password), short)
	obs.merge(o)
	if err != nil {
		return obs, err
	}

	o, err = s.do(ctx, wire.Nick(nick), short)
	obs.merge(o)
	if err != nil {
		return obs, err
	}
	s.conn.SetNick(nick)

	o, err = s.do(ctx, wire.User(username, realname), Expect{
		What:  irc.RPL_WELCOME,
		Done:  oneOf(irc.RPL_WELCOME),
		Fail:  registrationErrors,
		Pause: s.opts.Pause,
	})
	obs.merge(o)
	if err != nil {
		return obs, err
	}

	if obs.Rejected != nil {
		return obs, ircerr.Rejected("register", obs.Rejected.Command,
			obs.Rejected.String(), ircerr.ErrRegistrationFailed)
	}
	if obs.Matched == nil && obs.Closed {
		return obs, ircerr.Rejected("register", "EOF",
			"connection closed before welcome", ircerr.ErrRegistrationFailed)
	}
	return obs, nil
}

// JoinChannel sends JOIN and waits for the end of the NAMES burst that
// follows a successful join.
func (s *Session) JoinChannel(ctx context.Context, channel string) (Observation, error) {
	return s.do(ctx, wire.Join(channel), Expect{
		What:  irc.RPL_ENDOFNAMES,
		Done:  about(irc.RPL_ENDOFNAMES, 1, channel),
		Fail:  joinErrors,
		Pause: s.opts.Pause,
	})
}

// SendMessage sends PRIVMSG.  Servers do not acknowledge messages, so
// the session only listens for the pause.
func (s *Session) SendMessage(ctx context.Context, target, text string) (Observation, error) {
	return s.do(ctx, wire.Privmsg(target, text), Expect{
		Fail:  messageErrors,
		Pause: s.opts.Pause,
	})
}

// SetTopic sends TOPIC with a trailing topic and waits for the echo.
func (s *Session) SetTopic(ctx context.Context, channel, topic string) (Observation, error) {
	return s.do(ctx, wire.TopicSet(channel, topic), Expect{
		What:  irc.TOPIC,
		Done:  about(irc.TOPIC, 0, channel),
		Fail:  channelErrors,
		Pause: s.opts.Pause,
	})
}

// GetTopic sends a bare TOPIC and waits for 332 or 331.
func (s *Session) GetTopic(ctx context.Context, channel string) (Observation, error) {
	topic, none := about(irc.RPL_TOPIC, 1, channel), about(irc.RPL_NOTOPIC, 1, channel)
	return s.do(ctx, wire.TopicQuery(channel), Expect{
		What:  irc.RPL_TOPIC,
		Done:  func(m *irc.Message) bool { return topic(m) || none(m) },
		Fail:  channelErrors,
		Pause: s.opts.Pause,
	})
}

// GetNames sends NAMES (bare when channel is empty) and waits for 366.
func (s *Session) GetNames(ctx context.Context, channel string) (Observation, error) {
	return s.do(ctx, wire.Names(channel), Expect{
		What:  irc.RPL_ENDOFNAMES,
		Done:  about(irc.RPL_ENDOFNAMES, 1, channel),
		Fail:  oneOf(irc.ERR_NOTREGISTERED),
		Pause: s.opts.Pause,
	})
}

// ListChannels sends LIST and waits for 323.
func (s *Session) ListChannels(ctx context.Context) (Observation, error) {
	return s.do(ctx, wire.List(), Expect{
		What:  irc.RPL_LISTEND,
		Done:  oneOf(irc.RPL_LISTEND),
		Fail:  oneOf(irc.ERR_NOTREGISTERED),
		Pause: s.opts.Pause,
	})
}

// GetModes sends a bare MODE query and waits for 324.
func (s *Session) GetModes(ctx context.Context, channel string) (Observation, error) {
	return s.do(ctx, wire.ModeQuery(channel), Expect{
		What:  irc.RPL_CHANNELMODEIS,
		Done:  about(irc.RPL_CHANNELMODEIS, 1, channel),
		Fail:  modeErrors,
		Pause: s.opts.Pause,
	})
}

// SetModes sends MODE with a mode string and its parameters and waits
// for the server's MODE echo.  An empty mode string is refused with
// ErrInvalidCommand and nothing is sent; use GetModes to query.  Other
// problems with the mode string are logged but the command is sent
// regardless, since how the server handles it is what is being tested.
func (s *Session) SetModes(ctx context.Context, channel, modeString string, params ...string) (Observation, error) {
	cmd := wire.SetModes(channel, modeString, params...)
	if err := cmd.Validate(); err != nil {
		return Observation{}, fmt.Errorf("MODE %s with empty mode string: %w", channel, err)
	}
	if _, err := wire.ParseModeString(modeString, params); err != nil {
		s.log.Warn("mode %s %v: %v", modeString, params, err)
	}
	return s.do(ctx, cmd, Expect{
		What:  irc.MODE,
		Done:  about(irc.MODE, 0, channel),
		Fail:  modeErrors,
		Pause: s.opts.Pause,
	})
}

// PartChannel sends PART and waits for the echo.  An empty reason
// sends PART without a trailing parameter.
func (s *Session) PartChannel(ctx context.Context, channel, reason string) (Observation, error) {
	return s.do(ctx, wire.Part(channel, reason), Expect{
		What:  irc.PART,
		Done:  about(irc.PART, 0, channel),
		Fail:  channelErrors,
		Pause: s.opts.Pause,
	})
}

// Quit sends QUIT and waits for the server's closing ERROR or for the
// connection to drop.  An empty message becomes DefaultQuitMessage.
func (s *Session) Quit(ctx context.Context, message string) (Observation, error) {
	if message == "" {
		message = DefaultQuitMessage
	}
	return s.do(ctx, wire.Quit(message), Expect{
		What:  irc.ERROR,
		Done:  oneOf(irc.ERROR),
		Pause: s.opts.Pause,
	})
}
