// Package wire is the harness's IRC vocabulary: it formats the exact
// command lines sent to the server, models channel mode strings, and
// splits inbound text into parsed messages.
//
// Verbs come from gopkg.in/sorcix/irc.v2, but lines are formatted here
// rather than through irc.Message.String so that the trailing-colon
// form of every command is exactly the one the harness promises.
package wire

import (
	"strings"

	"gopkg.in/sorcix/irc.v2"

	ircerr "ircprobe/internal/errors"
)

// Command is one outbound line without its CR LF terminator.
type Command string

func (c Command) String() string { return string(c) }

// Verb returns the first token of the line.
func (c Command) Verb() string {
	s := string(c)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// Validate rejects lines that would break framing on the wire.
func (c Command) Validate() error {
	return CheckLine(string(c))
}

// CheckLine reports ErrInvalidCommand for empty text or text carrying
// CR, LF or NUL.
func CheckLine(s string) error {
	if s == "" || strings.ContainsAny(s, "\r\n\x00") {
		return ircerr.ErrInvalidCommand
	}
	return nil
}

func join(parts ...string) Command {
	return Command(strings.Join(parts, " "))
}

// Pass formats PASS <password>.
func Pass(password string) Command { return join(irc.PASS, password) }

// Nick formats NICK <nickname>.
func Nick(nick string) Command { return join(irc.NICK, nick) }

// User formats USER <username> 0 * :<realname>.
func User(username, realname string) Command {
	return join(irc.USER, username, "0", "*", ":"+realname)
}

// Join formats JOIN <channel>.
func Join(channel string) Command { return join(irc.JOIN, channel) }

// Privmsg formats PRIVMSG <target> :<text>.
func Privmsg(target, text string) Command {
	return join(irc.PRIVMSG, target, ":"+text)
}

// TopicSet formats TOPIC <channel> :<topic>.  An empty topic still
// carries the colon, which clears the topic on most servers.
func TopicSet(channel, topic string) Command {
	return join(irc.TOPIC, channel, ":"+topic)
}

// TopicQuery formats TOPIC <channel> with no trailing parameter.
func TopicQuery(channel string) Command { return join(irc.TOPIC, channel) }

// Names formats NAMES <channel>, or a bare NAMES when channel is empty.
func Names(channel string) Command {
	if channel == "" {
		return Command(irc.NAMES)
	}
	return join(irc.NAMES, channel)
}

// List formats LIST.
func List() Command { return Command(irc.LIST) }

// ModeQuery formats MODE <channel>.  It never carries a second token.
func ModeQuery(channel string) Command { return join(irc.MODE, channel) }

// SetModes formats MODE <channel> <modeString> [<param> ...].  An
// empty mode string would turn the line into a query, so it yields an
// empty Command that Validate rejects.
func SetModes(channel, modeString string, params ...string) Command {
	if strings.TrimSpace(modeString) == "" {
		return ""
	}
	parts := append([]string{irc.MODE, channel, modeString}, params...)
	return join(parts...)
}

// Part formats PART <channel> :<reason>, or PART <channel> when reason
// is empty.
func Part(channel, reason string) Command {
	if reason == "" {
		return join(irc.PART, channel)
	}
	return join(irc.PART, channel, ":"+reason)
}

// Quit formats QUIT :<message>.
func Quit(message string) Command { return join(irc.QUIT, ":"+message) }

// Pong formats PONG :<token>.
func Pong(token string) Command { return join(irc.PONG, ":"+token) }
