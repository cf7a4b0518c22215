package wire

import (
	"strconv"
	"strings"

	"gopkg.in/sorcix/irc.v2"
)

// SplitLines breaks raw text into lines on LF, dropping CR and empty
// lines.  A trailing line without terminator is kept.
func SplitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ParseLines parses every complete-looking line in text.  Lines the
// parser rejects are skipped; the raw text stays available to callers.
func ParseLines(text string) []*irc.Message {
	var out []*irc.Message
	for _, l := range SplitLines(text) {
		if m := irc.ParseMessage(l); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// LineBuffer reassembles lines that a server reply split across reads.
type LineBuffer struct {
	partial string
}

// Feed appends a received fragment and returns the lines it completed,
// without terminators.
func (b *LineBuffer) Feed(fragment string) []string {
	data := b.partial + fragment
	i := strings.LastIndexByte(data, '\n')
	if i < 0 {
		b.partial = data
		return nil
	}
	b.partial = data[i+1:]
	return SplitLines(data[:i+1])
}

// Pending returns the unterminated tail seen so far.
func (b *LineBuffer) Pending() string { return b.partial }

// Reset discards any pending tail.
func (b *LineBuffer) Reset() { b.partial = "" }

// ── Reply helpers ────────────────────────────────────────────────────

// IsNumeric reports whether command is a three-digit numeric reply.
func IsNumeric(command string) bool {
	if len(command) != 3 {
		return false
	}
	_, err := strconv.Atoi(command)
	return err == nil
}

// IsErrorReply reports whether command is an error numeric (400-599)
// or the ERROR verb a server sends before closing the link.
func IsErrorReply(command string) bool {
	if command == irc.ERROR {
		return true
	}
	if !IsNumeric(command) {
		return false
	}
	return command[0] == '4' || command[0] == '5'
}

// Sender returns the nick (or server name) of the message prefix.
func Sender(msg *irc.Message) string {
	if msg == nil || msg.Prefix == nil {
		return ""
	}
	return msg.Prefix.Name
}

// LastParam returns the final parameter, usually the trailing text.
func LastParam(msg *irc.Message) string {
	if msg == nil || len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[len(msg.Params)-1]
}

// Param returns the i-th parameter or "".
func Param(msg *irc.Message, i int) string {
	if msg == nil || i < 0 || i >= len(msg.Params) {
		return ""
	}
	return msg.Params[i]
}

// NamesFrom extracts the nicknames listed in a 353 reply, stripping
// the channel-membership prefix (@, +, %, ~, &).
func NamesFrom(msg *irc.Message) []string {
	if msg == nil || msg.Command != irc.RPL_NAMREPLY {
		return nil
	}
	var out []string
	for _, n := range strings.Fields(LastParam(msg)) {
		n = strings.TrimLeft(n, "@+%~&")
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
