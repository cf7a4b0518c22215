package wire

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	ircerr "ircprobe/internal/errors"
)

var (
	// ErrMissingModeParam means a flag that needs a parameter had none left.
	ErrMissingModeParam = ircerr.New("mode flag is missing its parameter")
	// ErrExtraModeParams means parameters were left after every flag was served.
	ErrExtraModeParams = ircerr.New("more mode parameters than flags consume")
)

// ModeChange is one signed flag of a mode string.
type ModeChange struct {
	Add   bool
	Flag  rune
	Param string
}

func (c ModeChange) String() string {
	sign := "-"
	if c.Add {
		sign = "+"
	}
	if c.Param != "" {
		return fmt.Sprintf("%s%c %s", sign, c.Flag, c.Param)
	}
	return fmt.Sprintf("%s%c", sign, c.Flag)
}

type paramRule int

const (
	paramNone paramRule = iota
	paramOptional
	paramRequired
)

// ruleFor returns how flag consumes positional parameters under sign.
func ruleFor(flag rune, add bool) paramRule {
	switch flag {
	case 'k':
		if add {
			return paramRequired
		}
		return paramOptional
	case 'l':
		if add {
			return paramRequired
		}
		return paramNone
	case 'o', 'v':
		return paramRequired
	case 'b':
		return paramOptional
	}
	return paramNone
}

// ParseModeString splits a concatenated mode token such as "+itk-l"
// into signed changes, handing out params left to right to the flags
// that take one.  A sign holds until the next sign; with no leading
// sign the letters are additions.
//
// The changes are returned even when an error is reported, so callers
// can still model what the server will most likely do.
func ParseModeString(modeString string, params []string) ([]ModeChange, error) {
	var (
		changes []ModeChange
		errs    []error
		add     = true
		next    int
	)
	for _, r := range modeString {
		switch r {
		case '+':
			add = true
			continue
		case '-':
			add = false
			continue
		}
		c := ModeChange{Add: add, Flag: r}
		switch ruleFor(r, add) {
		case paramRequired:
			if next < len(params) {
				c.Param = params[next]
				next++
			} else {
				errs = append(errs, fmt.Errorf("%w: %s", ErrMissingModeParam, c))
			}
		case paramOptional:
			if next < len(params) {
				c.Param = params[next]
				next++
			}
		}
		changes = append(changes, c)
	}
	if next < len(params) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrExtraModeParams, strings.Join(params[next:], " ")))
	}
	return changes, ircerr.Join(errs...)
}

// ModeSet is the effective set of channel modes.  Membership modes
// (o, v) and ban-list entries (b) are not channel state and are ignored.
type ModeSet struct {
	flags  map[rune]bool
	params map[rune]string
}

// NewModeSet returns an empty set, as for a freshly created channel.
func NewModeSet() *ModeSet {
	return &ModeSet{flags: map[rune]bool{}, params: map[rune]string{}}
}

// Apply folds changes into the set in order.
func (m *ModeSet) Apply(changes []ModeChange) {
	for _, c := range changes {
		switch c.Flag {
		case 'o', 'v', 'b':
			continue
		}
		if !c.Add {
			delete(m.flags, c.Flag)
			delete(m.params, c.Flag)
			continue
		}
		m.flags[c.Flag] = true
		if c.Param != "" {
			m.params[c.Flag] = c.Param
		}
	}
}

// Has reports whether flag is active.
func (m *ModeSet) Has(flag rune) bool { return m.flags[flag] }

// Param returns the parameter recorded for flag, if any.
func (m *ModeSet) Param(flag rune) string { return m.params[flag] }

// Flags returns the active flags in sorted order.
func (m *ModeSet) Flags() []rune {
	out := make([]rune, 0, len(m.flags))
	for f := range m.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders "+<flags> <params>" with flags sorted and parameters
// in flag order, e.g. "+iklt clave123 50".
func (m *ModeSet) String() string {
	var b strings.Builder
	b.WriteByte('+')
	var params []string
	for _, f := range m.Flags() {
		b.WriteRune(f)
		if p := m.params[f]; p != "" {
			params = append(params, p)
		}
	}
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	return b.String()
}

// ParseChannelModeIs decodes a 324 reply (<me> <channel> <modes>
// [<params>...]) into the channel name and its mode set.  Some servers
// send modes and parameters as one trailing parameter
// (":+itk clave456"); both forms are accepted.  Servers that hide the
// key from non-members leave k without a parameter; that is accepted.
func ParseChannelModeIs(msg *irc.Message) (string, *ModeSet, error) {
	if msg == nil || msg.Command != irc.RPL_CHANNELMODEIS {
		return "", nil, fmt.Errorf("not a %s reply", irc.RPL_CHANNELMODEIS)
	}
	if len(msg.Params) < 3 {
		return "", nil, fmt.Errorf("%s reply has %d params, want at least 3",
			irc.RPL_CHANNELMODEIS, len(msg.Params))
	}
	var tokens []string
	for _, p := range msg.Params[2:] {
		tokens = append(tokens, strings.Fields(p)...)
	}
	set := NewModeSet()
	if len(tokens) == 0 {
		return msg.Params[1], set, nil
	}
	changes, _ := ParseModeString(tokens[0], tokens[1:])
	set.Apply(changes)
	return msg.Params[1], set, nil
}
