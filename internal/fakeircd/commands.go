package fakeircd

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/wire"
)

var nickRe = regexp.MustCompile(`^[A-Za-z\[\]\\` + "`" + `_^{|}][A-Za-z0-9\[\]\\` + "`" + `_^{|}-]{0,29}$`)

// knownModes are the channel flags the server accepts.
const knownModes = "iklmnpstovb"

// dispatch handles one parsed message; callers hold s.mu.  It reports
// whether the client is gone.
func (s *Server) dispatch(c *client, msg *irc.Message) bool {
	switch msg.Command {
	case irc.PASS:
		s.handlePass(c, msg)
	case irc.NICK:
		s.handleNick(c, msg)
	case irc.USER:
		s.handleUser(c, msg)
	case irc.PING:
		s.write(c, &irc.Message{
			Prefix:  &irc.Prefix{Name: s.opts.Name},
			Command: irc.PONG,
			Params:  []string{s.opts.Name, wire.LastParam(msg)},
		})
	case irc.PONG:
	case irc.QUIT:
		reason := "Client Quit"
		if len(msg.Params) > 0 {
			reason = msg.Params[0]
		}
		s.write(c, &irc.Message{
			Command: irc.ERROR,
			Params:  []string{"Closing Link: 127.0.0.1 (" + reason + ")"},
		})
		s.drop(c, reason)
		return true
	default:
		if !c.registered {
			s.numeric(c, irc.ERR_NOTREGISTERED, "You have not registered")
			return false
		}
		s.dispatchRegistered(c, msg)
	}
	return c.gone
}

func (s *Server) dispatchRegistered(c *client, msg *irc.Message) {
	switch msg.Command {
	case irc.JOIN:
		s.handleJoin(c, msg)
	case irc.PRIVMSG, irc.NOTICE:
		s.handlePrivmsg(c, msg)
	case irc.TOPIC:
		s.handleTopic(c, msg)
	case irc.NAMES:
		s.handleNames(c, msg)
	case irc.LIST:
		s.handleList(c)
	case irc.MODE:
		s.handleMode(c, msg)
	case irc.PART:
		s.handlePart(c, msg)
	default:
		s.numeric(c, irc.ERR_UNKNOWNCOMMAND, msg.Command, "Unknown command")
	}
}

// ── registration ─────────────────────────────────────────────────────

func (s *Server) handlePass(c *client, msg *irc.Message) {
	if c.registered {
		s.numeric(c, irc.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(msg.Params) < 1 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.PASS, "Not enough parameters")
		return
	}
	c.pass = msg.Params[0]
}

func (s *Server) handleNick(c *client, msg *irc.Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		s.numeric(c, irc.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	nick := msg.Params[0]
	if !nickRe.MatchString(nick) {
		s.numeric(c, irc.ERR_ERRONEUSNICKNAME, nick, "Erroneous nickname")
		return
	}
	key := strings.ToLower(nick)
	if other := s.nicks[key]; other != nil && other != c {
		s.numeric(c, irc.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return
	}
	if c.nick != "" {
		delete(s.nicks, strings.ToLower(c.nick))
	}
	if c.registered {
		echo := &irc.Message{Prefix: c.prefix(), Command: irc.NICK, Params: []string{nick}}
		s.write(c, echo)
		for _, ch := range s.channels {
			if ch.has(c) {
				s.broadcast(ch, c, echo)
			}
		}
	}
	c.nick = nick
	s.nicks[key] = c
	s.tryRegister(c)
}

func (s *Server) handleUser(c *client, msg *irc.Message) {
	if c.registered {
		s.numeric(c, irc.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(msg.Params) < 4 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.USER, "Not enough parameters")
		return
	}
	c.user = msg.Params[0]
	c.realname = msg.Params[3]
	s.tryRegister(c)
}

func (s *Server) tryRegister(c *client) {
	if c.registered || c.nick == "" || c.user == "" {
		return
	}
	if s.opts.Password != "" && c.pass != s.opts.Password {
		s.numeric(c, irc.ERR_PASSWDMISMATCH, "Password incorrect")
		s.write(c, &irc.Message{Command: irc.ERROR, Params: []string{"Closing Link: 127.0.0.1 (Bad password)"}})
		s.drop(c, "Bad password")
		c.conn.Close()
		return
	}
	c.registered = true
	s.numeric(c, irc.RPL_WELCOME, "Welcome to the Internet Relay Network "+c.prefix().String())
	s.numeric(c, irc.RPL_YOURHOST, "Your host is "+s.opts.Name+", running fakeircd")
	s.numeric(c, irc.RPL_CREATED, "This server was created for testing")
	s.numeric(c, irc.RPL_MYINFO, s.opts.Name, "fakeircd", "o", knownModes)
}

// ── channels ─────────────────────────────────────────────────────────

func validChannel(name string) bool {
	return len(name) > 1 && (name[0] == '#' || name[0] == '&') &&
		!strings.ContainsAny(name, " ,\x07")
}

func (s *Server) lookup(c *client, name string) *channel {
	ch := s.channels[strings.ToLower(name)]
	if ch == nil {
		s.numeric(c, irc.ERR_NOSUCHCHANNEL, name, "No such channel")
	}
	return ch
}

func (s *Server) handleJoin(c *client, msg *irc.Message) {
	if len(msg.Params) < 1 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.JOIN, "Not enough parameters")
		return
	}
	var keys []string
	if len(msg.Params) > 1 {
		keys = strings.Split(msg.Params[1], ",")
	}
	for i, name := range strings.Split(msg.Params[0], ",") {
		if !validChannel(name) {
			s.numeric(c, irc.ERR_BADCHANMASK, name, "Bad Channel Mask")
			continue
		}
		ch := s.channels[strings.ToLower(name)]
		if ch == nil {
			ch = &channel{name: name, ops: map[*client]bool{c: true}, modes: wire.NewModeSet()}
			s.channels[strings.ToLower(name)] = ch
		}
		if ch.has(c) {
			continue
		}
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		if ch.modes.Has('i') {
			s.numeric(c, irc.ERR_INVITEONLYCHAN, ch.name, "Cannot join channel (+i)")
			continue
		}
		if ch.modes.Has('k') && key != ch.modes.Param('k') {
			s.numeric(c, irc.ERR_BADCHANNELKEY, ch.name, "Cannot join channel (+k)")
			continue
		}
		if ch.modes.Has('l') {
			if limit, err := strconv.Atoi(ch.modes.Param('l')); err == nil && len(ch.members) >= limit {
				s.numeric(c, irc.ERR_CHANNELISFULL, ch.name, "Cannot join channel (+l)")
				continue
			}
		}

		ch.members = append(ch.members, c)
		s.broadcast(ch, nil, &irc.Message{Prefix: c.prefix(), Command: irc.JOIN, Params: []string{ch.name}})
		if ch.topic != "" {
			s.numeric(c, irc.RPL_TOPIC, ch.name, ch.topic)
		}
		s.numeric(c, irc.RPL_NAMREPLY, "=", ch.name, ch.names())
		s.numeric(c, irc.RPL_ENDOFNAMES, ch.name, "End of NAMES list")
	}
}

func (s *Server) handlePrivmsg(c *client, msg *irc.Message) {
	notice := msg.Command == irc.NOTICE
	if len(msg.Params) < 1 {
		if !notice {
			s.numeric(c, irc.ERR_NORECIPIENT, "No recipient given ("+msg.Command+")")
		}
		return
	}
	if len(msg.Params) < 2 || msg.Params[1] == "" {
		if !notice {
			s.numeric(c, irc.ERR_NOTEXTTOSEND, "No text to send")
		}
		return
	}
	target := msg.Params[0]
	relay := &irc.Message{Prefix: c.prefix(), Command: msg.Command, Params: []string{target, msg.Params[1]}}

	if validChannel(target) {
		ch := s.channels[strings.ToLower(target)]
		switch {
		case ch == nil:
			if !notice {
				s.numeric(c, irc.ERR_NOSUCHNICK, target, "No such nick/channel")
			}
		case !ch.has(c):
			if !notice {
				s.numeric(c, irc.ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
			}
		default:
			s.broadcast(ch, c, relay)
		}
		return
	}
	dst := s.nicks[strings.ToLower(target)]
	if dst == nil {
		if !notice {
			s.numeric(c, irc.ERR_NOSUCHNICK, target, "No such nick/channel")
		}
		return
	}
	s.write(dst, relay)
}

func (s *Server) handleTopic(c *client, msg *irc.Message) {
	if len(msg.Params) < 1 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.TOPIC, "Not enough parameters")
		return
	}
	ch := s.lookup(c, msg.Params[0])
	if ch == nil {
		return
	}
	if len(msg.Params) < 2 {
		if ch.topic == "" {
			s.numeric(c, irc.RPL_NOTOPIC, ch.name, "No topic is set")
		} else {
			s.numeric(c, irc.RPL_TOPIC, ch.name, ch.topic)
		}
		return
	}
	if !ch.has(c) {
		s.numeric(c, irc.ERR_NOTONCHANNEL, ch.name, "You're not on that channel")
		return
	}
	if ch.modes.Has('t') && !ch.ops[c] {
		s.numeric(c, irc.ERR_CHANOPRIVSNEEDED, ch.name, "You're not channel operator")
		return
	}
	ch.topic = msg.Params[1]
	s.broadcast(ch, nil, &irc.Message{Prefix: c.prefix(), Command: irc.TOPIC, Params: []string{ch.name, ch.topic}})
}

func (s *Server) handleNames(c *client, msg *irc.Message) {
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		for _, name := range strings.Split(msg.Params[0], ",") {
			if ch := s.channels[strings.ToLower(name)]; ch != nil {
				s.numeric(c, irc.RPL_NAMREPLY, "=", ch.name, ch.names())
			}
			s.numeric(c, irc.RPL_ENDOFNAMES, name, "End of NAMES list")
		}
		return
	}
	for _, ch := range s.sortedChannels() {
		s.numeric(c, irc.RPL_NAMREPLY, "=", ch.name, ch.names())
	}
	s.numeric(c, irc.RPL_ENDOFNAMES, "*", "End of NAMES list")
}

func (s *Server) handleList(c *client) {
	for _, ch := range s.sortedChannels() {
		if ch.modes.Has('s') && !ch.has(c) {
			continue
		}
		s.numeric(c, irc.RPL_LIST, ch.name, itoa(len(ch.members)), ch.topic)
	}
	s.numeric(c, irc.RPL_LISTEND, "End of LIST")
}

func (s *Server) handlePart(c *client, msg *irc.Message) {
	if len(msg.Params) < 1 {
		s.numeric(c, irc.ERR_NEEDMOREPARAMS, irc.PART, "Not enough parameters")
		return
	}
	for _, name := range strings.Split(msg.Params[0], ",") {
		ch := s.lookup(c, name)
		if ch == nil {
			continue
		}
		if !ch.has(c) {
			s.numeric(c, irc.ERR_NOTONCHANNEL, ch.name, "You're not on that channel")
			continue
		}
		params := []string{ch.name}
		if len(msg.Params) > 1 {
			params = append(params, msg.Params[1])
		}
		s.broadcast(ch, nil, &irc.Message{Prefix: c.prefix(), Command: irc.PART, Params: params})
		ch.remove(c)
		if len(ch.members) == 0 {
			delete(s.channels, strings.ToLower(ch.name))
		}
	}
}
