// Package fakeircd is a small in-process IRC server.  It implements
// just enough of RFC 2812 (registration, channels, topics, NAMES, LIST,
// channel modes, PART, QUIT) for the harness to be exercised end to end
// without an external server, and records every line it receives.
package fakeircd

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/wire"
	"ircprobe/util"
)

// DefaultName is the server name used in reply prefixes.
const DefaultName = "irc.test"

// Options configure a Server.
type Options struct {
	Name     string   // reply prefix; DefaultName when empty
	Password string   // connection password; empty accepts any
	Mute     []string // commands recorded but never answered
	Logger   *util.Logger
}

// Server is a running fake IRC server on a loopback port.
type Server struct {
	opts Options
	ln   net.Listener
	log  *util.Logger
	mute map[string]bool

	mu       sync.Mutex
	clients  []*client
	nicks    map[string]*client
	channels map[string]*channel
	closed   bool

	wg sync.WaitGroup
}

type client struct {
	id   int
	conn net.Conn
	wmu  sync.Mutex

	pass       string
	nick       string
	user       string
	realname   string
	registered bool
	gone       bool
	received   []string
}

type channel struct {
	name    string
	topic   string
	members []*client
	ops     map[*client]bool
	modes   *wire.ModeSet
}

// Start listens on 127.0.0.1 with an ephemeral port and serves until
// Close.
func Start(opts Options) (*Server, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("fakeircd: %w", err)
	}
	s := &Server{
		opts:     opts,
		ln:       ln,
		log:      opts.Logger.Named("fakeircd"),
		mute:     map[string]bool{},
		nicks:    map[string]*client{},
		channels: map[string]*channel{},
	}
	for _, m := range opts.Mute {
		s.mute[strings.ToUpper(m)] = true
	}
	s.wg.Add(1)
	go s.accept()
	return s, nil
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Host returns the listening IP.
func (s *Server) Host() string { return s.ln.Addr().(*net.TCPAddr).IP.String() }

// Port returns the listening port.
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Close stops accepting, drops every client and waits for the
// handlers to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.ln.Close()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Received returns the lines received from the client that last held
// nick, in order.  Lines sent before NICK (PASS) are included.
func (s *Server) Received(nick string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.clients) - 1; i >= 0; i-- {
		if c := s.clients[i]; strings.EqualFold(c.nick, nick) {
			return append([]string(nil), c.received...)
		}
	}
	return nil
}

// Clients returns how many connections were accepted so far.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ChannelModes renders the mode set of a channel, "" if it does not exist.
func (s *Server) ChannelModes(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch := s.channels[strings.ToLower(name)]; ch != nil {
		return ch.modes.String()
	}
	return ""
}

// Topic returns the topic of a channel.
func (s *Server) Topic(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch := s.channels[strings.ToLower(name)]; ch != nil {
		return ch.topic
	}
	return ""
}

// Ping sends PING :token to the client holding nick.
func (s *Server) Ping(nick, token string) error {
	s.mu.Lock()
	c := s.nicks[strings.ToLower(nick)]
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("fakeircd: no client %q", nick)
	}
	s.write(c, &irc.Message{Command: irc.PING, Params: []string{token}})
	return nil
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		c := &client{id: len(s.clients) + 1, conn: conn}
		s.clients = append(s.clients, c)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *client) {
	defer s.wg.Done()
	defer c.conn.Close()

	r := bufio.NewReader(c.conn)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			if quit := s.handleLine(c, line); quit {
				return
			}
		}
		if err != nil {
			s.mu.Lock()
			s.drop(c, "Connection closed")
			s.mu.Unlock()
			return
		}
	}
}

func (s *Server) handleLine(c *client, line string) (quit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.received = append(c.received, line)
	msg := irc.ParseMessage(line)
	if msg == nil {
		s.log.Debug("unparseable line from client %d: %q", c.id, line)
		return false
	}
	msg.Command = strings.ToUpper(msg.Command)
	if s.mute[msg.Command] {
		return false
	}
	return s.dispatch(c, msg)
}

// ── output helpers (callers hold s.mu) ───────────────────────────────

func (s *Server) write(c *client, msg *irc.Message) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write([]byte(msg.String() + "\r\n")); err != nil && !util.IsHarmless(err) {
		s.log.Debug("write to client %d: %v", c.id, err)
	}
}

func (s *Server) numeric(c *client, code string, params ...string) {
	target := c.nick
	if target == "" {
		target = "*"
	}
	s.write(c, &irc.Message{
		Prefix:  &irc.Prefix{Name: s.opts.Name},
		Command: code,
		Params:  append([]string{target}, params...),
	})
}

func (c *client) prefix() *irc.Prefix {
	return &irc.Prefix{Name: c.nick, User: c.user, Host: "127.0.0.1"}
}

func (s *Server) broadcast(ch *channel, except *client, msg *irc.Message) {
	for _, m := range ch.members {
		if m != except {
			s.write(m, msg)
		}
	}
}

func (ch *channel) has(c *client) bool {
	for _, m := range ch.members {
		if m == c {
			return true
		}
	}
	return false
}

func (ch *channel) remove(c *client) {
	for i, m := range ch.members {
		if m == c {
			ch.members = append(ch.members[:i], ch.members[i+1:]...)
			break
		}
	}
	delete(ch.ops, c)
}

func (ch *channel) names() string {
	var out []string
	for _, m := range ch.members {
		if ch.ops[m] {
			out = append(out, "@"+m.nick)
		} else {
			out = append(out, m.nick)
		}
	}
	return strings.Join(out, " ")
}

// modeReply renders modes and their parameters for 324; the key is
// only shown to members.
func (ch *channel) modeReply(viewer *client) []string {
	out := []string{ch.modes.String()}
	parts := strings.Fields(out[0])
	if len(parts) > 1 && !ch.has(viewer) && ch.modes.Has('k') {
		for i, p := range parts[1:] {
			if p == ch.modes.Param('k') {
				parts[i+1] = "*"
			}
		}
	}
	return parts
}

// drop removes c from every channel and the nick table, telling the
// peers it shared a channel with.
func (s *Server) drop(c *client, reason string) {
	if c.gone {
		return
	}
	c.gone = true
	told := map[*client]bool{c: true}
	for name, ch := range s.channels {
		if !ch.has(c) {
			continue
		}
		ch.remove(c)
		if c.registered {
			for _, m := range ch.members {
				if !told[m] {
					told[m] = true
					s.write(m, &irc.Message{Prefix: c.prefix(), Command: irc.QUIT, Params: []string{reason}})
				}
			}
		}
		if len(ch.members) == 0 {
			delete(s.channels, name)
		}
	}
	if c.nick != "" && s.nicks[strings.ToLower(c.nick)] == c {
		delete(s.nicks, strings.ToLower(c.nick))
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
