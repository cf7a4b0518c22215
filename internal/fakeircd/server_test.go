package fakeircd

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"gopkg.in/sorcix/irc.v2"
)

type rawClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, s *Server) *rawClient {
	t.Helper()
	c, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return &rawClient{t: t, conn: c, r: bufio.NewReader(c)}
}

func (c *rawClient) send(lines ...string) {
	for _, l := range lines {
		if _, err := c.conn.Write([]byte(l + "\r\n")); err != nil {
			c.t.Fatal(err)
		}
	}
}

// expect reads until a message with command arrives and returns it.
func (c *rawClient) expect(command string) *irc.Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", command, err)
		}
		m := irc.ParseMessage(strings.TrimRight(line, "\r\n"))
		if m != nil && m.Command == command {
			return m
		}
	}
}

func register(t *testing.T, s *Server, nick string) *rawClient {
	c := dial(t, s)
	c.send("PASS secret", "NICK "+nick, "USER "+nick+" 0 * :"+nick+" User")
	c.expect(irc.RPL_WELCOME)
	return c
}

func start(t *testing.T) *Server {
	t.Helper()
	s, err := Start(Options{Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegistration(t *testing.T) {
	s := start(t)
	c := dial(t, s)
	c.send("PASS secret", "NICK alice", "USER alice 0 * :Alice User")
	m := c.expect(irc.RPL_WELCOME)
	if m.Params[0] != "alice" {
		t.Errorf("welcome target = %q", m.Params[0])
	}
	got := s.Received("alice")
	want := []string{"PASS secret", "NICK alice", "USER alice 0 * :Alice User"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("received %q", got)
	}
}

func TestRegistration_BadPassword(t *testing.T) {
	s := start(t)
	c := dial(t, s)
	c.send("PASS wrong", "NICK alice", "USER alice 0 * :Alice")
	c.expect(irc.ERR_PASSWDMISMATCH)
	c.expect(irc.ERROR)
}

func TestRegistration_NickInUse(t *testing.T) {
	s := start(t)
	register(t, s, "alice")
	c := dial(t, s)
	c.send("PASS secret", "NICK alice")
	c.expect(irc.ERR_NICKNAMEINUSE)
}

func TestUnregisteredCommand(t *testing.T) {
	s := start(t)
	c := dial(t, s)
	c.send("JOIN #test")
	c.expect(irc.ERR_NOTREGISTERED)
}

func TestChannelFlow(t *testing.T) {
	s := start(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	alice.send("JOIN #test")
	alice.expect(irc.RPL_ENDOFNAMES)
	bob.send("JOIN #test")
	names := bob.expect(irc.RPL_NAMREPLY)
	if got := names.Params[len(names.Params)-1]; got != "@alice bob" {
		t.Errorf("names = %q", got)
	}
	alice.expect(irc.JOIN)

	alice.send("PRIVMSG #test :Hola a todos!")
	if m := bob.expect(irc.PRIVMSG); m.Params[1] != "Hola a todos!" || m.Prefix.Name != "alice" {
		t.Errorf("relay = %v", m)
	}

	alice.send("TOPIC #test :Canal de prueba para IRC")
	bob.expect(irc.TOPIC)
	bob.send("TOPIC #test")
	if m := bob.expect(irc.RPL_TOPIC); m.Params[2] != "Canal de prueba para IRC" {
		t.Errorf("topic = %v", m)
	}

	bob.send("LIST")
	if m := bob.expect(irc.RPL_LIST); m.Params[1] != "#test" || m.Params[2] != "2" {
		t.Errorf("list = %v", m)
	}
	bob.expect(irc.RPL_LISTEND)

	bob.send("PART #test :Adiós!")
	if m := alice.expect(irc.PART); m.Prefix.Name != "bob" {
		t.Errorf("part = %v", m)
	}
	bob.send("QUIT :Test completado")
	bob.expect(irc.ERROR)
}

func TestModes(t *testing.T) {
	s := start(t)
	c := register(t, s, "testuser")
	c.send("JOIN #testchan")
	c.expect(irc.RPL_ENDOFNAMES)

	cases := []struct {
		cmd  string
		echo string
		want string
	}{
		{"MODE #testchan +it", "+it", "+it"},
		{"MODE #testchan +t-i", "-i", "+t"},
		{"MODE #testchan +kl clave123 50", "+kl", "+klt clave123 50"},
		{"MODE #testchan +itk-l clave456", "+ik-l", "+ikt clave456"},
	}
	for _, tc := range cases {
		c.send(tc.cmd)
		if m := c.expect(irc.MODE); m.Params[1] != tc.echo {
			t.Errorf("%s: echo %v, want %s", tc.cmd, m, tc.echo)
		}
		c.send("MODE #testchan")
		m := c.expect(irc.RPL_CHANNELMODEIS)
		if got := strings.Join(m.Params[2:], " "); got != tc.want {
			t.Errorf("%s: 324 = %q, want %q", tc.cmd, got, tc.want)
		}
	}
	if s.ChannelModes("#testchan") != "+ikt clave456" {
		t.Errorf("server state = %q", s.ChannelModes("#testchan"))
	}

	c.send("MODE #testchan +z")
	c.expect(irc.ERR_UNKNOWNMODE)
}

func TestModes_RequireOperator(t *testing.T) {
	s := start(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	alice.send("JOIN #test")
	alice.expect(irc.RPL_ENDOFNAMES)
	bob.send("JOIN #test")
	bob.expect(irc.RPL_ENDOFNAMES)

	bob.send("MODE #test +i")
	bob.expect(irc.ERR_CHANOPRIVSNEEDED)
}

func TestPing(t *testing.T) {
	s := start(t)
	c := register(t, s, "alice")
	if err := s.Ping("alice", "token123"); err != nil {
		t.Fatal(err)
	}
	if m := c.expect(irc.PING); m.Params[0] != "token123" {
		t.Errorf("ping = %v", m)
	}
	c.send("PING :abc")
	c.expect(irc.PONG)
	if err := s.Ping("nobody", "x"); err == nil {
		t.Error("expected error for unknown nick")
	}
}

func TestMute(t *testing.T) {
	s, err := Start(Options{Mute: []string{"list"}})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	c := dial(t, s)
	c.send("NICK alice", "USER alice 0 * :A")
	c.expect(irc.RPL_WELCOME)
	c.send("LIST", "NAMES")
	c.expect(irc.RPL_ENDOFNAMES)
	if got := s.Received("alice"); got[len(got)-2] != "LIST" {
		t.Errorf("muted command not recorded: %q", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Start(Options{})
	if err != nil {
		t.Fatal(err)
	}
	register(t, s, "alice")
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if s.Clients() != 1 {
		t.Errorf("clients = %d", s.Clients())
	}
}
