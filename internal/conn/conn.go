// Package conn owns one text connection to the IRC server under test:
// it frames outbound lines with CR LF, performs single-shot reads, and
// records every line and fragment in the event log.
//
// Failures never escape as panics.  Send on a closed connection is a
// no-op returning ErrNotConnected; Receive swallows read errors and
// returns "" because the harness observes, it does not enforce.
package conn

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	ircerr "ircprobe/internal/errors"
	"ircprobe/internal/events"
	"ircprobe/internal/metrics"
	"ircprobe/internal/retry"
	"ircprobe/internal/transport"
	"ircprobe/internal/wire"
	"ircprobe/util"
)

// Options wires a Connection to the rest of the run.  Every field is
// optional; zero values give a plain TCP dial with no recording.
type Options struct {
	Session         string // role name used in events and logs
	Dialer          transport.Dialer
	Recorder        *events.Recorder
	Metrics         *metrics.Collector
	Logger          *util.Logger
	ConnectAttempts int
	Timeout         time.Duration
}

// Connection is one socket to (host, port).  The zero state is
// unconnected; Connect establishes the socket and Close releases it.
type Connection struct {
	host string
	port int
	opts Options
	log  *util.Logger

	mu   sync.Mutex
	sock net.Conn
	nick string
}

// New returns an unconnected Connection.
func New(host string, port int, opts Options) *Connection {
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if opts.Session != "" {
		log = log.Named(opts.Session)
	}
	return &Connection{host: host, port: port, opts: opts, log: log}
}

// Addr returns host:port.
func (c *Connection) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Session returns the role name the connection records under.
func (c *Connection) Session() string { return c.opts.Session }

// Nick returns the nickname registered on this connection, if any.
func (c *Connection) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// SetNick records the nickname the session registered with.
func (c *Connection) SetNick(nick string) {
	c.mu.Lock()
	c.nick = nick
	c.mu.Unlock()
}

// Connected reports whether a socket is held.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock != nil
}

// Connect opens the socket, retrying only when more than one attempt
// is configured.  On failure the connection stays unconnected and a
// *errors.NetworkError with Op "dial" is returned.
func (c *Connection) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}
	addr := c.Addr()
	bo := retry.DialBackoff(c.opts.ConnectAttempts)
	bo.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.Warn("connect attempt %d to %s failed: %v (retrying in %s)",
			attempt, addr, err, wait.Truncate(time.Millisecond))
	}

	var sock net.Conn
	err := bo.Do(ctx, func(int) error {
		s, err := c.opts.Dialer.Dial(ctx, "tcp", addr)
		if err != nil {
			c.opts.Metrics.DialFailed()
			if ctx.Err() != nil || !ircerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		sock = s
		return nil
	})
	if err != nil {
		nerr := ircerr.Wrap("dial", addr, err)
		c.opts.Metrics.RecordError(nerr.Error())
		c.opts.Recorder.Record(c.opts.Session, events.Error, nerr.Error())
		c.log.Error("%v", nerr)
		return nerr
	}

	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()
	c.opts.Metrics.ConnectionOpened()
	c.log.Verbose("connected to %s", addr)
	return nil
}

// Send writes text followed by CR LF.  Unconnected, it writes nothing
// and returns ErrNotConnected.  Text that would break framing is
// rejected with ErrInvalidCommand before anything is written.
func (c *Connection) Send(text string) error {
	if err := wire.CheckLine(text); err != nil {
		c.log.Warn("refusing to send %q: %v", text, err)
		return err
	}
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		c.log.Debug("send on disconnected connection: %s", text)
		return ircerr.ErrNotConnected
	}

	line := text + "\r\n"
	if c.opts.Timeout > 0 {
		sock.SetWriteDeadline(time.Now().Add(c.opts.Timeout)) //nolint:errcheck
	}
	if _, err := sock.Write([]byte(line)); err != nil {
		nerr := ircerr.Wrap("write", c.Addr(), err)
		c.opts.Metrics.RecordError(nerr.Error())
		c.opts.Recorder.Record(c.opts.Session, events.Error, nerr.Error())
		c.log.Warn("%v", nerr)
		return nerr
	}
	c.opts.Metrics.LineSent(int64(len(line)))
	c.opts.Recorder.Record(c.opts.Session, events.Out, text)
	return nil
}

// Receive performs one blocking read of at most maxBytes and returns
// the decoded text, or "" on any error.  A reply split across TCP
// segments may come back partially; callers that care reassemble with
// wire.LineBuffer.
func (c *Connection) Receive(maxBytes int) string {
	text, _ := c.read(maxBytes, 0)
	return text
}

// ReceiveWithin is Receive bounded by d.  It returns the read error as
// well so pacing loops can tell a quiet server (util.IsTimeout) from a
// closed one.
func (c *Connection) ReceiveWithin(maxBytes int, d time.Duration) (string, error) {
	return c.read(maxBytes, d)
}

func (c *Connection) read(maxBytes int, d time.Duration) (string, error) {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return "", ircerr.ErrNotConnected
	}

	n := util.ClampReadSize(maxBytes)
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	if d > 0 {
		sock.SetReadDeadline(time.Now().Add(d)) //nolint:errcheck
	} else {
		sock.SetReadDeadline(time.Time{}) //nolint:errcheck
	}
	got, err := sock.Read((*buf)[:n])
	var text string
	if got > 0 {
		text = util.DecodeText((*buf)[:got])
		c.opts.Metrics.FragmentReceived(int64(got))
		c.opts.Recorder.Record(c.opts.Session, events.In, text)
	}

	switch {
	case err == nil:
		return text, nil
	case util.IsTimeout(err):
		return text, err
	case util.IsHarmless(err):
		c.log.Debug("server closed the connection")
		return text, ircerr.ErrConnectionClosed
	default:
		nerr := ircerr.Wrap("read", c.Addr(), err)
		c.opts.Metrics.RecordError(nerr.Error())
		c.log.Debug("%v", nerr)
		if text != "" {
			return text, nil
		}
		return "", nerr
	}
}

// Close releases the socket.  It is safe on a never-connected
// Connection and when called more than once, and never sends data.
func (c *Connection) Close() error {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()
	if sock == nil {
		return nil
	}
	c.opts.Metrics.ConnectionClosed()
	c.log.Verbose("closed connection to %s", c.Addr())
	if err := sock.Close(); err != nil && !util.IsHarmless(err) {
		return err
	}
	return nil
}
