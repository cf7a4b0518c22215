package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// SOCKSDialer reaches the server through a SOCKS5 proxy.
type SOCKSDialer struct {
	Addr    string // proxy host:port
	Auth    *proxy.Auth
	Timeout time.Duration
}

// NewSOCKSDialer parses spec as host:port, user:pass@host:port or
// socks5://[user:pass@]host:port.
func NewSOCKSDialer(spec string, timeout time.Duration) (*SOCKSDialer, error) {
	raw := spec
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", spec, err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("invalid proxy %q: only socks5 is supported", spec)
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", spec, err)
	}
	d := &SOCKSDialer{Addr: u.Host, Timeout: timeout}
	if u.User != nil {
		pass, _ := u.User.Password()
		d.Auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	return d, nil
}

// Dial asks the proxy to connect to address.
func (d *SOCKSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	forward := &net.Dialer{Timeout: d.Timeout}
	pd, err := proxy.SOCKS5("tcp", d.Addr, d.Auth, forward)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", d.Addr, err)
	}
	if cd, ok := pd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return pd.Dial(network, address)
}

// Close is a no-op; every Dial opens its own proxy connection.
func (d *SOCKSDialer) Close() error { return nil }

func (d *SOCKSDialer) String() string { return "socks5://" + d.Addr }
