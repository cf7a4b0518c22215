// Package transport decides how the harness reaches the IRC server:
// straight over TCP, through an SSH gateway, or via a SOCKS5 proxy.  What is said over the
// connection is the conn and session packages' business.
package transport

import (
	"context"
	"net"

	"ircprobe/config"
	"ircprobe/tunnel"
	"ircprobe/util"
)

// Dialer opens outbound connections to the server under test.  One
// Dialer is shared by every session of a run.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases long-lived resources such as an SSH session.
	// Stateless dialers return nil.
	Close() error
}

// New returns the Dialer a run configured: an SSH-tunnelled one when -T
// was given, a SOCKS5 one with --proxy, plain TCP otherwise.
func New(cfg *config.Config, logger *util.Logger) (Dialer, error) {
	if sc := tunnel.ConfigFrom(cfg); sc != nil {
		return NewSSHDialer(sc, logger), nil
	}
	if cfg.ProxyAddr != "" {
		d, err := NewSOCKSDialer(cfg.ProxyAddr, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Verbose("dialing through %s", d)
		return d, nil
	}
	return &TCPDialer{Timeout: cfg.Timeout}, nil
}
