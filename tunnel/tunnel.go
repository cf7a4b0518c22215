// Package tunnel reaches IRC servers that only listen on a private
// interface by forwarding the harness's TCP connections through an SSH
// gateway (golang.org/x/crypto/ssh).
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an encrypted channel that can open TCP connections on the
// far side.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel.
	Close() error

	// IsAlive reports whether the gateway connection is still up.
	IsAlive() bool
}
