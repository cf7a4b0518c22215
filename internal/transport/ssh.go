package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"ircprobe/tunnel"
	"ircprobe/util"
)

// SSHDialer routes connections through an SSH gateway.  The gateway is
// contacted on the first Dial and reused by later sessions; if it hangs
// up in between, the next Dial reconnects.
type SSHDialer struct {
	config *tunnel.SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	tunnel *tunnel.SSHTunnel
}

// NewSSHDialer creates a dialer that forwards through the gateway
// described by cfg.  Nothing is dialled until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{config: cfg, logger: logger}
}

func (d *SSHDialer) ensure(ctx context.Context) (*tunnel.SSHTunnel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tunnel != nil && d.tunnel.IsAlive() {
		return d.tunnel, nil
	}
	if d.tunnel != nil {
		d.logger.Warn("SSH gateway %s went away, reconnecting", d.tunnel)
		d.tunnel.Close()
	}

	t := tunnel.NewSSHTunnel(d.config, d.logger)
	d.logger.Verbose("establishing SSH tunnel to %s", t)
	if err := t.Connect(ctx); err != nil {
		return nil, fmt.Errorf("tunnel: %w", err)
	}
	d.logger.Verbose("SSH tunnel established")
	d.tunnel = t
	return t, nil
}

// Dial connects to address through the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t, err := d.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return t.Dial(ctx, network, address)
}

// Close tears down the gateway connection, if any.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tunnel == nil {
		return nil
	}
	err := d.tunnel.Close()
	d.tunnel = nil
	return err
}
