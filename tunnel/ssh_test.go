package tunnel

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"ircprobe/config"
	ircerr "ircprobe/internal/errors"
	"ircprobe/util"
)

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	if ConfigFrom(cfg) != nil {
		t.Fatal("expected nil without a tunnel")
	}

	cfg.TunnelEnabled = true
	cfg.TunnelUser = "admin"
	cfg.TunnelHost = "bastion"
	cfg.TunnelPort = 2222
	cfg.UseSSHAgent = true
	sc := ConfigFrom(cfg)
	if sc == nil {
		t.Fatal("expected tunnel config")
	}
	if sc.User != "admin" || sc.Host != "bastion" || sc.Port != 2222 || !sc.UseAgent {
		t.Errorf("unexpected config: %+v", sc)
	}
	if sc.Addr() != "bastion:2222" {
		t.Errorf("Addr = %q", sc.Addr())
	}
	if sc.ConnTimeout != config.DefaultConnTimeout {
		t.Errorf("ConnTimeout = %v", sc.ConnTimeout)
	}
}

func TestSSHTunnel_DialBeforeConnect(t *testing.T) {
	tun := NewSSHTunnel(&SSHConfig{Host: "bastion"}, util.NewLogger(0))
	_, err := tun.Dial(context.Background(), "tcp", "127.0.0.1:6667")
	if !errors.Is(err, ircerr.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if tun.IsAlive() {
		t.Error("tunnel should not be alive")
	}
	if err := tun.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestSSHTunnel_Forward runs an in-process SSH gateway and checks that a
// connection dialled through it reaches a local IRC-like listener.
func TestSSHTunnel_Forward(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	target, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()
	go func() {
		c, err := target.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		c.Write([]byte(":irc.test NOTICE * :hello\r\n")) //nolint:errcheck
		io.Copy(io.Discard, c)                            //nolint:errcheck
	}()

	gw := startGateway(t)
	defer gw.Close()

	host, portStr, _ := net.SplitHostPort(gw.Addr().String())
	port, _ := strconv.Atoi(portStr)
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	tun := NewSSHTunnel(&SSHConfig{
		User:        "tester",
		Host:        host,
		Port:        port,
		KeyPath:     keyPath,
		ConnTimeout: 5 * time.Second,
	}, util.NewLogger(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tun.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tun.Close()
	if !tun.IsAlive() {
		t.Fatal("tunnel should be alive after Connect")
	}

	conn, err := tun.Dial(ctx, "tcp", target.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != ":irc.test NOTICE * :hello\r\n" {
		t.Errorf("got %q", line)
	}

	if err := tun.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := tun.Dial(ctx, "tcp", target.Addr().String()); err == nil {
		t.Error("Dial after Close should fail")
	}
}

// startGateway accepts one SSH client with any public key and serves
// direct-tcpip channels by dialling the requested address.
func startGateway(t *testing.T) net.Listener {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hostKey, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	srvCfg := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, nil
		},
	}
	srvCfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		_, chans, reqs, err := ssh.NewServerConn(raw, srvCfg)
		if err != nil {
			raw.Close()
			return
		}
		go ssh.DiscardRequests(reqs)

		for nc := range chans {
			if nc.ChannelType() != "direct-tcpip" {
				nc.Reject(ssh.UnknownChannelType, "unsupported") //nolint:errcheck
				continue
			}
			var req struct {
				Host     string
				Port     uint32
				OrigHost string
				OrigPort uint32
			}
			if err := ssh.Unmarshal(nc.ExtraData(), &req); err != nil {
				nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
				continue
			}
			dst, err := net.Dial("tcp", net.JoinHostPort(req.Host, strconv.Itoa(int(req.Port))))
			if err != nil {
				nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
				continue
			}
			ch, creqs, err := nc.Accept()
			if err != nil {
				dst.Close()
				continue
			}
			go ssh.DiscardRequests(creqs)
			go func() {
				io.Copy(ch, dst) //nolint:errcheck
				ch.Close()
			}()
			go func() {
				io.Copy(dst, ch) //nolint:errcheck
				dst.Close()
			}()
		}
	}()
	return ln
}
