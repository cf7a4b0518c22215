package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.  The scenario constants mirror the fixtures the server's
// developers used by hand.

const (
	// DefaultPort is the plain-text IRC port.
	DefaultPort = 6667

	// DefaultE2EHost is where the end-to-end scenario looks for a server.
	DefaultE2EHost = "localhost"

	// DefaultModeHost is where the mode scenario looks for a server.
	DefaultModeHost = "127.0.0.1"

	// DefaultE2EPassword is the connection password of the end-to-end scenario.
	DefaultE2EPassword = "testpass"

	// DefaultModePassword is the connection password of the mode scenario.
	DefaultModePassword = "password"

	// DefaultE2EChannel is the channel shared by alice and bob.
	DefaultE2EChannel = "#test"

	// DefaultModeChannel is the channel whose modes are mutated.
	DefaultModeChannel = "#testchan"

	// DefaultShortPause follows PASS and NICK.
	DefaultShortPause = 100 * time.Millisecond

	// DefaultPause follows every other action.
	DefaultPause = 500 * time.Millisecond

	// DefaultSettlePause separates the mode-scenario cases.
	DefaultSettlePause = 1 * time.Second

	// DefaultReplyTimeout bounds how long an action waits for the reply
	// that proves the server processed it.
	DefaultReplyTimeout = 3 * time.Second

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 10 * time.Second

	// DefaultConnectAttempts is the number of dial attempts.  One means
	// a refused connection is reported immediately.
	DefaultConnectAttempts = 1

	// DefaultReadSize is the number of bytes requested per receive.
	DefaultReadSize = 4096

	// MaxReadSize caps --read-size.
	MaxReadSize = 32 * 1024

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22
)

// Scenario names accepted on the command line.
const (
	ScenarioEndToEnd = "e2e"
	ScenarioModes    = "modes"
	ScenarioAll      = "all"
)
