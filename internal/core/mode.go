// Package core is the orchestration layer.  It turns a Config into a
// runnable Mode: the scenario run itself, or a dry-run plan that only
// checks the targets can be reached.
//
// Architecture layers (bottom → top):
//
//	transport  →  conn  →  session  →  scenario  →  core  →  cmd (CLI)
package core

import "context"

// Mode is one complete invocation of ircprobe.  It owns its resources
// (dialer, event log file, built-in servers) from start to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
