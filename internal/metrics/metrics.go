// Package metrics provides lightweight, lock-free counters for tracking
// what a harness run put on the wire and what came back.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one ircprobe invocation.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	dialFailures      atomic.Int64
	linesSent         atomic.Int64
	fragmentsIn       atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	repliesMatched    atomic.Int64
	replyTimeouts     atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// DialFailed records a connection attempt that never got a socket.
func (c *Collector) DialFailed() {
	if c == nil {
		return
	}
	c.dialFailures.Add(1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Wire metrics ─────────────────────────────────────────────────────

// LineSent records one command line of n bytes (terminator included).
func (c *Collector) LineSent(n int64) {
	if c == nil {
		return
	}
	c.linesSent.Add(1)
	c.bytesOut.Add(n)
}

// FragmentReceived records one read that returned n bytes.
func (c *Collector) FragmentReceived(n int64) {
	if c == nil {
		return
	}
	c.fragmentsIn.Add(1)
	c.bytesIn.Add(n)
}

// LinesSent returns the number of command lines written.
func (c *Collector) LinesSent() int64 {
	if c == nil {
		return 0
	}
	return c.linesSent.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Reply matching ───────────────────────────────────────────────────

// ReplyMatched records an action whose expected reply arrived.
func (c *Collector) ReplyMatched() {
	if c == nil {
		return
	}
	c.repliesMatched.Add(1)
}

// ReplyTimedOut records an action whose expected reply never arrived.
func (c *Collector) ReplyTimedOut() {
	if c == nil {
		return
	}
	c.replyTimeouts.Add(1)
}

// ReplyTimeouts returns how many actions timed out waiting.
func (c *Collector) ReplyTimeouts() int64 {
	if c == nil {
		return 0
	}
	return c.replyTimeouts.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	DialFailures      int64  `json:"dial_failures"`
	LinesSent         int64  `json:"lines_sent"`
	FragmentsIn       int64  `json:"fragments_in"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	RepliesMatched    int64  `json:"replies_matched"`
	ReplyTimeouts     int64  `json:"reply_timeouts"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Millisecond).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		DialFailures:      c.dialFailures.Load(),
		LinesSent:         c.linesSent.Load(),
		FragmentsIn:       c.fragmentsIn.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		RepliesMatched:    c.repliesMatched.Load(),
		ReplyTimeouts:     c.replyTimeouts.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
