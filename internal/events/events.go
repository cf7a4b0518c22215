// Package events is the harness's record of everything that crossed
// the wire.  Each run appends to one Recorder; sinks render the events
// as console narration or JSON lines, and the recorded outbound lines
// can be compared against a golden transcript.
//
// A nil *Recorder is a valid no-op receiver.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Direction classifies an event.
type Direction string

const (
	Out   Direction = "out"   // a command line we sent
	In    Direction = "in"    // a fragment we received
	Note  Direction = "note"  // narration: step headers, check results
	Error Direction = "error" // a failure worth keeping in the record
)

// Event is one entry of the log.
type Event struct {
	Seq       uint64    `json:"seq"`
	Run       string    `json:"run"`
	Session   string    `json:"session,omitempty"`
	Direction Direction `json:"dir"`
	Time      time.Time `json:"time"`
	Text      string    `json:"text"`
}

// Sink receives every event as it is recorded.
type Sink interface {
	Write(Event) error
}

// Recorder appends events in causal order and fans them out to sinks.
// Sinks are called while the lock is held so their output interleaves
// exactly as the events were recorded.
type Recorder struct {
	mu      sync.Mutex
	run     string
	seq     uint64
	events  []Event
	sinks   []Sink
	sinkErr error
	now     func() time.Time
}

// NewRecorder starts a log with a fresh run id.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{
		run:   uuid.NewString(),
		sinks: sinks,
		now:   time.Now,
	}
}

// RunID identifies this run in every event.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.run
}

// AddSink attaches another sink; it only sees events recorded later.
func (r *Recorder) AddSink(s Sink) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// Record appends one event and returns it.
func (r *Recorder) Record(session string, dir Direction, text string) Event {
	if r == nil {
		return Event{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ev := Event{
		Seq:       r.seq,
		Run:       r.run,
		Session:   session,
		Direction: dir,
		Time:      r.now(),
		Text:      text,
	}
	r.events = append(r.events, ev)
	for _, s := range r.sinks {
		if err := s.Write(ev); err != nil && r.sinkErr == nil {
			r.sinkErr = err
		}
	}
	return ev
}

// Notef records a narration line.
func (r *Recorder) Notef(session, format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.Record(session, Note, sprintf(format, args...))
}

// Err returns the first error any sink reported.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sinkErr
}

// Events returns a copy of the log.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Outbound returns the lines session sent, in order.  An empty session
// matches every session.
func (r *Recorder) Outbound(session string) []string {
	return r.texts(session, Out)
}

// Inbound returns the fragments session received, in order.
func (r *Recorder) Inbound(session string) []string {
	return r.texts(session, In)
}

func (r *Recorder) texts(session string, dir Direction) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Direction == dir && (session == "" || ev.Session == session) {
			out = append(out, ev.Text)
		}
	}
	return out
}

// Count returns how many events of session and dir carry exactly text.
func (r *Recorder) Count(session string, dir Direction, text string) int {
	n := 0
	for _, t := range r.texts(session, dir) {
		if t == text {
			n++
		}
	}
	return n
}
