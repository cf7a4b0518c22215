package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// ConsoleSink narrates events for a human:
//
//	[alice] >>> PASS testpass
//	[alice] <<< :irc.test 001 alice :Welcome
//	--- step 3: alice joins #test
type ConsoleSink struct {
	W io.Writer
}

func (s *ConsoleSink) Write(ev Event) error {
	var line string
	switch ev.Direction {
	case Out:
		line = fmt.Sprintf("[%s] >>> %s", ev.Session, ev.Text)
	case In:
		line = fmt.Sprintf("[%s] <<< %s", ev.Session, indentContinuation(ev.Text))
	case Error:
		line = fmt.Sprintf("[%s] !!! %s", ev.Session, ev.Text)
	default:
		line = ev.Text
	}
	_, err := fmt.Fprintln(s.W, line)
	return err
}

// indentContinuation keeps multi-line fragments readable under their
// <<< marker.  Fragments are recorded raw, terminators included.
func indentContinuation(text string) string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\r\n")
	return strings.ReplaceAll(text, "\n", "\n        ")
}

// JSONSink writes one JSON object per event.
type JSONSink struct {
	enc *json.Encoder
}

// NewJSONSink returns a sink writing JSON lines to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Write(ev Event) error {
	return s.enc.Encode(ev)
}

// ReadJSON loads events previously written by a JSONSink.
func ReadJSON(r io.Reader) ([]Event, error) {
	dec := json.NewDecoder(r)
	var out []Event
	for {
		var ev Event
		err := dec.Decode(&ev)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("event %d: %w", len(out)+1, err)
		}
		out = append(out, ev)
	}
}
