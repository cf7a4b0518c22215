package events

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Transcript renders the outbound lines of events, one per line, as
// "<session>: <line>".  Inbound text is left out since servers vary in
// timestamps and greeting text; what the harness sent must not.  PONG
// replies depend on when the server pings and are skipped too.
func Transcript(evs []Event) string {
	var b strings.Builder
	for _, ev := range evs {
		if ev.Direction != Out || strings.HasPrefix(ev.Text, "PONG ") {
			continue
		}
		b.WriteString(ev.Session)
		b.WriteString(": ")
		b.WriteString(ev.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// DiffTranscript returns a line diff from want to got, with "-" for
// missing lines and "+" for unexpected ones.  Equal inputs yield "".
func DiffTranscript(want, got string) string {
	if want == got {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var mark string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			mark = "+ "
		case diffmatchpatch.DiffDelete:
			mark = "- "
		default:
			mark = "  "
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			out.WriteString(mark)
			out.WriteString(strings.TrimSuffix(l, "\n"))
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// CompareGolden diffs transcript against the golden file at path.
func CompareGolden(path, transcript string) (string, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("golden file %s does not exist (run with --update-golden)", path)
		}
		return "", fmt.Errorf("golden file: %w", err)
	}
	return DiffTranscript(string(want), transcript), nil
}

// WriteGolden stores transcript as the new golden file.
func WriteGolden(path, transcript string) error {
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("golden file: %w", err)
	}
	return nil
}
