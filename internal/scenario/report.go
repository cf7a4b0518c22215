package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Report is the outcome of one scenario run.
type Report struct {
	Scenario  string
	Run       string
	Target    string
	State     State
	Path      []State
	Checks    []Check
	Err       error
	Cancelled bool
	Elapsed   time.Duration
}

// Count returns how many checks ended with st.
func (r *Report) Count(st Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == st {
			n++
		}
	}
	return n
}

// Check returns the named check and whether it was evaluated.
func (r *Report) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// OK reports whether the run completed without error.  With strict,
// every check must also have passed or gone unobserved.
func (r *Report) OK(strict bool) bool {
	if r.Err != nil && !r.Cancelled {
		return false
	}
	return !strict || r.Count(Fail) == 0
}

// MarshalJSON renders the report for machine consumption.
func (r *Report) MarshalJSON() ([]byte, error) {
	path := make([]string, len(r.Path))
	for i, s := range r.Path {
		path[i] = s.String()
	}
	out := struct {
		Scenario  string   `json:"scenario"`
		Run       string   `json:"run"`
		Target    string   `json:"target"`
		State     string   `json:"state"`
		Path      []string `json:"path"`
		Checks    []Check  `json:"checks"`
		Error     string   `json:"error,omitempty"`
		Cancelled bool     `json:"cancelled,omitempty"`
		Elapsed   string   `json:"elapsed"`
	}{
		Scenario:  r.Scenario,
		Run:       r.Run,
		Target:    r.Target,
		State:     r.State.String(),
		Path:      path,
		Checks:    r.Checks,
		Cancelled: r.Cancelled,
		Elapsed:   r.Elapsed.Truncate(time.Millisecond).String(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// WriteSummary prints one table per report: every check with its
// status, then a totals line.
func WriteSummary(w io.Writer, reports []*Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strings.ToUpper(r.Scenario), r.Target, r.State)
		for _, c := range r.Checks {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Status, c.Detail)
		}
		fmt.Fprintf(tw, "  total\t%d passed, %d failed, %d unobserved\t%s\n",
			r.Count(Pass), r.Count(Fail), r.Count(Unobserved), r.Elapsed.Truncate(time.Millisecond))
		switch {
		case r.Cancelled:
			fmt.Fprintf(tw, "  cancelled\t\t\n")
		case r.Err != nil:
			fmt.Fprintf(tw, "  error\t%v\t\n", r.Err)
		}
	}
	return tw.Flush()
}
