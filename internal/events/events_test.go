package events

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestRecorder_SequenceAndRunID(t *testing.T) {
	r := NewRecorder()
	if _, err := uuid.Parse(r.RunID()); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", r.RunID(), err)
	}

	r.Record("alice", Out, "NICK alice")
	r.Record("alice", In, ":irc.test 001 alice :Welcome")
	r.Notef("", "step %d", 2)

	evs := r.Events()
	if len(evs) != 3 {
		t.Fatalf("got %d events", len(evs))
	}
	for i, ev := range evs {
		if ev.Seq != uint64(i+1) {
			t.Errorf("event %d has seq %d", i, ev.Seq)
		}
		if ev.Run != r.RunID() {
			t.Errorf("event %d run = %q", i, ev.Run)
		}
	}
	if evs[2].Text != "step 2" || evs[2].Direction != Note {
		t.Errorf("note = %+v", evs[2])
	}
}

func TestRecorder_Queries(t *testing.T) {
	r := NewRecorder()
	r.Record("alice", Out, "PRIVMSG #test :Hola a todos!")
	r.Record("bob", In, ":alice!alice@host PRIVMSG #test :Hola a todos!")
	r.Record("bob", Out, "PRIVMSG #test :Hola Alice!")
	r.Record("alice", Out, "QUIT :Test completado")

	if got := r.Outbound("alice"); !reflect.DeepEqual(got, []string{"PRIVMSG #test :Hola a todos!", "QUIT :Test completado"}) {
		t.Errorf("Outbound(alice) = %q", got)
	}
	if got := r.Inbound("bob"); len(got) != 1 {
		t.Errorf("Inbound(bob) = %q", got)
	}
	if got := r.Outbound(""); len(got) != 3 {
		t.Errorf("Outbound(all) = %q", got)
	}
	if n := r.Count("alice", Out, "PRIVMSG #test :Hola a todos!"); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if n := r.Count("bob", Out, "PRIVMSG #test :Hola a todos!"); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestRecorder_EventsIsCopy(t *testing.T) {
	r := NewRecorder()
	r.Record("a", Out, "LIST")
	evs := r.Events()
	evs[0].Text = "changed"
	if r.Events()[0].Text != "LIST" {
		t.Error("Events must return a copy")
	}
}

func TestRecorder_ConcurrentOrder(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(NewJSONSink(&buf))

	var wg sync.WaitGroup
	for _, s := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Record(s, Out, "PING :x")
			}
		}(s)
	}
	wg.Wait()

	evs, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 100 {
		t.Fatalf("sink saw %d events", len(evs))
	}
	for i, ev := range evs {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("sink order broken at %d: seq %d", i, ev.Seq)
		}
	}
}

type failingSink struct{}

func (failingSink) Write(Event) error { return errors.New("disk full") }

func TestRecorder_SinkError(t *testing.T) {
	r := NewRecorder(failingSink{})
	r.Record("a", Out, "LIST")
	r.Record("a", Out, "LIST")
	if err := r.Err(); err == nil || err.Error() != "disk full" {
		t.Errorf("Err = %v", err)
	}
	if len(r.Events()) != 2 {
		t.Error("sink failures must not drop events")
	}
}

func TestNilRecorder_NoOps(t *testing.T) {
	var r *Recorder
	r.Record("a", Out, "LIST")
	r.Notef("", "x")
	r.AddSink(&ConsoleSink{W: &bytes.Buffer{}})
	if r.Events() != nil || r.Outbound("") != nil || r.Err() != nil || r.RunID() != "" {
		t.Error("nil recorder should be empty")
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&ConsoleSink{W: &buf})
	r.Notef("", "=== scenario e2e")
	r.Record("alice", Out, "PASS testpass")
	r.Record("alice", In, ":irc.test 001 alice :Welcome\n:irc.test 002 alice :Host")
	r.Record("bob", Error, "connect: connection refused")

	want := strings.Join([]string{
		"=== scenario e2e",
		"[alice] >>> PASS testpass",
		"[alice] <<< :irc.test 001 alice :Welcome",
		"        :irc.test 002 alice :Host",
		"[bob] !!! connect: connection refused",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestJSONSink_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(NewJSONSink(&buf))
	r.Record("tester", Out, "MODE #testchan +it")

	if !strings.Contains(buf.String(), `"dir":"out"`) {
		t.Errorf("missing direction: %s", buf.String())
	}
	evs, err := ReadJSON(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Text != "MODE #testchan +it" || evs[0].Session != "tester" {
		t.Errorf("got %+v", evs)
	}
}

func TestReadJSON_Malformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"seq":1}` + "\n" + `{"seq":`))
	if err == nil {
		t.Fatal("expected error")
	}
}
