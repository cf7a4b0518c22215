package scenario

import (
	"reflect"
	"testing"
)

func TestMachine_Paths(t *testing.T) {
	tests := []struct {
		name  string
		steps []State
		ok    bool
	}{
		{"happy path", []State{Connecting, Registering, Active, Closing, Done}, true},
		{"second user", []State{Connecting, Registering, Connecting, Registering, Active, Closing, Done}, true},
		{"connect failure", []State{Connecting, Failed, Closing, Done}, true},
		{"registration failure", []State{Connecting, Registering, Failed, Closing, Done}, true},
		{"cancelled before start", []State{Closing, Done}, true},
		{"skip registration", []State{Connecting, Active}, false},
		{"fail while active", []State{Connecting, Registering, Active, Failed}, false},
		{"done is final", []State{Closing, Done, Connecting}, false},
		{"failed must close", []State{Connecting, Failed, Done}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			var err error
			for _, s := range tt.steps {
				if err = m.To(s); err != nil {
					break
				}
			}
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok {
				want := append([]State{Unstarted}, tt.steps...)
				if got := m.History(); !reflect.DeepEqual(got, want) {
					t.Errorf("history = %v, want %v", got, want)
				}
			}
		})
	}
}

func TestMachine_SameStateIsNoop(t *testing.T) {
	m := NewMachine()
	if err := m.To(Unstarted); err != nil {
		t.Fatal(err)
	}
	if len(m.History()) != 1 {
		t.Errorf("history = %v", m.History())
	}
	if !m.Reached(Unstarted) || m.Reached(Done) {
		t.Error("Reached reports wrong states")
	}
}

func TestState_String(t *testing.T) {
	if Failed.String() != "failed" || State(42).String() != "state(42)" {
		t.Errorf("got %s, %s", Failed, State(42))
	}
}
