package hotkey

import "testing"

func TestActionString(t *testing.T) {
	tests := map[Action]string{
		ActionFaster:     "faster",
		ActionSlower:     "slower",
		ActionReverse:    "reverse",
		ActionStop:       "stop",
		ActionMotion:     "motion",
		ActionConnect:    "connect",
		ActionDisconnect: "disconnect",
		Action(99):       "unknown",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, want %q", int(a), got, want)
		}
	}
}

func TestBindingsDescribe(t *testing.T) {
	b := Bindings{
		ActionStop:    {"space"},
		ActionFaster:  {"up"},
		ActionReverse: {"shift", "r"},
	}

	want := "faster=up reverse=shift+r stop=space"
	if got := b.Describe(); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestEmitDoesNotBlockWhenFull(t *testing.T) {
	l := NewListener(nil)
	for i := 0; i < cap(l.ch)+5; i++ {
		l.emit(ActionStop)
	}
	if len(l.ch) != cap(l.ch) {
		t.Errorf("queued %d actions, want %d", len(l.ch), cap(l.ch))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewListener(nil)
	l.Stop()
	l.Stop()
	select {
	case <-l.done:
	default:
		t.Error("done should be closed after Stop")
	}
}
