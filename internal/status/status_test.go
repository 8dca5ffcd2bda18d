package status

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

type recordListener struct {
	name   string
	events *[]string
}

func (r recordListener) OnStatus(text string) { *r.events = append(*r.events, r.name+":status:"+text) }
func (r recordListener) OnReady()             { *r.events = append(*r.events, r.name+":ready") }
func (r recordListener) OnNotReady()          { *r.events = append(*r.events, r.name+":notready") }

func TestFanoutOrder(t *testing.T) {
	var events []string
	f := Fanout{
		recordListener{name: "a", events: &events},
		recordListener{name: "b", events: &events},
	}

	f.OnStatus("Scanning...")
	f.OnReady()
	f.OnNotReady()

	want := []string{
		"a:status:Scanning...", "b:status:Scanning...",
		"a:ready", "b:ready",
		"a:notready", "b:notready",
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestEmptyFanout(t *testing.T) {
	var f Fanout
	f.OnStatus("x")
	f.OnReady()
	f.OnNotReady()
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.OnStatus("Found BT05! Connecting... RSSI: -52")
	l.OnReady()
	l.OnNotReady()

	out := buf.String()
	for _, want := range []string{
		`msg="[LINK] Found BT05! Connecting... RSSI: -52"`,
		`msg="[LINK] ready"`,
		`level=WARN msg="[LINK] not ready"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNewLogDefaultsLogger(t *testing.T) {
	if NewLog(nil).logger == nil {
		t.Error("NewLog(nil) should fall back to slog.Default()")
	}
}
