// Package hotkey provides a global key listener using gohook. Each bound
// key combo emits one Action per key press.
package hotkey

import (
	"sort"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Action is an operator command bound to a key combo.
type Action int

const (
	// ActionFaster moves the speed slider up one step.
	ActionFaster Action = iota
	// ActionSlower moves the speed slider down one step.
	ActionSlower
	// ActionReverse switches direction.
	ActionReverse
	// ActionStop is the emergency stop.
	ActionStop
	// ActionMotion toggles motion (tilt) mode.
	ActionMotion
	// ActionConnect starts scanning for the board.
	ActionConnect
	// ActionDisconnect cancels the scan or drops the link.
	ActionDisconnect
)

func (a Action) String() string {
	switch a {
	case ActionFaster:
		return "faster"
	case ActionSlower:
		return "slower"
	case ActionReverse:
		return "reverse"
	case ActionStop:
		return "stop"
	case ActionMotion:
		return "motion"
	case ActionConnect:
		return "connect"
	case ActionDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Bindings maps each action to a key combo, e.g. {ActionStop: ["space"]}.
type Bindings map[Action][]string

// Describe renders the bindings as "action=key+key" pairs in action order.
func (b Bindings) Describe() string {
	actions := make([]Action, 0, len(b))
	for a := range b {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, a.String()+"="+strings.Join(b[a], "+"))
	}
	return strings.Join(parts, " ")
}

// Listener manages the global key hook and emits actions.
type Listener struct {
	bindings Bindings
	ch       chan Action
	done     chan struct{}
	once     sync.Once
}

// NewListener creates a Listener for the given bindings.
// Key names are lowercase gohook names (e.g. "up", "space", "r").
func NewListener(bindings Bindings) *Listener {
	return &Listener{
		bindings: bindings,
		ch:       make(chan Action, 16),
		done:     make(chan struct{}),
	}
}

// Actions returns the channel that receives actions.
// The channel is closed when the listener stops.
func (l *Listener) Actions() <-chan Action {
	return l.ch
}

// Start registers every binding and processes key events.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	for action, keys := range l.bindings {
		hook.Register(hook.KeyDown, keys, func(e hook.Event) {
			l.emit(action)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit forwards a without blocking the hook goroutine.
func (l *Listener) emit(a Action) {
	select {
	case l.ch <- a:
	default: // don't block if channel is full
	}
}

// Stop terminates the listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
