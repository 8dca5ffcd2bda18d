// Package control runs the single goroutine that owns the link and the
// command mapper. Central events, discovery timeouts, key actions and tilt
// samples are all serialized through Run.
package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chaz8081/skatectl/internal/ble"
	"github.com/chaz8081/skatectl/internal/command"
	"github.com/chaz8081/skatectl/internal/hotkey"
	"github.com/chaz8081/skatectl/internal/tilt"
)

// Default tuning.
const (
	DefaultSpeedStep      = 10
	DefaultSampleInterval = 100 * time.Millisecond
)

// CommandObserver is told about the board's speed and direction after
// every change.
type CommandObserver interface {
	Command(speed int8, direction string)
}

// Options configures a Controller.
type Options struct {
	Target         ble.Target
	Link           ble.LinkOptions
	SpeedStep      int
	SampleInterval time.Duration
	// Tilt feeds motion mode. Nil disables motion mode.
	Tilt tilt.Source
	// Listener receives every link notification after the controller.
	Listener ble.Listener
	Observer CommandObserver
}

// Controller wires operator input to the board.
type Controller struct {
	central  ble.Central
	link     *ble.Link
	mapper   *command.Mapper
	tilt     tilt.Source
	listener ble.Listener
	observer CommandObserver

	step     int
	interval time.Duration

	ready  bool
	slider int

	reportedSpeed int8
	reportedDir   command.Direction
}

// New creates a Controller and its Link over central.
func New(central ble.Central, opts Options) *Controller {
	if opts.SpeedStep <= 0 {
		opts.SpeedStep = DefaultSpeedStep
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = DefaultSampleInterval
	}
	c := &Controller{
		central:  central,
		tilt:     opts.Tilt,
		listener: opts.Listener,
		observer: opts.Observer,
		step:     opts.SpeedStep,
		interval: opts.SampleInterval,
	}
	c.link = ble.NewLink(central, opts.Target, c, opts.Link)
	c.mapper = command.NewMapper(c.link)
	return c
}

// Link returns the link the controller drives.
func (c *Controller) Link() *ble.Link { return c.link }

// Mapper returns the command mapper.
func (c *Controller) Mapper() *command.Mapper { return c.mapper }

// Slider returns the direct-mode speed setting in [0, 100].
func (c *Controller) Slider() int { return c.slider }

// InputsEnabled reports whether the slider and reverse controls accept
// input: the link must be ready and motion mode off.
func (c *Controller) InputsEnabled() bool {
	return c.ready && !c.mapper.MotionMode()
}

// Run processes input until ctx is done or the central's event stream
// closes. On the way out it stops the board and drops the link.
func (c *Controller) Run(ctx context.Context, actions <-chan hotkey.Action) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	events := c.central.Events()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				c.shutdown()
				return errors.New("control: central event stream closed")
			}
			c.link.Handle(ev)
		case ev := <-c.link.Timeouts():
			c.link.Handle(ev)
		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}
			c.Do(a)
		case <-ticker.C:
			c.sample()
		}
	}
}

// Do applies one operator action.
func (c *Controller) Do(a hotkey.Action) {
	slog.Debug("[CTRL] action", "action", a, "ready", c.ready, "motion", c.mapper.MotionMode())

	switch a {
	case hotkey.ActionFaster, hotkey.ActionSlower:
		if !c.InputsEnabled() {
			return
		}
		delta := c.step
		if a == hotkey.ActionSlower {
			delta = -delta
		}
		c.slider = min(max(c.slider+delta, 0), int(command.MaxSpeed))
		c.mapper.SetSpeed(c.slider)
	case hotkey.ActionReverse:
		if !c.InputsEnabled() {
			return
		}
		c.mapper.SwitchDirection()
		c.slider = 0
	case hotkey.ActionStop:
		if c.mapper.MotionMode() {
			c.mapper.SetMotionMode(false)
		} else {
			c.mapper.Stop()
		}
		c.slider = 0
	case hotkey.ActionMotion:
		c.toggleMotion()
	case hotkey.ActionConnect:
		c.link.StartScanning()
	case hotkey.ActionDisconnect:
		c.link.CancelScanning()
	}
	c.report()
}

func (c *Controller) toggleMotion() {
	if c.mapper.MotionMode() {
		c.mapper.SetMotionMode(false)
		slog.Info("[CTRL] motion mode off")
		return
	}
	if !c.ready {
		slog.Debug("[CTRL] motion mode needs a ready link")
		return
	}
	if c.tilt == nil {
		slog.Warn("[CTRL] motion mode unavailable, no tilt source configured")
		return
	}
	c.slider = 0
	c.mapper.SetMotionMode(true)
	slog.Info("[CTRL] motion mode on")
}

func (c *Controller) sample() {
	if !c.ready || !c.mapper.MotionMode() || c.tilt == nil {
		return
	}
	angle, ok := c.tilt.Angle()
	if !ok {
		return
	}
	c.mapper.Tilt(angle)
	c.report()
}

func (c *Controller) report() {
	if c.observer == nil {
		return
	}
	speed, dir := c.mapper.Speed(), c.mapper.Direction()
	if speed == c.reportedSpeed && dir == c.reportedDir {
		return
	}
	c.reportedSpeed, c.reportedDir = speed, dir
	c.observer.Command(speed, dir.String())
}

func (c *Controller) shutdown() {
	if c.mapper.MotionMode() {
		c.mapper.SetMotionMode(false)
	} else {
		c.mapper.Stop()
	}
	c.slider = 0
	c.link.CancelScanning()
	c.report()
}

// OnStatus implements ble.Listener.
func (c *Controller) OnStatus(text string) {
	if c.listener != nil {
		c.listener.OnStatus(text)
	}
}

// OnReady implements ble.Listener.
func (c *Controller) OnReady() {
	c.ready = true
	if c.listener != nil {
		c.listener.OnReady()
	}
}

// OnNotReady implements ble.Listener. The mapper is reset so the next link
// starts from a stopped board; its writes are no-ops at this point.
func (c *Controller) OnNotReady() {
	c.ready = false
	c.slider = 0
	if c.mapper.MotionMode() {
		c.mapper.SetMotionMode(false)
	} else {
		c.mapper.Stop()
	}
	if c.listener != nil {
		c.listener.OnNotReady()
	}
	c.report()
}
