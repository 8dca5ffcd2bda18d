package tilt

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
)

// OSC listens for OSC messages on one address path and keeps the first
// numeric argument of the latest message as the angle. Phone sensor apps
// (TouchOSC, ZIG SIM, ...) can stream pitch this way.
type OSC struct {
	addr string
	path string

	bits atomic.Uint64
	have atomic.Bool

	conn   net.PacketConn
	server *osc.Server
}

// NewOSC creates a source listening on addr (e.g. "0.0.0.0:8000") for
// messages sent to path (e.g. "/skate/pitch").
func NewOSC(addr, path string) *OSC {
	return &OSC{addr: addr, path: path}
}

// Start binds the UDP socket and serves in the background.
func (o *OSC) Start() error {
	dispatcher := osc.NewStandardDispatcher()
	if err := dispatcher.AddMsgHandler(o.path, o.handle); err != nil {
		return fmt.Errorf("tilt: register %s: %w", o.path, err)
	}

	conn, err := net.ListenPacket("udp", o.addr)
	if err != nil {
		return fmt.Errorf("tilt: listen %s: %w", o.addr, err)
	}
	o.conn = conn
	o.server = &osc.Server{Addr: o.addr, Dispatcher: dispatcher}

	slog.Info("[OSC] listening", "addr", conn.LocalAddr().String(), "path", o.path)
	go func() {
		if err := o.server.Serve(conn); err != nil {
			slog.Debug("[OSC] server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (o *OSC) Addr() string {
	if o.conn == nil {
		return ""
	}
	return o.conn.LocalAddr().String()
}

func (o *OSC) Angle() (float64, bool) {
	if !o.have.Load() {
		return 0, false
	}
	return math.Float64frombits(o.bits.Load()), true
}

// Close stops the server.
func (o *OSC) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

func (o *OSC) handle(msg *osc.Message) {
	if len(msg.Arguments) == 0 {
		return
	}
	v, ok := toFloat(msg.Arguments[0])
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		slog.Debug("[OSC] ignoring argument", "address", msg.Address, "arg", msg.Arguments[0])
		return
	}
	o.bits.Store(math.Float64bits(v))
	o.have.Store(true)
}

func toFloat(arg interface{}) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
