package ble

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"
)

// fakeScanner blocks in Scan until StopScan, like the real adapter, and
// refuses to start while a scan is still running.
type fakeScanner struct {
	mu      sync.Mutex
	active  bool
	starts  int
	stops   int
	stopped chan struct{}
}

func (s *fakeScanner) Scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return errors.New("already scanning")
	}
	s.active = true
	s.starts++
	stopped := make(chan struct{})
	s.stopped = stopped
	s.mu.Unlock()

	<-stopped
	time.Sleep(20 * time.Millisecond) // the adapter takes a moment to wind down

	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return nil
}

func (s *fakeScanner) StopScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.stopped == nil {
		return errors.New("not scanning")
	}
	close(s.stopped)
	s.stopped = nil
	return nil
}

func (s *fakeScanner) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

type closingRadio struct {
	closed int
}

func (r *closingRadio) RadioState() RadioState { return RadioPoweredOn }
func (r *closingRadio) Close() error           { r.closed++; return nil }

func newScannerCentral() (*TinyGoCentral, *fakeScanner) {
	s := &fakeScanner{}
	c := NewTinyGoCentral(&closingRadio{})
	c.scanner = s
	return c, s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTinyGoRescanRightAfterStop(t *testing.T) {
	c, s := newScannerCentral()

	if err := c.Scan(DefaultServiceUUID); err != nil {
		t.Fatalf("first Scan() error = %v", err)
	}
	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })

	if err := c.StopScan(); err != nil {
		t.Fatalf("StopScan() error = %v", err)
	}
	if c.IsScanning() {
		t.Error("IsScanning() = true right after StopScan")
	}
	if err := c.Scan(DefaultServiceUUID); err != nil {
		t.Fatalf("Scan() right after StopScan error = %v", err)
	}
	waitFor(t, func() bool { n, _ := s.counts(); return n == 2 })

	if !c.IsScanning() {
		t.Error("IsScanning() = false during second scan")
	}
	_ = c.StopScan()
}

func TestTinyGoStopScanTwice(t *testing.T) {
	c, s := newScannerCentral()
	_ = c.Scan(DefaultServiceUUID)
	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })

	if err := c.StopScan(); err != nil {
		t.Fatalf("StopScan() error = %v", err)
	}
	if err := c.StopScan(); err != nil {
		t.Fatalf("second StopScan() error = %v", err)
	}
	if _, stops := s.counts(); stops != 1 {
		t.Errorf("adapter StopScan called %d times, want 1", stops)
	}
}

func TestTinyGoScanInvalidUUID(t *testing.T) {
	c, _ := newScannerCentral()
	if err := c.Scan("nope"); err == nil {
		t.Error("Scan() should reject an invalid UUID")
	}
	if c.IsScanning() {
		t.Error("IsScanning() = true after a rejected scan")
	}
}

func TestTinyGoCloseClosesRadio(t *testing.T) {
	radio := &closingRadio{}
	c := NewTinyGoCentral(radio)
	c.scanner = &fakeScanner{}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_ = c.Close()

	if radio.closed != 1 {
		t.Errorf("radio closed %d times, want 1", radio.closed)
	}
}
