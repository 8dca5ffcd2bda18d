package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash fields written by Redis.
const (
	FieldStatus    = "status"
	FieldReady     = "ready"
	FieldSpeed     = "speed"
	FieldDirection = "direction"
	// FieldSnapshot holds the CBOR-encoded Snapshot.
	FieldSnapshot = "snapshot"
)

const (
	writeTimeout = 250 * time.Millisecond
	queueSize    = 64
)

// field is one hash field update.
type field struct {
	name, value string
}

// Redis mirrors link state into a hash and publishes every change as
// "field:value" on a channel named after the hash key, so dashboards can
// HGETALL the current state or SUBSCRIBE for updates. The hash also carries
// the whole state as a CBOR Snapshot.
//
// Listener calls only queue the update; one goroutine does the network
// I/O. Updates are dropped while the queue is full.
type Redis struct {
	client *redis.Client
	key    string

	queue   chan []field
	quit    chan struct{}
	stopped chan struct{}

	// snap is owned by the writer goroutine, then by Close.
	snap Snapshot
}

// NewRedis connects to addr and verifies the server with a PING.
func NewRedis(addr, password string, db int, key string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("status: connecting to redis at %s: %w", addr, err)
	}

	return newRedis(client, key), nil
}

func newRedis(client *redis.Client, key string) *Redis {
	r := &Redis{
		client:  client,
		key:     key,
		queue:   make(chan []field, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Redis) OnStatus(text string) { r.enqueue(field{FieldStatus, text}) }
func (r *Redis) OnReady()             { r.enqueue(field{FieldReady, "1"}) }
func (r *Redis) OnNotReady()          { r.enqueue(field{FieldReady, "0"}) }

// Command records the last command the board was sent.
func (r *Redis) Command(speed int8, direction string) {
	r.enqueue(field{FieldSpeed, fmt.Sprintf("%d", speed)}, field{FieldDirection, direction})
}

func (r *Redis) enqueue(fields ...field) {
	select {
	case r.queue <- fields:
	default:
		slog.Debug("[REDIS] queue full, dropping update", "field", fields[0].name)
	}
}

func (r *Redis) run() {
	defer close(r.stopped)
	for {
		select {
		case fields := <-r.queue:
			r.write(fields)
		case <-r.quit:
			return
		}
	}
}

// write sends fields, the refreshed snapshot and one publish per field in a
// single pipeline bounded by writeTimeout. Failures are only logged.
func (r *Redis) write(fields []field) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	for _, f := range fields {
		r.snap.apply(f.name, f.value)
	}
	snap, err := EncodeSnapshot(r.snap)
	if err != nil {
		slog.Warn("[REDIS] snapshot not encoded", "error", err)
	}

	pipe := r.client.Pipeline()
	for _, f := range fields {
		pipe.HSet(ctx, r.key, f.name, f.value)
	}
	if snap != nil {
		pipe.HSet(ctx, r.key, FieldSnapshot, snap)
	}
	for _, f := range fields {
		pipe.Publish(ctx, r.key, f.name+":"+f.value)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("[REDIS] write failed", "key", r.key, "field", fields[0].name, "error", err)
	}
}

// Close stops the writer, drops anything still queued, clears the ready
// flag and closes the connection.
func (r *Redis) Close() error {
	close(r.quit)
	<-r.stopped
	r.write([]field{{FieldReady, "0"}})
	return r.client.Close()
}
