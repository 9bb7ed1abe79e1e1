package mosession

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bayazee/mosession/store"
)

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: AuditSessionSaved, SessionID: "a"})
	sink.Emit(context.Background(), AuditEvent{EventType: AuditSessionDestroyed, SessionID: "b"})

	scanner := bufio.NewScanner(&buf)
	var events []AuditEvent
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad json line: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].EventType != AuditSessionSaved || events[1].SessionID != "b" {
		t.Fatalf("events out of order: %+v", events)
	}
}

// stuckSink blocks every Emit until released, simulating a wedged
// downstream consumer.
type stuckSink struct {
	release chan struct{}
}

func (s *stuckSink) Emit(ctx context.Context, _ AuditEvent) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &stuckSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)

	for i := 0; i < 64; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditSessionSaved})
	}

	// Buffer (1) plus the one event stuck in the sink leave the rest with
	// nowhere to go; they must be counted, not blocked on.
	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("no events were dropped")
		case <-time.After(time.Millisecond):
		}
	}

	close(sink.release)
	d.Close()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 16,
		DropIfFull: false,
	}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditSessionSaved})
	}
	d.Close()

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
			if got == 5 {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("only %d of 5 events delivered after close", got)
		}
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled audit built a dispatcher")
	}
	// All methods must be safe on the nil dispatcher.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestEngineEmitsLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	sink := NewChannelSink(64)

	engine, err := New().
		WithStore(store.NewMemory()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	s, _ := engine.Begin(ctx, "")
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	instr, err := engine.End(ctx, s)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	loaded, _ := engine.Begin(ctx, instr.Token)
	if err := engine.Destroy(ctx, loaded); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	// Close flushes the pipeline before we read.
	if err := engine.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := map[string]bool{
		AuditSessionCreated:   false,
		AuditSessionDestroyed: false,
	}
	timeout := time.After(2 * time.Second)
	for {
		done := true
		for _, seen := range want {
			if !seen {
				done = false
			}
		}
		if done {
			break
		}

		select {
		case ev := <-sink.Events():
			if _, tracked := want[ev.EventType]; tracked {
				want[ev.EventType] = true
			}
			if ev.Timestamp.IsZero() {
				t.Fatalf("event %q has no timestamp", ev.EventType)
			}
			if ev.SessionID == "" {
				t.Fatalf("event %q has no session id", ev.EventType)
			}
		case <-timeout:
			t.Fatalf("missing events: %+v", want)
		}
	}
}
