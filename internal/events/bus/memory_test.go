package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hookline/hookline/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "debug",
		Format:     "console",
		OutputPath: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func TestNewMemoryEventBus(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)

	if b == nil {
		t.Fatal("Expected non-nil bus")
	}
	if !b.IsConnected() {
		t.Error("Expected bus to be connected")
	}
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	defer b.Close()

	ctx := context.Background()
	received := make(chan *Event, 1)

	sub, err := b.Subscribe("job.finished", func(ctx context.Context, event *Event) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	event := NewEvent("job.finished", "test-source", map[string]string{"JOB_STATUS": "SUCCESS"})
	if err := b.Publish(ctx, "job.finished", event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case e := <-received:
		if e.ID != event.ID {
			t.Errorf("Expected event ID %s, got %s", event.ID, e.ID)
		}
		if e.Data["JOB_STATUS"] != "SUCCESS" {
			t.Errorf("Expected context to carry JOB_STATUS, got %v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestMemoryEventBus_MultipleSubscribers(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	defer b.Close()

	ctx := context.Background()
	var count int32
	done := make(chan struct{}, 3)

	for i := 0; i < 3; i++ {
		_, err := b.Subscribe("trigger.received", func(ctx context.Context, event *Event) error {
			atomic.AddInt32(&count, 1)
			done <- struct{}{}
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	event := NewEvent("trigger.received", "test-source", nil)
	if err := b.Publish(ctx, "trigger.received", event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for subscriber")
		}
	}

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("Expected 3 deliveries, got %d", got)
	}
}

func TestMemoryEventBus_WildcardSubscription(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	defer b.Close()

	ctx := context.Background()
	received := make(chan string, 2)

	_, err := b.Subscribe("trigger.*", func(ctx context.Context, event *Event) error {
		received <- event.Type
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for _, subject := range []string{"trigger.received", "trigger.skipped"} {
		if err := b.Publish(ctx, subject, NewEvent(subject, "test", nil)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case typ := <-received:
			seen[typ] = true
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for wildcard delivery")
		}
	}
	if !seen["trigger.received"] || !seen["trigger.skipped"] {
		t.Errorf("Expected both subjects delivered, got %v", seen)
	}
}

func TestMemoryEventBus_QueueSubscribeDeliversOnce(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	defer b.Close()

	ctx := context.Background()
	var count int32
	done := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		_, err := b.QueueSubscribe("job.finished", "workers", func(ctx context.Context, event *Event) error {
			atomic.AddInt32(&count, 1)
			done <- struct{}{}
			return nil
		})
		if err != nil {
			t.Fatalf("QueueSubscribe failed: %v", err)
		}
	}

	if err := b.Publish(ctx, "job.finished", NewEvent("job.finished", "test", nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for queue delivery")
	}

	// Give a misbehaving second delivery a moment to show up.
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("Expected exactly one queue delivery, got %d", got)
	}
}

func TestMemoryEventBus_PublishAfterClose(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	b.Close()

	if b.IsConnected() {
		t.Error("Expected bus to be disconnected after close")
	}
	if err := b.Publish(context.Background(), "job.finished", NewEvent("job.finished", "test", nil)); err == nil {
		t.Error("Expected publish on closed bus to fail")
	}
}

func TestMemoryEventBus_Unsubscribe(t *testing.T) {
	log := newTestLogger(t)
	b := NewMemoryEventBus(log)
	defer b.Close()

	var count int32
	sub, err := b.Subscribe("job.finished", func(ctx context.Context, event *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if sub.IsValid() {
		t.Error("Expected subscription to be invalid after unsubscribe")
	}

	if err := b.Publish(context.Background(), "job.finished", NewEvent("job.finished", "test", nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("Expected no deliveries after unsubscribe, got %d", got)
	}
}
