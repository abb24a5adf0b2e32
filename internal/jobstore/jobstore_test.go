package jobstore

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"idcards/internal/progress"
)

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Put(ctx, Status{ID: "j1", State: StateQueued}); err != nil {
		t.Fatal(err)
	}
	if s, err := m.Get(ctx, "j1"); err != nil || s.State != StateQueued {
		t.Fatalf("get = %+v, %v", s, err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired job err = %v", err)
	}
}

func TestProgressSinkUpdatesStatus(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	_ = m.Put(ctx, Status{ID: "j1", State: StateRunning, Total: 3})

	sink := ProgressSink(ctx, m, "j1", slog.Default())
	sink(progress.Event{Current: 2, Total: 3, Status: progress.StatusProcessing, Message: "Capturing card 2 of 3"})

	s, _ := m.Get(ctx, "j1")
	if s.Current != 2 || s.Step != progress.StatusProcessing || s.Message != "Capturing card 2 of 3" {
		t.Fatalf("status = %+v", s)
	}
	if s.State != StateRunning {
		t.Errorf("progress must not change state, got %s", s.State)
	}

	// Unknown job: logged, not fatal.
	ProgressSink(ctx, m, "missing", slog.Default())(progress.Event{})
}
