package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type req struct {
		JobID string   `json:"job_id"`
		IDs   []string `json:"ids"`
	}
	msg, err := NewMessage(TypeExport, req{JobID: "j1", IDs: []string{"E1", "E2"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatal(err)
	}

	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-ch:
		var r req
		if err := got.Decode(&r); err != nil {
			t.Fatal(err)
		}
		if got.Type != TypeExport || r.JobID != "j1" || len(r.IDs) != 2 {
			t.Fatalf("got %+v / %+v", got, r)
		}
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := q.Consume(ctx)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer channel not closed after cancel")
	}
}
