package queue

import (
	"context"
	"testing"
	"time"
)

func TestActorVisibleMessageCanBeReceived(t *testing.T) {
	vq := newVisibleQueue()
	a := newTestActor("m1", vq)

	if a.State() != StateVisible {
		t.Fatalf("expected VISIBLE, got %s", a.State())
	}

	info, ok := a.Receive(0, false)
	if !ok {
		t.Fatal("expected receive to succeed")
	}
	if info.ApproxReceiveCount != 1 {
		t.Fatalf("expected receive count 1, got %d", info.ApproxReceiveCount)
	}
	if a.State() != StateInFlight {
		t.Fatalf("expected IN_FLIGHT after receive, got %s", a.State())
	}
}

func TestActorDelayedMessageNotImmediatelyVisible(t *testing.T) {
	vq := newVisibleQueue()
	a := newActor(actorParams{
		ID:                  "delayed1",
		Body:                "later",
		BodyMD5:             "abc",
		DelayMs:             50,
		DefaultVisibilityMs: 30000,
		RetentionSecs:       DefaultRetentionSecs,
		VQ:                  vq,
		OnDelete:            func(*Actor) {},
		DLQSend:             func(string) error { return nil },
		Log:                 testLog(),
	})

	if a.State() != StateDelayed {
		t.Fatalf("expected DELAYED, got %s", a.State())
	}

	got := vq.Dequeue(context.Background(), 10, 10*time.Millisecond)
	if got != nil {
		t.Fatal("expected no dequeue while still delayed")
	}

	time.Sleep(80 * time.Millisecond)
	if a.State() != StateVisible {
		t.Fatalf("expected VISIBLE after delay elapsed, got %s", a.State())
	}
}

func TestActorVisibilityExpiresBackToVisible(t *testing.T) {
	vq := newVisibleQueue()
	a := newTestActor("m2", vq)

	if _, ok := a.Receive(50, true); !ok {
		t.Fatal("expected receive to succeed")
	}
	if a.State() != StateInFlight {
		t.Fatalf("expected IN_FLIGHT, got %s", a.State())
	}

	time.Sleep(120 * time.Millisecond)
	if a.State() != StateVisible {
		t.Fatalf("expected VISIBLE after visibility timeout elapsed, got %s", a.State())
	}

	got := vq.Dequeue(context.Background(), 10, 10*time.Millisecond)
	if len(got) != 1 || got[0] != a {
		t.Fatalf("expected message re-enqueued for redelivery, got %v", got)
	}
}

func TestActorChangeVisibilityToZeroMakesImmediatelyVisible(t *testing.T) {
	vq := newVisibleQueue()
	a := newTestActor("m3", vq)

	if _, ok := a.Receive(30000, true); !ok {
		t.Fatal("expected receive to succeed")
	}

	if err := a.ChangeVisibility(0); err != nil {
		t.Fatalf("change visibility: %v", err)
	}
	if a.State() != StateVisible {
		t.Fatalf("expected VISIBLE immediately, got %s", a.State())
	}

	got := vq.Dequeue(context.Background(), 10, 10*time.Millisecond)
	if len(got) != 1 || got[0] != a {
		t.Fatal("expected message available for redelivery")
	}
}

func TestActorChangeVisibilityRejectedWhenNotInFlight(t *testing.T) {
	vq := newVisibleQueue()
	a := newTestActor("m4", vq)

	if err := a.ChangeVisibility(10000); err == nil {
		t.Fatal("expected error changing visibility of a non in-flight message")
	}
}

func TestActorDeleteIsIdempotentAndRemovesFromVisibleQueue(t *testing.T) {
	vq := newVisibleQueue()
	var deleted bool
	a := newActor(actorParams{
		ID:                  "m5",
		Body:                "x",
		BodyMD5:             "x",
		DefaultVisibilityMs: 30000,
		RetentionSecs:       DefaultRetentionSecs,
		VQ:                  vq,
		OnDelete:            func(*Actor) { deleted = true },
		DLQSend:             func(string) error { return nil },
		Log:                 testLog(),
	})

	a.Delete()
	if !deleted {
		t.Fatal("expected onDelete callback to fire")
	}
	if a.State() != StateDeleted {
		t.Fatalf("expected DELETED, got %s", a.State())
	}

	a.Delete() // must not panic or double-fire

	got := vq.Dequeue(context.Background(), 10, 10*time.Millisecond)
	if got != nil {
		t.Fatal("expected deleted message to be gone from the visible queue")
	}
}

func TestActorExceedingMaxRetriesRoutesToDeadLetterQueue(t *testing.T) {
	vq := newVisibleQueue()
	var dlqBody string
	var deleted bool

	a := newActor(actorParams{
		ID:                  "m6",
		Body:                "poison",
		BodyMD5:             "x",
		DefaultVisibilityMs: 10,
		RetentionSecs:       DefaultRetentionSecs,
		HasMaxRetries:       true,
		MaxRetries:          1,
		DeadLetterQueue:     "dlq",
		VQ:                  vq,
		OnDelete:            func(*Actor) { deleted = true },
		DLQSend: func(body string) error {
			dlqBody = body
			return nil
		},
		Log: testLog(),
	})

	if _, ok := a.Receive(10, true); !ok {
		t.Fatal("expected first receive to succeed")
	}
	time.Sleep(40 * time.Millisecond) // visibility expires, back to VISIBLE

	_, ok := a.Receive(10, true)
	if ok {
		t.Fatal("expected second receive to dead-letter instead of returning the message")
	}
	if dlqBody != "poison" {
		t.Fatalf("expected message body routed to DLQ, got %q", dlqBody)
	}
	if !deleted {
		t.Fatal("expected message to be deleted once dead-lettered")
	}
	if a.State() != StateDeleted {
		t.Fatalf("expected DELETED, got %s", a.State())
	}
}

func TestActorGenerationIncrementsOnEachReceive(t *testing.T) {
	vq := newVisibleQueue()
	a := newTestActor("m7", vq)

	if g := a.Generation(); g != 0 {
		t.Fatalf("expected generation 0 before any receive, got %d", g)
	}
	if _, ok := a.Receive(10, true); !ok {
		t.Fatal("expected receive to succeed")
	}
	if g := a.Generation(); g != 1 {
		t.Fatalf("expected generation 1 after first receive, got %d", g)
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := a.Receive(30000, true); !ok {
		t.Fatal("expected second receive to succeed")
	}
	if g := a.Generation(); g != 2 {
		t.Fatalf("expected generation 2 after second receive, got %d", g)
	}
}
