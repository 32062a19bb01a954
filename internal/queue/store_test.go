package queue

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("test", true)
}

func TestStoreAddQueueCreatesOnce(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())

	created, err := s.AddQueue("orders", DefaultConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first AddQueue")
	}
	if !s.Exists("orders") {
		t.Fatal("expected queue to exist after create")
	}
}

func TestStoreAddQueueIdempotentWithSameConfig(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())
	cfg := DefaultConfig()

	if _, err := s.AddQueue("orders", cfg); err != nil {
		t.Fatalf("first create: %v", err)
	}
	created, err := s.AddQueue("orders", cfg)
	if err != nil {
		t.Fatalf("idempotent create: %v", err)
	}
	if created {
		t.Fatal("expected created=false on repeat AddQueue with identical config")
	}
}

func TestStoreAddQueueConflictsOnDifferentConfig(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())

	if _, err := s.AddQueue("orders", DefaultConfig()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	other := DefaultConfig()
	other.VisibilityTimeoutMs = 60000

	_, err := s.AddQueue("orders", other)
	if err == nil {
		t.Fatal("expected QueueNameExists error for conflicting config")
	}
	sqsErr, ok := err.(*SQSError)
	if !ok || sqsErr.Code != CodeQueueNameExists {
		t.Fatalf("expected CodeQueueNameExists, got %v", err)
	}
}

func TestStoreHandleNonExistentQueue(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())

	_, err := s.Handle("missing")
	if err == nil {
		t.Fatal("expected error for missing queue")
	}
	sqsErr, ok := err.(*SQSError)
	if !ok || sqsErr.Code != CodeNonExistentQueue {
		t.Fatalf("expected CodeNonExistentQueue, got %v", err)
	}
}

func TestStoreRemoveQueueIsIdempotent(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())
	if _, err := s.AddQueue("orders", DefaultConfig()); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.RemoveQueue("orders")
	if s.Exists("orders") {
		t.Fatal("expected queue to be gone after RemoveQueue")
	}

	s.RemoveQueue("orders") // must not panic
}

func TestStoreNamesFiltersByPrefix(t *testing.T) {
	s := NewStore("http://localhost:8080", testLog())
	for _, name := range []string{"orders-a", "orders-b", "billing"} {
		if _, err := s.AddQueue(name, DefaultConfig()); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	names := s.Names("orders")
	if len(names) != 2 {
		t.Fatalf("expected 2 matching names, got %d: %v", len(names), names)
	}
}
