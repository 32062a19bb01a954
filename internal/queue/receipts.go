package queue

import (
	"sync"

	"github.com/google/uuid"
)

// receiptEntry binds an issued handle to the actor and the actor's
// generation at issuance time, so a later re-receive (which bumps the
// actor's generation) invalidates earlier handles (spec §4.4).
type receiptEntry struct {
	actor      *Actor
	generation uint64
}

// receiptTable is the per-queue mapping from opaque receipt handles to
// in-flight Message Actors (spec §4.4).
type receiptTable struct {
	mu      sync.Mutex
	entries map[string]receiptEntry
}

func newReceiptTable() *receiptTable {
	return &receiptTable{entries: make(map[string]receiptEntry)}
}

// Issue mints a fresh, unguessable handle bound to the actor's current
// generation.
func (t *receiptTable) Issue(a *Actor) string {
	handle := uuid.NewString()
	t.mu.Lock()
	t.entries[handle] = receiptEntry{actor: a, generation: a.Generation()}
	t.mu.Unlock()
	return handle
}

// Resolve returns the actor bound to handle, failing with
// ReceiptHandleIsInvalid if the handle is unknown or stale (a newer
// receive superseded it).
func (t *receiptTable) Resolve(handle string) (*Actor, error) {
	t.mu.Lock()
	entry, ok := t.entries[handle]
	t.mu.Unlock()
	if !ok {
		return nil, errReceiptInvalid(handle)
	}
	if entry.actor.Generation() != entry.generation {
		return nil, errReceiptInvalid(handle)
	}
	return entry.actor, nil
}

// Revoke idempotently removes a handle.
func (t *receiptTable) Revoke(handle string) {
	t.mu.Lock()
	delete(t.entries, handle)
	t.mu.Unlock()
}
