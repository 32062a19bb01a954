package queue

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Actor owns exactly one message's lifecycle: its delay/visibility/retention
// timers, receive counter, and state machine (spec §4.2). All operations on
// an Actor are serialized by its own mutex, which stands in for the
// single-threaded mailbox described in spec §5 — timers fire on their own
// goroutines but take the same lock before touching state.
type Actor struct {
	mu sync.Mutex

	id      string
	body    string
	bodyMD5 string

	sentTimestamp         int64
	firstReceiveTimestamp int64
	approxReceiveCount    int

	defaultVisibilityMs int64
	hasMaxRetries       bool
	maxRetries          int
	deadLetterQueue     string

	state      State
	generation uint64

	delayTimer     *time.Timer
	visTimer       *time.Timer
	retentionTimer *time.Timer

	vq       *visibleQueue
	onDelete func(*Actor)
	dlqSend  func(body string) error
	log      *logrus.Entry
}

// actorParams bundles the per-message overrides captured at send time,
// resolved from queue config plus the send-time arguments (spec §3/§4.5).
type actorParams struct {
	ID                  string
	Body                string
	BodyMD5             string
	DelayMs             int64
	DefaultVisibilityMs int64
	RetentionSecs       int64
	HasMaxRetries       bool
	MaxRetries          int
	DeadLetterQueue     string
	VQ                  *visibleQueue
	OnDelete            func(*Actor)
	DLQSend             func(body string) error
	Log                 *logrus.Entry
}

func newActor(p actorParams) *Actor {
	a := &Actor{
		id:                  p.ID,
		body:                p.Body,
		bodyMD5:             p.BodyMD5,
		sentTimestamp:       nowSec(),
		defaultVisibilityMs: p.DefaultVisibilityMs,
		hasMaxRetries:       p.HasMaxRetries,
		maxRetries:          p.MaxRetries,
		deadLetterQueue:     p.DeadLetterQueue,
		vq:                  p.VQ,
		onDelete:            p.OnDelete,
		dlqSend:             p.DLQSend,
		log:                 p.Log,
	}

	a.retentionTimer = time.AfterFunc(time.Duration(p.RetentionSecs)*time.Second, a.onRetentionExpire)

	if p.DelayMs > 0 {
		a.state = StateDelayed
		a.delayTimer = time.AfterFunc(time.Duration(p.DelayMs)*time.Millisecond, a.onDelayExpire)
	} else {
		a.state = StateVisible
		a.vq.Enqueue(a)
	}
	return a
}

// ID returns the message's immutable identifier.
func (a *Actor) ID() string {
	return a.id
}

func (a *Actor) onDelayExpire() {
	a.mu.Lock()
	if a.state != StateDelayed {
		a.mu.Unlock()
		return
	}
	a.state = StateVisible
	a.mu.Unlock()
	a.vq.Enqueue(a)
}

func (a *Actor) onVisibilityExpire() {
	a.mu.Lock()
	if a.state != StateInFlight {
		a.mu.Unlock()
		return
	}
	a.state = StateVisible
	a.mu.Unlock()
	a.vq.Enqueue(a)
}

func (a *Actor) onRetentionExpire() {
	a.mu.Lock()
	if a.state == StateDeleted {
		a.mu.Unlock()
		return
	}
	wasVisible := a.state == StateVisible
	a.state = StateDeleted
	a.stopTimersLocked()
	a.mu.Unlock()

	if wasVisible {
		a.vq.Remove(a)
	}
	a.onDelete(a)
}

// Receive implements spec §4.2's receive operation. hasOverride distinguishes
// an explicit visibilityTimeoutMs of 0 from "use the message's default".
func (a *Actor) Receive(visibilityTimeoutMs int64, hasOverride bool) (MessageInfo, bool) {
	a.mu.Lock()
	if a.state != StateVisible {
		a.mu.Unlock()
		return MessageInfo{}, false
	}

	a.state = StateInFlight
	// Drop any reference still sitting in the visible queue (one that was not
	// taken by a Dequeue), so a later re-enqueue does not duplicate it.
	a.vq.Remove(a)
	a.generation++
	a.approxReceiveCount++
	if a.firstReceiveTimestamp == 0 {
		a.firstReceiveTimestamp = nowSec()
	}

	if a.hasMaxRetries && a.approxReceiveCount > a.maxRetries && a.deadLetterQueue != "" {
		a.state = StateDeleted
		a.stopTimersLocked()
		body := a.body
		a.mu.Unlock()

		a.sendToDLQ(body)
		a.onDelete(a)
		return MessageInfo{}, false
	}

	ms := a.defaultVisibilityMs
	if hasOverride {
		ms = visibilityTimeoutMs
	}
	a.armVisibilityLocked(ms)

	info := a.snapshotLocked()
	a.mu.Unlock()
	return info, true
}

func (a *Actor) sendToDLQ(body string) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("panic while dead-lettering message")
		}
	}()
	if err := a.dlqSend(body); err != nil {
		a.log.WithError(err).Warn("failed to route message to dead-letter queue")
	}
}

// ChangeVisibility implements spec §4.2's change_visibility operation.
func (a *Actor) ChangeVisibility(ms int64) error {
	a.mu.Lock()

	if a.state != StateInFlight {
		a.mu.Unlock()
		return newError(CodeReceiptInvalid, "The input receipt handle is not valid for this message's current state.")
	}

	if ms <= 0 {
		if a.visTimer != nil {
			a.visTimer.Stop()
		}
		a.state = StateVisible
		a.mu.Unlock()
		a.vq.Enqueue(a)
		return nil
	}

	a.armVisibilityLocked(ms)
	a.mu.Unlock()
	return nil
}

func (a *Actor) armVisibilityLocked(ms int64) {
	if a.visTimer != nil {
		a.visTimer.Stop()
	}
	a.visTimer = time.AfterFunc(time.Duration(ms)*time.Millisecond, a.onVisibilityExpire)
}

// Delete implements spec §4.2's delete operation; idempotent.
func (a *Actor) Delete() {
	a.mu.Lock()
	if a.state == StateDeleted {
		a.mu.Unlock()
		return
	}
	wasVisible := a.state == StateVisible
	a.state = StateDeleted
	a.stopTimersLocked()
	a.mu.Unlock()

	if wasVisible {
		a.vq.Remove(a)
	}
	a.onDelete(a)
}

func (a *Actor) stopTimersLocked() {
	if a.delayTimer != nil {
		a.delayTimer.Stop()
	}
	if a.visTimer != nil {
		a.visTimer.Stop()
	}
	if a.retentionTimer != nil {
		a.retentionTimer.Stop()
	}
}

// Generation returns the actor's current receipt generation, incremented on
// every transition to IN_FLIGHT; used by the receipt handle table to
// invalidate stale handles (spec §4.4).
func (a *Actor) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// State returns the actor's current lifecycle state.
func (a *Actor) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor) snapshotLocked() MessageInfo {
	return MessageInfo{
		MessageID:             a.id,
		Body:                  a.body,
		BodyMD5:               a.bodyMD5,
		SentTimestamp:         a.sentTimestamp,
		FirstReceiveTimestamp: a.firstReceiveTimestamp,
		ApproxReceiveCount:    a.approxReceiveCount,
		State:                 a.state,
	}
}
