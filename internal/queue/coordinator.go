package queue

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Coordinator is the per-queue façade that composes the Visible-Message
// Queue, the Receipt Handle Table, and the message set to run send/receive/
// delete/change-visibility/delete-queue (spec §4.5).
type Coordinator struct {
	name   string
	cfgMu  sync.RWMutex
	cfg    Config
	store  *Store
	vq     *visibleQueue
	recpts *receiptTable
	log    *logrus.Entry

	mu       sync.Mutex
	messages map[string]*Actor

	torn atomic.Bool
}

func newCoordinator(name string, cfg Config, store *Store, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		name:     name,
		cfg:      cfg,
		store:    store,
		vq:       newVisibleQueue(),
		recpts:   newReceiptTable(),
		log:      log,
		messages: make(map[string]*Actor),
	}
}

// Config returns a snapshot of the queue's current attributes.
func (c *Coordinator) Config() Config {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// ReceivedMessage is a message handed back by ReceiveMessage, with its
// freshly-issued receipt handle and the caller-filtered attribute set
// (spec §4.5).
type ReceivedMessage struct {
	MessageID     string
	Body          string
	BodyMD5       string
	ReceiptHandle string
	Attributes    map[string]string
}

// SendMessage implements spec §4.5's SendMessage. delayMs == nil uses the
// queue's configured default delay.
func (c *Coordinator) SendMessage(body string, delayMs *int64) (messageID, bodyMD5 string, err error) {
	if c.torn.Load() {
		return "", "", errNonExistentQueue(c.name)
	}

	cfg := c.Config()

	if len(body) > cfg.MaxMessageBytes {
		return "", "", errInvalidParameter(
			"One or more parameters are invalid. Reason: Message must be shorter than %d bytes.", cfg.MaxMessageBytes)
	}

	delay := cfg.DelayMs
	if delayMs != nil {
		delay = *delayMs
	}

	sum := md5.Sum([]byte(body))
	id := uuid.NewString()
	md5hex := hex.EncodeToString(sum[:])

	actor := newActor(actorParams{
		ID:                  id,
		Body:                body,
		BodyMD5:             md5hex,
		DelayMs:             delay,
		DefaultVisibilityMs: cfg.VisibilityTimeoutMs,
		RetentionSecs:       cfg.RetentionSecs,
		HasMaxRetries:       cfg.HasMaxRetries,
		MaxRetries:          cfg.MaxRetries,
		DeadLetterQueue:     cfg.DeadLetterQueue,
		VQ:                  c.vq,
		OnDelete:            c.removeMessage,
		DLQSend:             c.sendToDeadLetterQueue(cfg.DeadLetterQueue),
		Log:                 c.log,
	})

	c.mu.Lock()
	c.messages[id] = actor
	c.mu.Unlock()

	return id, md5hex, nil
}

func (c *Coordinator) sendToDeadLetterQueue(dlqName string) func(string) error {
	return func(body string) error {
		if dlqName == "" {
			return nil
		}
		dlq, err := c.store.Handle(dlqName)
		if err != nil {
			return err
		}
		_, _, err = dlq.SendMessage(body, nil)
		return err
	}
}

func (c *Coordinator) removeMessage(a *Actor) {
	c.mu.Lock()
	delete(c.messages, a.ID())
	c.mu.Unlock()
}

// ReceiveMessage implements spec §4.5's ReceiveMessage. waitMs/visMs == nil
// fall back to the queue's configured defaults. requestedAttrs filters the
// returned system attributes; "All" returns every attribute.
func (c *Coordinator) ReceiveMessage(ctx context.Context, maxMessages int, waitMs, visMs *int64, requestedAttrs []string) ([]ReceivedMessage, error) {
	cfg := c.Config()

	wait := cfg.RecvWaitTimeMs
	if waitMs != nil {
		wait = *waitMs
	}

	refs := c.vq.Dequeue(ctx, maxMessages, time.Duration(wait)*time.Millisecond)
	if len(refs) == 0 {
		if c.torn.Load() {
			return nil, errNonExistentQueue(c.name)
		}
		return nil, nil
	}

	if ctx.Err() != nil {
		c.vq.PutBackFront(refs)
		return nil, nil
	}

	out := make([]ReceivedMessage, 0, len(refs))
	for _, a := range refs {
		info, ok := a.Receive(derefOr(visMs, 0), visMs != nil)
		if !ok {
			continue // deleted or dead-lettered between dequeue and receive
		}
		handle := c.recpts.Issue(a)
		out = append(out, ReceivedMessage{
			MessageID:     info.MessageID,
			Body:          info.Body,
			BodyMD5:       info.BodyMD5,
			ReceiptHandle: handle,
			Attributes:    filterAttributes(info.Attributes(), requestedAttrs),
		})
	}
	return out, nil
}

func derefOr(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

func filterAttributes(all map[string]string, requested []string) map[string]string {
	if len(requested) == 0 {
		return nil
	}
	for _, name := range requested {
		if name == "All" {
			return all
		}
	}
	out := make(map[string]string, len(requested))
	for _, name := range requested {
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out
}

// DeleteMessage implements spec §4.5's DeleteMessage.
func (c *Coordinator) DeleteMessage(receiptHandle string) error {
	a, err := c.recpts.Resolve(receiptHandle)
	if err != nil {
		return err
	}
	a.Delete()
	c.recpts.Revoke(receiptHandle)
	return nil
}

// ChangeMessageVisibility implements spec §4.5's ChangeMessageVisibility.
func (c *Coordinator) ChangeMessageVisibility(receiptHandle string, ms int64) error {
	a, err := c.recpts.Resolve(receiptHandle)
	if err != nil {
		return err
	}
	return a.ChangeVisibility(ms)
}

// Counts reports the approximate number of messages in each externally
// visible state, for GetQueueAttributes.
func (c *Coordinator) Counts() (visible, inFlight, delayed int) {
	c.mu.Lock()
	actors := make([]*Actor, 0, len(c.messages))
	for _, a := range c.messages {
		actors = append(actors, a)
	}
	c.mu.Unlock()

	for _, a := range actors {
		switch a.State() {
		case StateVisible:
			visible++
		case StateInFlight:
			inFlight++
		case StateDelayed:
			delayed++
		}
	}
	return
}

// teardown cancels every owned message's timers, discards the Visible-
// Message Queue, and releases all references (spec §4.5's DeleteQueue).
func (c *Coordinator) teardown() {
	c.torn.Store(true)
	c.vq.Close()

	c.mu.Lock()
	actors := make([]*Actor, 0, len(c.messages))
	for _, a := range c.messages {
		actors = append(actors, a)
	}
	c.mu.Unlock()

	for _, a := range actors {
		a.Delete()
	}
}
