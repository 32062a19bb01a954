package queue

import "time"

// State is a Message Actor's position in the lifecycle state machine (spec §3/§4.2).
type State int

const (
	StateDelayed State = iota
	StateVisible
	StateInFlight
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateDelayed:
		return "DELAYED"
	case StateVisible:
		return "VISIBLE"
	case StateInFlight:
		return "IN_FLIGHT"
	case StateDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Defaults mirror spec §3.
const (
	DefaultMaxMessageBytes = 262144
	DefaultRetentionSecs   = 345600
	MaxMessagesPerReceive  = 10
	MaxVisibilityTimeoutMs = 43200 * 1000
)

// Config holds a queue's immutable-after-creation attributes (spec §3, QueueConfig).
type Config struct {
	DelayMs             int64
	MaxMessageBytes     int
	RetentionSecs       int64
	RecvWaitTimeMs      int64
	VisibilityTimeoutMs int64
	MaxRetries          int // only meaningful when HasMaxRetries is true
	HasMaxRetries       bool
	DeadLetterQueue     string
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		DelayMs:             0,
		MaxMessageBytes:     DefaultMaxMessageBytes,
		RetentionSecs:       DefaultRetentionSecs,
		RecvWaitTimeMs:      0,
		VisibilityTimeoutMs: 30000,
	}
}

// Equal reports whether two configs are attribute-for-attribute identical,
// used by the Queue Store to decide CreateQueue idempotency vs. conflict.
func (c Config) Equal(o Config) bool {
	return c.DelayMs == o.DelayMs &&
		c.MaxMessageBytes == o.MaxMessageBytes &&
		c.RetentionSecs == o.RetentionSecs &&
		c.RecvWaitTimeMs == o.RecvWaitTimeMs &&
		c.VisibilityTimeoutMs == o.VisibilityTimeoutMs &&
		c.HasMaxRetries == o.HasMaxRetries &&
		c.MaxRetries == o.MaxRetries &&
		c.DeadLetterQueue == o.DeadLetterQueue
}

// MessageInfo is an immutable snapshot of a message's visible state,
// returned by Actor.Receive (spec §3, MessageInfo).
type MessageInfo struct {
	MessageID             string
	Body                  string
	BodyMD5               string
	SentTimestamp         int64
	FirstReceiveTimestamp int64
	ApproxReceiveCount    int
	State                 State
}

// Attributes renders the AWS-named system attributes exposed on receive (spec §4.5).
func (m MessageInfo) Attributes() map[string]string {
	return map[string]string{
		"SentTimestamp":                    itoa64(m.SentTimestamp),
		"ApproximateReceiveCount":          itoa(m.ApproxReceiveCount),
		"ApproximateFirstReceiveTimestamp": itoa64(m.FirstReceiveTimestamp),
	}
}

func nowSec() int64 {
	return time.Now().Unix()
}
