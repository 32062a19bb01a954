package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Engine is the top-level entry point used by the HTTP layer: it owns the
// Queue Store and translates raw SQS wire attributes (seconds, ARNs) into
// the internal millisecond-based Config the runtime operates on (spec §6).
type Engine struct {
	store *Store
}

// NewEngine constructs an Engine rooted at baseURL (used to build queue
// URLs per spec §6's "Queue URL format").
func NewEngine(baseURL string, log *logrus.Entry) *Engine {
	return &Engine{store: NewStore(baseURL, log)}
}

// QueueURL renders the configured base URL format for a queue name.
func (e *Engine) QueueURL(name string) string {
	return strings.TrimRight(e.store.BaseURL(), "/") + "/" + name
}

// CreateQueue implements spec §4.5's CreateQueue.
func (e *Engine) CreateQueue(name string, attrs map[string]string) (string, error) {
	if name == "" {
		return "", errMissingParameter("QueueName")
	}

	cfg := DefaultConfig()

	if v, ok := attrs["VisibilityTimeout"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.VisibilityTimeoutMs = n * 1000
		}
	}
	if v, ok := attrs["MessageRetentionPeriod"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RetentionSecs = n
		}
	}
	if v, ok := attrs["DelaySeconds"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DelayMs = n * 1000
		}
	}
	if v, ok := attrs["ReceiveMessageWaitTimeSeconds"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RecvWaitTimeMs = n * 1000
		}
	}
	if v, ok := attrs["MaximumMessageSize"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxMessageBytes = n
		}
	}
	if v, ok := attrs["RedrivePolicy"]; ok {
		var policy struct {
			DeadLetterTargetArn string `json:"deadLetterTargetArn"`
			MaxReceiveCount     int    `json:"maxReceiveCount"`
		}
		if err := json.Unmarshal([]byte(v), &policy); err == nil {
			parts := strings.Split(policy.DeadLetterTargetArn, ":")
			if len(parts) >= 6 {
				cfg.DeadLetterQueue = parts[5]
				cfg.MaxRetries = policy.MaxReceiveCount
				cfg.HasMaxRetries = true
			}
		}
	}

	if _, err := e.store.AddQueue(name, cfg); err != nil {
		return "", err
	}
	return e.QueueURL(name), nil
}

// GetQueueUrl implements spec §4.5's GetQueueUrl.
func (e *Engine) GetQueueUrl(name string) (string, error) {
	if !e.store.Exists(name) {
		return "", errNonExistentQueue(name)
	}
	return e.QueueURL(name), nil
}

// DeleteQueue implements spec §4.5's DeleteQueue.
func (e *Engine) DeleteQueue(name string) error {
	e.store.RemoveQueue(name)
	return nil
}

// ListQueues returns queue URLs, optionally filtered by name prefix.
func (e *Engine) ListQueues(prefix string) []string {
	names := e.store.Names(prefix)
	urls := make([]string, len(names))
	for i, n := range names {
		urls[i] = e.QueueURL(n)
	}
	return urls
}

// SendMessage implements spec §4.5's SendMessage.
func (e *Engine) SendMessage(queueName, body string, delaySeconds *int64) (id, bodyMD5 string, err error) {
	c, err := e.store.Handle(queueName)
	if err != nil {
		return "", "", err
	}
	var delayMs *int64
	if delaySeconds != nil {
		ms := *delaySeconds * 1000
		delayMs = &ms
	}
	return c.SendMessage(body, delayMs)
}

// ReceiveMessage implements spec §4.5's ReceiveMessage.
func (e *Engine) ReceiveMessage(ctx context.Context, queueName string, maxMessages int, waitSeconds, visSeconds *int64, requestedAttrs []string) ([]ReceivedMessage, error) {
	c, err := e.store.Handle(queueName)
	if err != nil {
		return nil, err
	}
	if maxMessages < 1 || maxMessages > MaxMessagesPerReceive {
		return nil, errInvalidParameter(
			"Value %d for parameter MaxNumberOfMessages is invalid. Reason: Must be between 1 and 10, if provided.", maxMessages)
	}

	var waitMs, visMs *int64
	if waitSeconds != nil {
		ms := *waitSeconds * 1000
		waitMs = &ms
	}
	if visSeconds != nil {
		ms := *visSeconds * 1000
		visMs = &ms
	}
	return c.ReceiveMessage(ctx, maxMessages, waitMs, visMs, requestedAttrs)
}

// DeleteMessage implements spec §4.5's DeleteMessage.
func (e *Engine) DeleteMessage(queueName, receiptHandle string) error {
	c, err := e.store.Handle(queueName)
	if err != nil {
		return err
	}
	return c.DeleteMessage(receiptHandle)
}

// ChangeMessageVisibility implements spec §4.5's ChangeMessageVisibility.
func (e *Engine) ChangeMessageVisibility(queueName, receiptHandle string, seconds int64) error {
	c, err := e.store.Handle(queueName)
	if err != nil {
		return err
	}
	return c.ChangeMessageVisibility(receiptHandle, seconds*1000)
}

// GetQueueAttributes returns the queue's effective attributes, filtered by
// requested names ("All" returns every attribute). Supplements spec §4.5.
func (e *Engine) GetQueueAttributes(queueName string, requested []string) (map[string]string, error) {
	c, err := e.store.Handle(queueName)
	if err != nil {
		return nil, err
	}
	cfg := c.Config()
	visible, inFlight, delayed := c.Counts()

	all := map[string]string{
		"QueueArn":                             fmt.Sprintf("arn:aws:sqs:local:000000000000:%s", queueName),
		"ApproximateNumberOfMessages":           itoa(visible),
		"ApproximateNumberOfMessagesNotVisible": itoa(inFlight),
		"ApproximateNumberOfMessagesDelayed":    itoa(delayed),
		"VisibilityTimeout":                     itoa64(cfg.VisibilityTimeoutMs / 1000),
		"MaximumMessageSize":                    itoa(cfg.MaxMessageBytes),
		"MessageRetentionPeriod":                itoa64(cfg.RetentionSecs),
		"DelaySeconds":                          itoa64(cfg.DelayMs / 1000),
		"ReceiveMessageWaitTimeSeconds":         itoa64(cfg.RecvWaitTimeMs / 1000),
	}
	if cfg.HasMaxRetries {
		all["RedrivePolicy"] = fmt.Sprintf(
			`{"maxReceiveCount":%d,"deadLetterTargetArn":"arn:aws:sqs:local:000000000000:%s"}`,
			cfg.MaxRetries, cfg.DeadLetterQueue)
	}

	return filterAttributes(all, requested), nil
}
