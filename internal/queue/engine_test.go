package queue

import (
	"context"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine("http://localhost:8080", testLog())
}

func TestEngineCreateQueueBuildsURL(t *testing.T) {
	e := newTestEngine()

	url, err := e.CreateQueue("orders", nil)
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	if url != "http://localhost:8080/orders" {
		t.Fatalf("unexpected queue url: %s", url)
	}
}

func TestEngineCreateQueueParsesRedrivePolicy(t *testing.T) {
	e := newTestEngine()

	if _, err := e.CreateQueue("dlq", nil); err != nil {
		t.Fatalf("create dlq: %v", err)
	}

	attrs := map[string]string{
		"RedrivePolicy": `{"deadLetterTargetArn":"arn:aws:sqs:local:000000000000:dlq","maxReceiveCount":3}`,
	}
	if _, err := e.CreateQueue("main", attrs); err != nil {
		t.Fatalf("create main: %v", err)
	}

	got, err := e.GetQueueAttributes("main", []string{"All"})
	if err != nil {
		t.Fatalf("get attributes: %v", err)
	}
	if got["RedrivePolicy"] == "" {
		t.Fatal("expected RedrivePolicy attribute to be set")
	}
}

func TestEngineGetQueueUrlForMissingQueue(t *testing.T) {
	e := newTestEngine()
	if _, err := e.GetQueueUrl("nope"); err == nil {
		t.Fatal("expected error for nonexistent queue")
	}
}

func TestEngineListQueuesFiltersByPrefix(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CreateQueue("alpha-1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.CreateQueue("beta-1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	urls := e.ListQueues("alpha")
	if len(urls) != 1 || urls[0] != "http://localhost:8080/alpha-1" {
		t.Fatalf("unexpected filtered urls: %v", urls)
	}
}

func TestEngineSendReceiveDeleteRoundTrip(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CreateQueue("orders", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	id, md5sum, err := e.SendMessage("orders", "payload", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id == "" || md5sum == "" {
		t.Fatal("expected id and md5")
	}

	wait := int64(0)
	messages, err := e.ReceiveMessage(context.Background(), "orders", 5, &wait, nil, []string{"All"})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Attributes["SentTimestamp"] == "" {
		t.Fatal("expected SentTimestamp attribute when requesting All")
	}

	if err := e.DeleteMessage("orders", messages[0].ReceiptHandle); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestEngineReceiveMessageRejectsOutOfRangeMaxMessages(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CreateQueue("orders", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.ReceiveMessage(context.Background(), "orders", 11, nil, nil, nil); err == nil {
		t.Fatal("expected error for MaxNumberOfMessages > 10")
	}
	if _, err := e.ReceiveMessage(context.Background(), "orders", 0, nil, nil, nil); err == nil {
		t.Fatal("expected error for MaxNumberOfMessages < 1")
	}
}

func TestEngineDeleteQueueThenOperationsFail(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CreateQueue("orders", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.DeleteQueue("orders"); err != nil {
		t.Fatalf("delete queue: %v", err)
	}

	if _, _, err := e.SendMessage("orders", "x", nil); err == nil {
		t.Fatal("expected error sending to a deleted queue")
	}
}

func TestEngineGetQueueAttributesReflectsCounts(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CreateQueue("orders", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := e.SendMessage("orders", "one", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	attrs, err := e.GetQueueAttributes("orders", []string{"ApproximateNumberOfMessages"})
	if err != nil {
		t.Fatalf("get attributes: %v", err)
	}
	if attrs["ApproximateNumberOfMessages"] != "1" {
		t.Fatalf("expected 1 visible message, got %s", attrs["ApproximateNumberOfMessages"])
	}
}
