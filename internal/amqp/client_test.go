package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"finanzas/internal/core"
)

type fakeChannel struct {
	mu         sync.Mutex
	publishErr error
	published  [][]byte
	deliveries chan amqp091.Delivery
	closed     bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg.Body)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func testClient(ch *fakeChannel, dials *int) *Client {
	return newClient("amqp://test", "finanzas", "transactions", nil,
		func(string, string, string) (channel, func() error, error) {
			if dials != nil {
				*dials++
			}
			return ch, func() error { return nil }, nil
		})
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID: "tx-1",
		TransactionDraft: core.TransactionDraft{
			Amount:      core.MustParseMoney("30000.50"),
			Kind:        core.Expense,
			AccountID:   "acc-1",
			CategoryID:  "alimentacion",
			Description: "mercado",
			Date:        core.NewDate(2024, 6, 1),
			UserID:      "user-1",
		},
		CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestPublishTransactionRecorded(t *testing.T) {
	ch := &fakeChannel{}
	c := testClient(ch, nil)

	if err := c.PublishTransactionRecorded(context.Background(), sampleTransaction()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}

	msg, err := TransactionRecordedMessageFromJSON(ch.published[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Amount != "30000.50" || msg.Kind != "expense" || msg.Date != "2024-06-01" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestPublishRespectsCancelledContext(t *testing.T) {
	c := testClient(&fakeChannel{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.PublishTransactionRecorded(ctx, sampleTransaction()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPublishCircuitBreakerOpens(t *testing.T) {
	dials := 0
	ch := &fakeChannel{publishErr: errors.New("connection closed")}
	c := testClient(ch, &dials)
	ctx := context.Background()

	for i := 0; i < maxFailures; i++ {
		if err := c.PublishTransactionRecorded(ctx, sampleTransaction()); err == nil {
			t.Fatal("expected publish failure")
		}
	}
	if c.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.BreakerState())
	}
	if dials != maxFailures {
		t.Errorf("expected a redial after each connection error, got %d dials", dials)
	}

	err := c.PublishTransactionRecorded(ctx, sampleTransaction())
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Errorf("expected open circuit error, got %v", err)
	}
	if dials != maxFailures {
		t.Error("open breaker must not touch the broker")
	}
}

func TestConsumeAcksAndRequeues(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 3)}
	c := testClient(ch, nil)
	acks := &ackRecorder{}

	good, _ := NewTransactionRecordedMessage(sampleTransaction()).ToJSON()
	failing := strings.Replace(string(good), `"tx-1"`, `"tx-fail"`, 1)
	ch.deliveries <- amqp091.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: good}
	ch.deliveries <- amqp091.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("{not json")}
	ch.deliveries <- amqp091.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte(failing)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 3)
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeTransactionRecorded(ctx, func(_ context.Context, m *TransactionRecordedMessage) error {
			handled <- m.ID
			if m.ID == "tx-fail" {
				return errors.New("sheet unavailable")
			}
			return nil
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("handler not called")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		acks.mu.Lock()
		n := len(acks.acked) + len(acks.nacked)
		acks.mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("consumer returned %v", err)
	}

	acks.mu.Lock()
	defer acks.mu.Unlock()
	if len(acks.acked) != 1 || acks.acked[0] != 1 {
		t.Errorf("acked = %v, want [1]", acks.acked)
	}
	if len(acks.nacked) != 2 || acks.requeue[0] || !acks.requeue[1] {
		t.Errorf("nacked = %v requeue = %v, want malformed dropped and failure requeued", acks.nacked, acks.requeue)
	}
}

func TestConsumeBackoffRestartsAfterSession(t *testing.T) {
	closed := make(chan amqp091.Delivery)
	close(closed)
	ch := &fakeChannel{deliveries: closed}

	// dial results in order: fail, fail, session that ends, fail
	script := []bool{false, false, true, false}
	dials := 0
	c := newClient("amqp://test", "finanzas", "transactions", nil,
		func(string, string, string) (channel, func() error, error) {
			ok := dials < len(script) && script[dials]
			dials++
			if !ok {
				return nil, nil, errors.New("connection refused")
			}
			return ch, func() error { return nil }, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var attempts []int
	c.backoff = func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		if len(attempts) == len(script) {
			cancel()
		}
		return 0
	}

	err := c.ConsumeTransactionRecorded(ctx, func(context.Context, *TransactionRecordedMessage) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("consumer returned %v", err)
	}
	want := []int{0, 1, 0, 1}
	if fmt.Sprint(attempts) != fmt.Sprint(want) {
		t.Errorf("backoff attempts = %v, want %v", attempts, want)
	}
}

func TestMessageTransactionRoundTrip(t *testing.T) {
	in := sampleTransaction()
	body, err := NewTransactionRecordedMessage(in).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := TransactionRecordedMessageFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	out, err := msg.Transaction()
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || !out.Amount.Equal(in.Amount) || out.Kind != in.Kind || out.Date.String() != "2024-06-01" {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestMessageValidation(t *testing.T) {
	if _, err := TransactionRecordedMessageFromJSON([]byte(`{"amount":"1"}`)); err == nil {
		t.Error("expected error for message without id")
	}
	if _, err := TransactionRecordedMessageFromJSON([]byte(`{"id":"x","kind":"expense","amount":"-5","date":"2024-01-01"}`)); err == nil {
		t.Error("expected error for unparseable amount")
	}

	msg := &TransactionRecordedMessage{ID: "x", Kind: "transfer", Amount: "1", Date: "2024-01-01"}
	if _, err := msg.Transaction(); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("expected invalid kind, got %v", err)
	}
}
