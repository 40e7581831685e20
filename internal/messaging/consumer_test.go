package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

type fakeAck struct {
	acks    int
	nacks   int
	requeue []bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error { f.acks++; return nil }
func (f *fakeAck) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacks++
	f.requeue = append(f.requeue, requeue)
	return nil
}
func (f *fakeAck) Reject(tag uint64, requeue bool) error { return f.Nack(tag, false, requeue) }

type fakeEvents struct {
	err  error
	last services.IngestEventInput
}

func (f *fakeEvents) Ingest(_ context.Context, in services.IngestEventInput) (*services.IngestEventResult, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &services.IngestEventResult{EventID: uuid.New()}, nil
}

func TestConsumerSettlesDeliveries(t *testing.T) {
	userID := uuid.New()
	good := []byte(`{"userId":"` + userID.String() + `","type":"ppe_confirmed","metadata":{"zone":"Shaft 2"},"occurredAt":"2026-04-01T06:00:00Z"}`)

	cases := []struct {
		name        string
		body        []byte
		ingestErr   error
		want        Outcome
		wantAcks    int
		wantRequeue []bool
	}{
		{name: "ok", body: good, want: OutcomeAcked, wantAcks: 1},
		{name: "malformed json", body: []byte(`{not json`), want: OutcomeMalformed, wantRequeue: []bool{false}},
		{name: "bad user id", body: []byte(`{"userId":"nope","type":"app_login"}`), want: OutcomeMalformed, wantRequeue: []bool{false}},
		{name: "validation", body: good, ingestErr: domainagg.Validation("events.ingest", "Unsupported engagement event type"), want: OutcomeRejected, wantRequeue: []bool{false}},
		{name: "unknown user", body: good, ingestErr: domainagg.NotFound("events.ingest", "user not found"), want: OutcomeRejected, wantRequeue: []bool{false}},
		{name: "store failure", body: good, ingestErr: domainagg.Wrap(domainagg.CodeRetryable, "compliance.fold_event", errors.New("deadlock")), want: OutcomeRequeued, wantRequeue: []bool{true}},
		{name: "plain error", body: good, ingestErr: errors.New("boom"), want: OutcomeRequeued, wantRequeue: []bool{true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := &fakeEvents{err: tc.ingestErr}
			ack := &fakeAck{}
			c := NewConsumer(nil, events)

			got := c.Handle(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: tc.body})
			if got != tc.want {
				t.Fatalf("outcome: want=%s got=%s", tc.want, got)
			}
			if ack.acks != tc.wantAcks {
				t.Fatalf("acks: want=%d got=%d", tc.wantAcks, ack.acks)
			}
			if len(ack.requeue) != len(tc.wantRequeue) {
				t.Fatalf("nacks: want=%v got=%v", tc.wantRequeue, ack.requeue)
			}
			for i := range tc.wantRequeue {
				if ack.requeue[i] != tc.wantRequeue[i] {
					t.Fatalf("requeue[%d]: want=%v got=%v", i, tc.wantRequeue[i], ack.requeue[i])
				}
			}
		})
	}
}

func TestConsumerPassesMessageThrough(t *testing.T) {
	userID := uuid.New()
	events := &fakeEvents{}
	c := NewConsumer(nil, events)
	body := []byte(`{"userId":"` + userID.String() + `","type":"quiz_completed","metadata":{"score":80}}`)

	c.Handle(context.Background(), amqp.Delivery{Acknowledger: &fakeAck{}, Body: body})
	if events.last.UserID != userID || events.last.Type != "quiz_completed" || events.last.Source != services.SourceQueue {
		t.Fatalf("ingest input: %+v", events.last)
	}
	if events.last.Metadata["score"] != float64(80) {
		t.Fatalf("metadata: %+v", events.last.Metadata)
	}
	if events.last.OccurredAt != nil {
		t.Fatalf("occurredAt should be left to the service: %v", events.last.OccurredAt)
	}
}

func TestDrainStopsOnClosedChannel(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	close(msgs)
	if err := NewConsumer(nil, &fakeEvents{}).Drain(context.Background(), msgs); err == nil {
		t.Fatalf("expected error on closed channel")
	}
}

func TestDialRequiresURL(t *testing.T) {
	if _, err := Dial(Config{}); err == nil {
		t.Fatalf("expected error without url")
	}
}
