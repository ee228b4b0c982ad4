package services

import (
	"context"
	"testing"
	"time"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
)

func TestEventHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewEventHub()
	if hub.ClientCount() != 0 {
		t.Errorf("new hub should have 0 clients, got %d", hub.ClientCount())
	}

	hub.Subscribe("client1")
	hub.Subscribe("client2")
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client1")
	hub.Unsubscribe("nonexistent")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unsubscribe, got %d", hub.ClientCount())
	}
}

func TestEventHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("client1")
	hub.Unsubscribe("client1")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestEventHub_Publish(t *testing.T) {
	hub := NewEventHub()
	ch1 := hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")

	hub.Publish(LearningEvent{Type: EventFeedbackRecorded, FeedbackID: 7})

	for i, ch := range []<-chan LearningEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.FeedbackID != 7 || ev.At.IsZero() {
				t.Errorf("client %d got %+v", i+1, ev)
			}
		case <-time.After(time.Second):
			t.Errorf("client %d did not receive the event", i+1)
		}
	}
}

func TestEventHub_PublishDropsForSlowClient(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe("slow")

	for i := 0; i < 150; i++ {
		hub.Publish(LearningEvent{Type: EventFeedbackRecorded, FeedbackID: uint(i)})
	}
	if len(ch) != 100 {
		t.Errorf("buffered events = %d, expected 100", len(ch))
	}
}

func TestEventHub_NilIsSafe(t *testing.T) {
	var hub *EventHub
	hub.Publish(LearningEvent{Type: EventSafetyChanged})
	if hub.ClientCount() != 0 {
		t.Error("nil hub should report 0 clients")
	}
}

func TestFeedbackService_PublishesEvents(t *testing.T) {
	svc, artifacts, _ := newFeedbackFixture(t, NewSyncQueue())
	hub := NewEventHub()
	svc.SetEventHub(hub)
	events := hub.Subscribe("test")
	ctx := WithRequestID(context.Background(), "req-1")

	artifact, err := artifacts.Create(ctx, &CreateArtifactRequest{
		Prompt:   "a fox",
		Settings: &models.ArtifactSettings{Style: "cartoon"},
	}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Submit(ctx, &SubmitFeedbackRequest{ArtifactID: artifact.ID, OverallRating: 4}, nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
			if ev.RequestID != "req-1" {
				t.Errorf("%s event request id = %q, expected req-1", ev.Type, ev.RequestID)
			}
		case <-time.After(time.Second):
			t.Fatalf("received %v, expected two events", got)
		}
	}
	if got[0] != EventFeedbackRecorded || got[1] != EventLearningApplied {
		t.Errorf("event order = %v", got)
	}
}

func TestSafetyAuditor_PublishesTransitions(t *testing.T) {
	auditor := NewSafetyAuditor(newTestDB(t))
	hub := NewEventHub()
	auditor.SetEventHub(hub)
	events := hub.Subscribe("test")
	ctx := context.Background()

	auditor.RecordSafetyDecision(ctx, learning.Verdict{Disabled: true, Reason: "mean rating 1.00 below 2.00"})
	auditor.RecordSafetyDecision(ctx, learning.Verdict{Disabled: true, Reason: "mean rating 1.00 below 2.00"})
	auditor.RecordSafetyDecision(ctx, learning.Verdict{Disabled: false})

	if len(events) != 2 {
		t.Fatalf("published %d events, expected 2 transitions", len(events))
	}
	first := <-events
	if first.Type != EventSafetyChanged || first.Disabled == nil || !*first.Disabled {
		t.Errorf("first event = %+v", first)
	}
}
