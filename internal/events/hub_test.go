package events

import (
	"testing"
	"time"
)

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	// Must not block or panic with nobody listening.
	hub.PublishSessionUpdate("s1", "running")
}

func TestHub_DeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.PublishScrapingProgress("s1", 42, 5, 200, "Jane Doe")

	select {
	case event := <-ch:
		if event.Type != ScrapingProgress {
			t.Errorf("expected %s, got %s", ScrapingProgress, event.Type)
		}
		if event.Payload["scraped_profiles"] != 42 {
			t.Errorf("unexpected payload: %+v", event.Payload)
		}
		if event.At.IsZero() {
			t.Error("event timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	_, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	// Nobody drains the channel; publishing past the buffer must keep
	// returning immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.PublishSessionUpdate("s1", "running")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe()

	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	unsubscribe()
	unsubscribe() // idempotent

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed after unsubscribe")
	}
}
