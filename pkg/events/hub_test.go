package events

import (
	"testing"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewEventHub()
	a := h.Subscribe()
	b := h.Subscribe()

	idx := 2
	h.Publish(SeriesChanged, SeriesChangedEvent{ID: "x", Op: OpShift, Index: &idx, Shares: []float64{0.5, 0.5}})

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		if ev.Name != SeriesChanged {
			t.Fatalf("got event %q, want %q", ev.Name, SeriesChanged)
		}
		payload, err := DecodeAs[SeriesChangedEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs() error = %v", err)
		}
		if payload.Op != OpShift || *payload.Index != 2 || len(payload.Shares) != 2 {
			t.Errorf("unexpected payload %+v", payload)
		}
	}

	h.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Errorf("channel should be closed after Unsubscribe")
	}
	if got := h.Subscribers(); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}
	// Unsubscribing twice must not panic.
	h.Unsubscribe(a)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()

	for i := 0; i < 100; i++ {
		h.Publish(SeriesDeleted, SeriesDeletedEvent{ID: "x"})
	}

	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered events = %d, want %d", got, cap(ch))
	}
}

func TestNilHubPublish(t *testing.T) {
	var h *EventHub
	h.Publish(SeriesDeleted, SeriesDeletedEvent{})
}

func TestDecodeAsEmpty(t *testing.T) {
	v, err := DecodeAs[SeriesDeletedEvent](Event{Name: SeriesDeleted})
	if err != nil || v.ID != "" {
		t.Errorf("DecodeAs() = %+v, %v", v, err)
	}
}

func TestHubClose(t *testing.T) {
	h := NewEventHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Close()

	for _, ch := range []chan Event{a, b} {
		if _, ok := <-ch; ok {
			t.Errorf("channel should be closed after Close")
		}
	}
	if got := h.Subscribers(); got != 0 {
		t.Errorf("Subscribers() = %d, want 0", got)
	}
	// Late unsubscribes are harmless.
	h.Unsubscribe(a)
}
