package events

import "testing"

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	var got []Event
	bus.Subscribe(TopicFeedRefreshed, func(e Event) { got = append(got, e) })

	bus.Publish(Event{Topic: TopicFeedRefreshed, GroupID: 5})
	bus.Publish(Event{Topic: TopicPostUpdated, PostID: 3})

	if len(got) != 1 {
		t.Fatalf("handler ran %d times, want 1", len(got))
	}
	if got[0].GroupID != 5 {
		t.Errorf("event = %+v", got[0])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := New()
	var count int
	unsubscribe := bus.Subscribe(TopicPostUpdated, func(Event) { count++ })

	bus.Publish(Event{Topic: TopicPostUpdated})
	unsubscribe()
	bus.Publish(Event{Topic: TopicPostUpdated})

	if count != 1 {
		t.Errorf("handler ran %d times after unsubscribe, want 1", count)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	var a, b int
	bus.Subscribe(TopicCommentsReloaded, func(Event) { a++ })
	bus.Subscribe(TopicCommentsReloaded, func(Event) { b++ })

	bus.Publish(Event{Topic: TopicCommentsReloaded})

	if a != 1 || b != 1 {
		t.Errorf("deliveries = %d, %d", a, b)
	}
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	t.Parallel()

	bus := New()
	unsubscribe := bus.Subscribe(TopicFeedRefreshed, func(Event) {})
	unsubscribe()
	unsubscribe()

	bus.Publish(Event{Topic: TopicFeedRefreshed})
}
