package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/notiproof/backend/internal/event"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestInMemoryBrokerPublishSubscribe(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	var mu sync.Mutex
	var got []Message
	if _, err := b.Subscribe(TopicEventCreated, func(msg Message) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ev := event.CanonicalEvent{EventID: "order_1", Provider: "shopify"}
	if err := b.Publish(TopicEventCreated, NewEventCreated("w1", ev)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "message never delivered")

	mu.Lock()
	defer mu.Unlock()
	if got[0].Provider != "shopify" || got[0].WebsiteID != "w1" || got[0].Event.EventID != "order_1" {
		t.Errorf("message %+v", got[0])
	}
	if got[0].ID == "" || got[0].Topic != TopicEventCreated {
		t.Errorf("envelope %+v", got[0])
	}
}

func TestInMemoryBrokerTopicIsolation(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	var mu sync.Mutex
	created, other := 0, 0
	b.Subscribe(TopicEventCreated, func(Message) { mu.Lock(); created++; mu.Unlock() })
	b.Subscribe("events.other", func(Message) { mu.Lock(); other++; mu.Unlock() })

	b.Publish(TopicEventCreated, Message{Topic: TopicEventCreated})
	b.Publish(TopicEventCreated, Message{Topic: TopicEventCreated})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return created == 2
	}, "events.created messages never delivered")

	mu.Lock()
	defer mu.Unlock()
	if other != 0 {
		t.Errorf("other topic received %d messages", other)
	}
}

func TestInMemoryBrokerMultipleSubscribers(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	var mu sync.Mutex
	counts := make(map[string]int)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		b.Subscribe(TopicEventCreated, func(Message) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
	}

	b.Publish(TopicEventCreated, Message{})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts["a"] == 1 && counts["b"] == 1 && counts["c"] == 1
	}, "fanout incomplete")
}

func TestInMemoryBrokerClose(t *testing.T) {
	b := NewInMemoryBroker()
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := b.Publish(TopicEventCreated, Message{}); err == nil {
		t.Error("Publish after Close succeeded")
	}
	if _, err := b.Subscribe(TopicEventCreated, func(Message) {}); err == nil {
		t.Error("Subscribe after Close succeeded")
	}
}
