package bus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	handler Handler
}

// InMemoryBroker is a single-process Broker backed by Go channels, suitable
// for development and single-node deployments.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // topic -> subscriptions
	closed bool
	msgCh  chan topicMessage
	done   chan struct{}
}

type topicMessage struct {
	topic string
	msg   Message
}

// NewInMemoryBroker creates and starts an InMemoryBroker. The broker runs a
// background dispatch goroutine; call Close() to stop it.
func NewInMemoryBroker() *InMemoryBroker {
	b := &InMemoryBroker{
		subs:  make(map[string][]subscription),
		msgCh: make(chan topicMessage, 1024),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish enqueues a message for asynchronous delivery to all subscribers of
// the topic.
func (b *InMemoryBroker) Publish(topic string, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	b.msgCh <- topicMessage{topic: topic, msg: msg}
	return nil
}

// Subscribe registers a handler for the topic and returns a subscription id.
func (b *InMemoryBroker) Subscribe(topic string, handler Handler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("broker is closed")
	}

	id := uuid.New().String()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	return id, nil
}

// Close stops the dispatch goroutine and prevents further Publish/Subscribe
// calls.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	close(b.msgCh)
	<-b.done
	return nil
}

// dispatch fans published messages out to the matching subscribers.
func (b *InMemoryBroker) dispatch() {
	defer close(b.done)

	for tm := range b.msgCh {
		b.mu.RLock()
		subs := b.subs[tm.topic]
		// Copy so the lock is released before handlers run.
		handlers := make([]Handler, len(subs))
		for i, s := range subs {
			handlers[i] = s.handler
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			h(tm.msg)
		}
	}
}
