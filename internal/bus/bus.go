package bus

import "sync"

// Bus fans out a payload-less "persisted state changed, re-read it"
// signal to any number of subscribers. Sends never block: a subscriber
// that hasn't drained its channel coalesces repeat notifications.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

func New() *Bus {
	return &Bus{
		subs: map[int]chan struct{}{},
	}
}

// Subscribe returns a notification channel and an unsubscribe func.
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}

	return ch, unsubscribe
}

func (b *Bus) Broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
