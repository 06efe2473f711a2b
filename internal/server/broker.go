package server

import (
	"encoding/json"
	"sync"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

// message is one encoded lifecycle event.
type message struct {
	Type string
	Data []byte
}

// Broker is an in-process pub/sub for lifecycle events, keyed by mode.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan message]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan message]struct{}),
	}
}

// Subscribe returns a channel that receives events for the given mode.
func (b *Broker) Subscribe(mode string) chan message {
	ch := make(chan message, 16)
	b.mu.Lock()
	if b.subs[mode] == nil {
		b.subs[mode] = make(map[chan message]struct{})
	}
	b.subs[mode][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the mode's subscribers.
func (b *Broker) Unsubscribe(mode string, ch chan message) {
	b.mu.Lock()
	delete(b.subs[mode], ch)
	if len(b.subs[mode]) == 0 {
		delete(b.subs, mode)
	}
	b.mu.Unlock()
}

// Notify fans e out to the subscribers of e.Mode.
func (b *Broker) Notify(e game.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	msg := message{Type: string(e.Type), Data: data}

	b.mu.RLock()
	for ch := range b.subs[e.Mode] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
