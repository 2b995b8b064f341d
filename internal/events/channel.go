package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges a typed subscription onto a channel for use in
// select loops (SSE connections). Events are dropped rather than blocking
// the dispatcher when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
