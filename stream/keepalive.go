package stream

import (
	"context"
	"time"

	"github.com/hupe1980/agentgate/event"
)

// DefaultKeepaliveInterval is the idle gap after which a ping is emitted.
const DefaultKeepaliveInterval = 15 * time.Second

// WithKeepalive wraps a frame sequence for long-lived SSE delivery,
// interleaving a ping frame whenever no real frame has been emitted for
// interval. Pings are pure filler: real frames pass through immediately and
// are never reordered or delayed. The returned channel closes when in closes
// or ctx is cancelled.
func WithKeepalive(ctx context.Context, in <-chan Frame, interval time.Duration) <-chan Frame {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	out := make(chan Frame)

	go func() {
		defer close(out)
		timer := time.NewTimer(interval)
		defer timer.Stop()

		reset := func() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(interval)
		}

		for {
			select {
			case f, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
				reset()
			case <-timer.C:
				ping := Frame{
					Event: event.TypePing,
					Data:  map[string]any{"timestamp": float64(time.Now().UnixNano()) / 1e9},
				}
				select {
				case out <- ping:
				case <-ctx.Done():
					return
				}
				timer.Reset(interval)
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
