// Package messaging abstracts the pub/sub transport that carries lifecycle
// events out of the outbox to downstream consumers.
package messaging

import (
	"context"
)

// Broker publishes and consumes raw event payloads on named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
