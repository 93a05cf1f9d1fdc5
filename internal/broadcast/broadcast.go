// Package broadcast is the topic-based pub/sub channel between the table
// session and its subscribers. Delivery is at-least-once and unordered across
// subscribers; consumers must tolerate duplicates and gaps.
package broadcast

import (
	"context"
	"errors"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// ErrClosed is returned after the bus has been closed
var ErrClosed = errors.New("broadcast: bus closed")

// Handler receives events for a subscription
type Handler func(protocol.Event)

// Publisher sends events to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, ev protocol.Event) error
}

// Subscriber registers handlers on a topic
type Subscriber interface {
	Subscribe(topic string, fn Handler) (Subscription, error)
}

// Subscription is an active registration
type Subscription interface {
	Unsubscribe() error
}

// Bus is both sides of the channel
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// TableTopic is the subject carrying a table's events
func TableTopic(tableID string) string {
	return "table." + tableID
}

// PresenceTopic is the subject carrying presence beats for a table
func PresenceTopic(tableID string) string {
	return "table." + tableID + ".presence"
}
