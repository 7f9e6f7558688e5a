package ports

import "errors"

const AnyTopic = "*"

var (
	// ErrSubscriptionNotFound is returned when removing an unknown webhook.
	ErrSubscriptionNotFound = errors.New("webhook not found")
	// ErrInvalidEndpoint is returned if the webhook endpoint is not a valid
	// http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint, must be a valid http(s) url")
)

type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// PubSub defines the methods of the service notifying trade events to
// webhooks and streaming clients.
type PubSub interface {
	// Subscribe adds a new webhook subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes the webhook subscription with the given id.
	Unsubscribe(id string) error
	// ListSubscriptionsForTopic returns the info of all webhooks subscribed
	// for a certain topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Stream registers a streaming client for the given topic. Messages are
	// delivered on the returned channel until the cancel func is called.
	Stream(topic string) (<-chan []byte, func())
	// Publish publishes a message for a certain topic. All clients subscribed
	// for such topic will receive the message.
	Publish(topic string, message []byte) error
	// Close stops the delivery of messages.
	Close()
}
