package pubsub

import (
	"errors"

	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

var (
	// ErrMissingTopic is returned when subscribing without a topic.
	ErrMissingTopic = errors.New("missing subscription topic")
	// ErrInvalidEndpoint is returned if the webhook endpoint is not a valid
	// http(s) URL.
	ErrInvalidEndpoint = ports.ErrInvalidEndpoint
	// ErrSubscriptionNotFound is returned when removing an unknown webhook.
	ErrSubscriptionNotFound = ports.ErrSubscriptionNotFound
	// ErrServiceClosed is returned when publishing after Close.
	ErrServiceClosed = errors.New("pubsub service is closed")
)
