package application

import (
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// Webhook is the info of a webhook subscription. The secret is never
// returned.
type Webhook struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"is_secured"`
}

// EventService manages the subscriptions to trade events.
type EventService interface {
	AddWebhook(topic, endpoint, secret string) (string, error)
	RemoveWebhook(id string) error
	ListWebhooks(topic string) ([]Webhook, error)
	// StreamEvents returns a channel of serialized EventMessage for the given
	// topic, and the func to close the stream.
	StreamEvents(topic string) (<-chan []byte, func(), error)
}

type eventService struct {
	pubsub ports.PubSub
}

// NewEventService returns an EventService on top of the given pubsub.
func NewEventService(pubsub ports.PubSub) EventService {
	return &eventService{pubsub}
}

func (s *eventService) AddWebhook(topic, endpoint, secret string) (string, error) {
	if s.pubsub == nil {
		return "", ErrPubSubNotInitialized
	}
	if err := validateTopic(topic); err != nil {
		return "", err
	}
	return s.pubsub.Subscribe(topic, endpoint, secret)
}

func (s *eventService) RemoveWebhook(id string) error {
	if s.pubsub == nil {
		return ErrPubSubNotInitialized
	}
	return s.pubsub.Unsubscribe(id)
}

func (s *eventService) ListWebhooks(topic string) ([]Webhook, error) {
	if s.pubsub == nil {
		return nil, ErrPubSubNotInitialized
	}
	if len(topic) <= 0 {
		topic = ports.AnyTopic
	}
	if err := validateTopic(topic); err != nil {
		return nil, err
	}

	subs := s.pubsub.ListSubscriptionsForTopic(topic)
	hooks := make([]Webhook, 0, len(subs))
	for _, sub := range subs {
		hooks = append(hooks, Webhook{
			ID:        sub.Id(),
			Topic:     sub.Topic(),
			Endpoint:  sub.NotifyAt(),
			IsSecured: sub.IsSecured(),
		})
	}
	return hooks, nil
}

func (s *eventService) StreamEvents(topic string) (<-chan []byte, func(), error) {
	if s.pubsub == nil {
		return nil, nil, ErrPubSubNotInitialized
	}
	if len(topic) <= 0 {
		topic = ports.AnyTopic
	}
	if err := validateTopic(topic); err != nil {
		return nil, nil, err
	}

	stream, cancel := s.pubsub.Stream(topic)
	return stream, cancel, nil
}

func validateTopic(topic string) error {
	if topic == ports.AnyTopic {
		return nil
	}
	for _, t := range domain.Topics() {
		if t == topic {
			return nil
		}
	}
	return ErrInvalidTopic
}
