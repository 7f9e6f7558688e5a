package application

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type eventPublisher struct {
	pubsub ports.PubSub
}

func newEventPublisher(pubsub ports.PubSub) *eventPublisher {
	return &eventPublisher{pubsub}
}

// publish notifies the event to all subscribers of its topic. Publishing is
// best effort, failures are only logged.
func (p *eventPublisher) publish(event domain.Event) {
	if p.pubsub == nil {
		return
	}

	topic := event.Topic()
	message, err := json.Marshal(EventMessage{
		ID:        uuid.New().String(),
		Topic:     topic,
		Timestamp: time.Now().Unix(),
		Payload:   event,
	})
	if err != nil {
		log.WithError(err).Warnf("failed to serialize event for topic %s", topic)
		return
	}

	if err := p.pubsub.Publish(topic, message); err != nil {
		log.WithError(err).Warnf("failed to publish event for topic %s", topic)
	}
}
