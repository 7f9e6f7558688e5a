package application_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// **** PubSub ****

type publishedEvent struct {
	topic   string
	payload map[string]interface{}
}

type recordingPubSub struct {
	lock   sync.Mutex
	events []publishedEvent
}

func (p *recordingPubSub) Subscribe(_, _, _ string) (string, error) {
	return "", nil
}

func (p *recordingPubSub) Unsubscribe(_ string) error {
	return nil
}

func (p *recordingPubSub) ListSubscriptionsForTopic(_ string) []ports.Subscription {
	return nil
}

func (p *recordingPubSub) Stream(_ string) (<-chan []byte, func()) {
	return nil, func() {}
}

func (p *recordingPubSub) Publish(topic string, message []byte) error {
	msg := struct {
		Topic   string                 `json:"topic"`
		Payload map[string]interface{} `json:"payload"`
	}{}
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.events = append(p.events, publishedEvent{topic, msg.Payload})
	return nil
}

func (p *recordingPubSub) Close() {}

func (p *recordingPubSub) topics() []string {
	p.lock.Lock()
	defer p.lock.Unlock()

	topics := make([]string, 0, len(p.events))
	for _, e := range p.events {
		topics = append(topics, e.topic)
	}
	return topics
}

func (p *recordingPubSub) last() publishedEvent {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.events[len(p.events)-1]
}

func (p *recordingPubSub) reset() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.events = nil
}

// **** AssetRegistry ****

// mockRegistry is a registry without transactions, like a remote one.
type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) OwnerOf(
	ctx context.Context, asset domain.AssetID,
) (domain.Account, error) {
	args := m.Called(asset)

	var res domain.Account
	if a := args.Get(0); a != nil {
		res = a.(domain.Account)
	}
	return res, args.Error(1)
}

func (m *mockRegistry) IsApprovedForTransfer(
	ctx context.Context, asset domain.AssetID, operator domain.Account,
) (bool, error) {
	args := m.Called(asset, operator)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) Transfer(
	ctx context.Context, from, to domain.Account, asset domain.AssetID,
) error {
	args := m.Called(from, to, asset)
	return args.Error(0)
}
