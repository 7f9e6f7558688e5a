package pubsub

import (
	"sort"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// store keeps webhook subscriptions and streaming clients indexed by topic.
type store struct {
	lock *sync.RWMutex

	subs        map[string]Subscription
	subsByTopic map[string]map[string]struct{}
	streams     map[string]map[string]chan []byte
}

func newStore() *store {
	return &store{
		lock:        &sync.RWMutex{},
		subs:        make(map[string]Subscription),
		subsByTopic: make(map[string]map[string]struct{}),
		streams:     make(map[string]map[string]chan []byte),
	}
}

func (s *store) addSubscription(sub Subscription) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.subs[sub.ID]; ok {
		return
	}
	s.subs[sub.ID] = sub
	if _, ok := s.subsByTopic[sub.Event]; !ok {
		s.subsByTopic[sub.Event] = make(map[string]struct{})
	}
	s.subsByTopic[sub.Event][sub.ID] = struct{}{}
}

func (s *store) removeSubscription(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ErrSubscriptionNotFound
	}
	delete(s.subs, id)
	delete(s.subsByTopic[sub.Event], id)
	if len(s.subsByTopic[sub.Event]) <= 0 {
		delete(s.subsByTopic, sub.Event)
	}
	return nil
}

// subscriptionsForTopic returns the webhooks of the given topic, plus those
// subscribed for any topic, sorted by id.
func (s *store) subscriptionsForTopic(topic string) subscriptions {
	s.lock.RLock()
	defer s.lock.RUnlock()

	subs := make(subscriptions, 0)
	for id := range s.subsByTopic[topic] {
		subs = append(subs, s.subs[id])
	}
	if topic != ports.AnyTopic {
		for id := range s.subsByTopic[ports.AnyTopic] {
			subs = append(subs, s.subs[id])
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (s *store) addStream(topic, id string, ch chan []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.streams[topic]; !ok {
		s.streams[topic] = make(map[string]chan []byte)
	}
	s.streams[topic][id] = ch
}

// removeStream closes the channel of the stream, if still registered.
func (s *store) removeStream(topic, id string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ch, ok := s.streams[topic][id]
	if !ok {
		return
	}
	close(ch)
	delete(s.streams[topic], id)
	if len(s.streams[topic]) <= 0 {
		delete(s.streams, topic)
	}
}

// broadcast delivers the message to the streams of the given topic, and to
// those of any topic, without blocking. Slow clients miss messages.
func (s *store) broadcast(topic string, message []byte) int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	dropped := 0
	send := func(streams map[string]chan []byte) {
		for _, ch := range streams {
			select {
			case ch <- message:
			default:
				dropped++
			}
		}
	}
	send(s.streams[topic])
	if topic != ports.AnyTopic {
		send(s.streams[ports.AnyTopic])
	}
	return dropped
}

func (s *store) closeStreams() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for topic, streams := range s.streams {
		for _, ch := range streams {
			close(ch)
		}
		delete(s.streams, topic)
	}
}
