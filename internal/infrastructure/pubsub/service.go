package pubsub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultStreamBuffer   = 32
	webhookTokenTTL       = time.Minute
	webhookTokenSubject   = "escrowd"
)

// Config holds the parameters of the pubsub service. Zero values fall back to
// defaults.
type Config struct {
	RequestTimeout time.Duration
	// RateLimit is the max number of webhook requests per second, 0 means
	// unlimited.
	RateLimit int
	// StreamBuffer is the number of messages buffered for every streaming
	// client before new ones are dropped.
	StreamBuffer int
}

type service struct {
	store        *store
	httpClient   *client
	limiter      ratelimit.Limiter
	streamBuffer int

	lock     *sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	closed   bool
	wg       *sync.WaitGroup
}

// NewService returns a pubsub delivering every published message to the
// webhooks and the streaming clients subscribed for its topic.
func NewService(cfg Config) ports.PubSub {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	streamBuffer := cfg.StreamBuffer
	if streamBuffer <= 0 {
		streamBuffer = defaultStreamBuffer
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	return &service{
		store:        newStore(),
		httpClient:   newHTTPClient(requestTimeout),
		limiter:      limiter,
		streamBuffer: streamBuffer,
		lock:         &sync.RWMutex{},
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
		wg:           &sync.WaitGroup{},
	}
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	ws.store.addSubscription(*sub)
	return sub.ID, nil
}

func (ws *service) Unsubscribe(id string) error {
	return ws.store.removeSubscription(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.store.subscriptionsForTopic(topic).toPortable()
}

func (ws *service) Stream(topic string) (<-chan []byte, func()) {
	id := uuid.New().String()
	ch := make(chan []byte, ws.streamBuffer)

	ws.lock.RLock()
	defer ws.lock.RUnlock()
	if ws.closed {
		close(ch)
		return ch, func() {}
	}

	ws.store.addStream(topic, id, ch)
	once := &sync.Once{}
	return ch, func() {
		once.Do(func() { ws.store.removeStream(topic, id) })
	}
}

// Publish notifies the message to streaming clients right away, while
// webhooks are invoked in background. Delivery failures are only logged.
func (ws *service) Publish(topic string, message []byte) error {
	ws.lock.RLock()
	defer ws.lock.RUnlock()
	if ws.closed {
		return ErrServiceClosed
	}

	if dropped := ws.store.broadcast(topic, message); dropped > 0 {
		log.Warnf("%d streaming clients missed message for topic %s", dropped, topic)
	}

	subs := ws.store.subscriptionsForTopic(topic)
	if len(subs) <= 0 {
		return nil
	}

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()

		if err := ws.publishForTopic(subs, message); err != nil {
			log.WithError(err).Warnf("failed to invoke webhooks for topic %s", topic)
		}
	}()
	return nil
}

// Close waits for pending webhook requests and closes all streams.
func (ws *service) Close() {
	ws.lock.Lock()
	if ws.closed {
		ws.lock.Unlock()
		return
	}
	ws.closed = true
	ws.lock.Unlock()

	ws.wg.Wait()
	ws.store.closeStreams()
}

func (ws *service) publishForTopic(subs subscriptions, message []byte) error {
	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) doRequest(sub Subscription, payload []byte) error {
	ws.limiter.Take()

	_, err := ws.breaker(sub.Endpoint).Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			token, err := jwtauth.NewToken(
				[]byte(sub.Secret), webhookTokenSubject, webhookTokenTTL,
			)
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", token)
		}

		status, resp, err := ws.httpClient.post(sub.Endpoint, payload, headers)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("webhook %s responded %d: %s", sub.ID, status, resp)
		}
		return nil, nil
	})
	return err
}

// breaker returns the circuit breaker of the given endpoint, so that a
// failing webhook does not prevent the others from being invoked.
func (ws *service) breaker(endpoint string) *gobreaker.CircuitBreaker {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if cb, ok := ws.breakers[endpoint]; ok {
		return cb
	}
	cb := circuitbreaker.NewCircuitBreaker(
		endpoint, func(name string, from, to gobreaker.State) {
			log.Warnf("webhook %s: circuit breaker went from %s to %s", name, from, to)
		},
	)
	ws.breakers[endpoint] = cb
	return cb
}
