package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests is the number of requests after which the
	// failing ratio is taken into account.
	MaxNumOfFailingRequests = 10
	// FailingRatio is the ratio of failing requests tripping the breaker.
	FailingRatio = 0.6
	// OpenTimeout is the period of the open state, after which the breaker
	// becomes half-open.
	OpenTimeout = 30 * time.Second
)

// NewCircuitBreaker is a factory function returning a *gobreaker.CircuitBreaker
// with a default state-changing function that activates if the overall number
// of failing requests have reached a tweakable MaxNumOfFailingRequests cap and
// the failing ratio has met the FailingRatio.
// The optional onStateChange is notified of every state transition.
func NewCircuitBreaker(
	name string, onStateChange func(name string, from, to gobreaker.State),
) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: onStateChange,
	})
}
