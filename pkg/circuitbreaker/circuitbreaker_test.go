package circuitbreaker_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
)

func TestCircuitBreaker(t *testing.T) {
	var transitions []gobreaker.State
	cb := circuitbreaker.NewCircuitBreaker(
		"test", func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	)
	require.Equal(t, "test", cb.Name())

	failure := errors.New("failure")
	for i := 0; i <= circuitbreaker.MaxNumOfFailingRequests; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, failure })
		require.ErrorIs(t, err, failure)
	}

	require.Equal(t, gobreaker.StateOpen, cb.State())
	require.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}
