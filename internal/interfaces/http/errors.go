package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
)

var errInvalidRequest = errors.New("invalid request")

func invalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

var (
	conflictErrors = []error{
		domain.ErrTradeAlreadyExists,
		domain.ErrCellOccupied,
		domain.ErrRedundantReadinessState,
		domain.ErrTradeNotActive,
		application.ErrReentrantCall,
	}
	forbiddenErrors = []error{
		domain.ErrNotParticipant,
		domain.ErrUnauthorizedSigner,
		domain.ErrNotAssetOwner,
		domain.ErrRegistryNotApproved,
	}
	badRequestErrors = []error{
		errInvalidRequest,
		domain.ErrInvalidParticipants,
		domain.ErrInvalidCell,
		domain.ErrCellOutOfRange,
		domain.ErrUnknownCell,
		application.ErrUnknownRegistry,
		application.ErrInvalidTopic,
		ports.ErrInvalidEndpoint,
	}
	unauthorizedErrors = []error{
		jwtauth.ErrMissingToken,
		jwtauth.ErrInvalidToken,
	}
)

// httpStatus maps errors to status codes. Registry failures are checked
// first since they may wrap any error.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrRegistryFailure),
		errors.Is(err, application.ErrAssetNotInCustody):
		return http.StatusBadGateway
	case isAny(err, unauthorizedErrors):
		return http.StatusUnauthorized
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, forbiddenErrors):
		return http.StatusForbidden
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrPubSubNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(err))
	//nolint
	json.NewEncoder(w).Encode(errorResponse{err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	json.NewEncoder(w).Encode(v)
}
