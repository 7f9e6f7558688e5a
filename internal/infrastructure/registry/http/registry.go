package httpregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
	"go.uber.org/ratelimit"

	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 15 * time.Second
	tokenTTL              = time.Minute
)

var (
	// ErrMissingBaseURL is returned if the registry endpoint is not defined.
	ErrMissingBaseURL = errors.New("missing registry base url")
	// ErrMissingOperator is returned if the account moving assets is not
	// defined.
	ErrMissingOperator = errors.New("missing registry operator account")
	// ErrMissingAuthSecret is returned if the secret used to sign transfer
	// requests is not defined.
	ErrMissingAuthSecret = errors.New("missing registry auth secret")
)

// RemoteError is returned for every non successful response of the remote
// registry.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("registry responded %d: %s", e.StatusCode, e.Message)
}

// Config holds the parameters of a remote registry client.
type Config struct {
	BaseURL        string
	Operator       domain.Account
	AuthSecret     []byte
	RequestTimeout time.Duration
	// RateLimit is the max number of requests per second, 0 means unlimited.
	RateLimit int
}

func (c Config) validate() error {
	if len(c.BaseURL) <= 0 {
		return ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid registry base url: %w", err)
	}
	if len(c.Operator) <= 0 {
		return ErrMissingOperator
	}
	if len(c.AuthSecret) <= 0 {
		return ErrMissingAuthSecret
	}
	return nil
}

var _ ports.BatchTransferer = (*registry)(nil)

type registry struct {
	baseURL    string
	operator   domain.Account
	authSecret []byte
	httpClient *client
	cb         *gobreaker.CircuitBreaker
	limiter    ratelimit.Limiter
}

// NewRegistry returns an AssetRegistry speaking with a remote registry over
// HTTP. Transfers are signed on behalf of the configured operator.
func NewRegistry(cfg Config) (ports.AssetRegistry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &registry{
		baseURL:    baseURL,
		operator:   cfg.Operator,
		authSecret: cfg.AuthSecret,
		httpClient: newHTTPClient(timeout),
		cb: circuitbreaker.NewCircuitBreaker(
			baseURL, func(name string, from, to gobreaker.State) {
				log.Warnf("registry %s: circuit breaker %s -> %s", name, from, to)
			},
		),
		limiter: limiter,
	}, nil
}

func (r *registry) OwnerOf(
	ctx context.Context, asset domain.AssetID,
) (domain.Account, error) {
	endpoint := fmt.Sprintf("%s/assets/%d/owner", r.baseURL, asset)

	resp := ownerResponse{}
	if err := r.call(func() (int, []byte, error) {
		return r.httpClient.get(ctx, endpoint, nil)
	}, &resp); err != nil {
		return "", err
	}
	return resp.Owner, nil
}

func (r *registry) IsApprovedForTransfer(
	ctx context.Context, asset domain.AssetID, operator domain.Account,
) (bool, error) {
	endpoint := fmt.Sprintf(
		"%s/assets/%d/approval?operator=%s",
		r.baseURL, asset, url.QueryEscape(string(operator)),
	)

	resp := approvalResponse{}
	if err := r.call(func() (int, []byte, error) {
		return r.httpClient.get(ctx, endpoint, nil)
	}, &resp); err != nil {
		return false, err
	}
	return resp.Approved, nil
}

func (r *registry) Transfer(
	ctx context.Context, from, to domain.Account, asset domain.AssetID,
) error {
	token, err := jwtauth.NewToken(r.authSecret, string(r.operator), tokenTTL)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
	body := transferRequest{From: from, To: to, Asset: asset}

	return r.call(func() (int, []byte, error) {
		return r.httpClient.post(ctx, r.baseURL+"/transfers", body, headers)
	}, nil)
}

// TransferBatch applies all the transfers in a single request. The remote
// registry commits either all or none of them.
func (r *registry) TransferBatch(
	ctx context.Context, transfers []ports.AssetTransfer,
) error {
	token, err := jwtauth.NewToken(r.authSecret, string(r.operator), tokenTTL)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
	body := batchTransferRequest{
		Transfers: make([]transferRequest, 0, len(transfers)),
	}
	for _, t := range transfers {
		body.Transfers = append(body.Transfers, transferRequest{
			From: t.From, To: t.To, Asset: t.Asset,
		})
	}

	return r.call(func() (int, []byte, error) {
		return r.httpClient.post(ctx, r.baseURL+"/transfers/batch", body, headers)
	}, nil)
}

// call executes the request through the circuit breaker and decodes the
// response into out, if defined. Rejections of the registry do not count as
// breaker failures.
func (r *registry) call(
	request func() (int, []byte, error), out interface{},
) error {
	var remoteErr *RemoteError

	_, err := r.cb.Execute(func() (interface{}, error) {
		r.limiter.Take()

		status, body, err := request()
		if err != nil {
			return nil, err
		}
		if status >= http.StatusInternalServerError {
			return nil, parseRemoteError(status, body)
		}
		if status != http.StatusOK {
			remoteErr = parseRemoteError(status, body)
			return nil, nil
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, fmt.Errorf("invalid registry response: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if remoteErr != nil {
		return remoteErr
	}
	return nil
}

func parseRemoteError(status int, body []byte) *RemoteError {
	resp := errorResponse{}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Error) <= 0 {
		resp.Error = strings.TrimSpace(string(body))
	}
	return &RemoteError{StatusCode: status, Message: resp.Error}
}
