package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	interfaces "github.com/tdex-network/tdex-escrow/internal/interfaces"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ServiceOpts holds the dependencies of the HTTP interface.
type ServiceOpts struct {
	Address    string
	AuthSecret []byte

	EscrowSvc application.EscrowService
	EventSvc  application.EventService
	// RegistryHandlers are the in-memory registries hosted by the daemon,
	// mounted at /registries/{id}/.
	RegistryHandlers map[domain.RegistryID]http.Handler
}

func (o ServiceOpts) validate() error {
	if len(o.Address) <= 0 {
		return fmt.Errorf("missing listening address")
	}
	if len(o.AuthSecret) <= 0 {
		return fmt.Errorf("missing auth secret")
	}
	if o.EscrowSvc == nil {
		return fmt.Errorf("escrow app service must not be null")
	}
	if o.EventSvc == nil {
		return fmt.Errorf("event app service must not be null")
	}
	return nil
}

type service struct {
	opts   ServiceOpts
	server *http.Server
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	return &service{opts: opts}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           newRouter(s.opts),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	log.Infof("http interface listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http interface")
	}
	log.Debug("disabled http interface")
}

// NewHandler returns the router of the HTTP interface, without starting any
// server.
func NewHandler(opts ServiceOpts) (http.Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	return newRouter(opts), nil
}
