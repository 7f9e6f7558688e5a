package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/config"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/registry"
	httpregistry "github.com/tdex-network/tdex-escrow/internal/infrastructure/registry/http"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/registry/inmemory"
	dbbadger "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/badger"
	dbinmemory "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
	dbsqlite "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/sqlite"
	httpinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/http"
	"github.com/tdex-network/tdex-escrow/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	var (
		datadir       = config.GetDatadir()
		dbType        = config.GetString(config.DBTypeKey)
		escrowAccount = domain.Account(config.GetString(config.EscrowAccountKey))
		address       = fmt.Sprintf(":%d", config.GetInt(config.ListeningPortKey))
	)

	repoManager, err := newRepoManager(dbType)
	if err != nil {
		log.WithError(err).Fatal("failed to open db")
	}
	log.Infof("using %s db", dbType)

	registries, registryHandlers, err := newRegistries(escrowAccount)
	if err != nil {
		log.WithError(err).Fatal("failed to init registries")
	}

	pubsubSvc := pubsub.NewService(pubsub.Config{
		RateLimit: config.GetInt(config.WebhookRateLimitKey),
	})

	escrowSvc, err := application.NewEscrowService(
		repoManager, registry.NewManager(registries), pubsubSvc, escrowAccount,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to init escrow service")
	}
	eventSvc := application.NewEventService(pubsubSvc)

	svc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:          address,
		AuthSecret:       config.GetAuthSecret(),
		EscrowSvc:        escrowSvc,
		EventSvc:         eventSvc,
		RegistryHandlers: registryHandlers,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init http interface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if config.GetBool(config.EnableStatsKey) {
		stats.EnableMemoryStatistics(
			ctx, config.GetStatsInterval(),
			filepath.Join(datadir, config.ProfilerLocation),
		)
	}

	log.Info("starting daemon")
	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-sigChan

	log.Info("shutting down daemon")
	svc.Stop()
	cancel()
	pubsubSvc.Close()
	log.Debug("stopped pubsub service")
	repoManager.Close()
	log.Debug("closed db")
	log.Info("exiting")
}

func newRepoManager(dbType string) (ports.RepoManager, error) {
	switch dbType {
	case config.DBInMemory:
		return dbinmemory.NewRepoManager(), nil
	case config.DBSqlite:
		return dbsqlite.NewRepoManager(config.GetDBDatadir())
	default:
		logger := log.New()
		logger.SetLevel(log.WarnLevel)
		return dbbadger.NewRepoManager(config.GetDBDatadir(), logger)
	}
}

// newRegistries returns the configured registries. Those hosted in memory
// are also exposed over HTTP for participants to mint and approve assets.
func newRegistries(escrowAccount domain.Account) (
	map[domain.RegistryID]ports.AssetRegistry,
	map[domain.RegistryID]http.Handler,
	error,
) {
	list, err := config.GetRegistries()
	if err != nil {
		return nil, nil, err
	}

	authSecret := config.GetRegistryAuthSecret()
	registries := make(map[domain.RegistryID]ports.AssetRegistry)
	handlers := make(map[domain.RegistryID]http.Handler)
	for _, r := range list {
		if r.IsInMemory() {
			reg := inmemory.NewRegistry()
			registries[r.ID] = reg.Session(escrowAccount)
			handlers[r.ID] = httpregistry.NewHandler(reg, authSecret)
			log.Infof("hosting in-memory registry %s", r.ID)
			continue
		}

		reg, err := httpregistry.NewRegistry(httpregistry.Config{
			BaseURL:        r.URL,
			Operator:       escrowAccount,
			AuthSecret:     authSecret,
			RequestTimeout: config.GetRegistryRequestTimeout(),
			RateLimit:      config.GetInt(config.RegistryRateLimitKey),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("registry %s: %w", r.ID, err)
		}
		registries[r.ID] = reg
		log.Infof("using remote registry %s at %s", r.ID, r.URL)
	}
	return registries, handlers, nil
}
