package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
	"github.com/tdex-network/tdex-escrow/pkg/stats"
	"golang.org/x/sync/semaphore"
)

// EscrowService drives the lifecycle of two-party asset swaps.
type EscrowService interface {
	StartTrade(ctx context.Context, caller domain.Account, args StartTradeArgs) error
	GetTrade(ctx context.Context, tradeID domain.TradeID) (*TradeInfo, error)
	ListTrades(ctx context.Context, account domain.Account) ([]TradeInfo, error)
	AddTokenToTrade(
		ctx context.Context,
		caller domain.Account,
		tradeID domain.TradeID,
		asset domain.AssetID,
		cell uint32,
	) error
	RemoveTokenFromTrade(
		ctx context.Context,
		caller domain.Account,
		tradeID domain.TradeID,
		cell uint32,
	) error
	ChangeUserReadiness(
		ctx context.Context,
		caller domain.Account,
		tradeID domain.TradeID,
		ready bool,
	) error
}

type inFlightKey struct{}

type escrowService struct {
	repoManager   ports.RepoManager
	registries    ports.RegistryManager
	publisher     *eventPublisher
	escrowAccount domain.Account
	gate          *semaphore.Weighted
}

// NewEscrowService returns the service holding assets in custody of the given
// escrow account. The pubsub is optional.
func NewEscrowService(
	repoManager ports.RepoManager,
	registries ports.RegistryManager,
	pubsub ports.PubSub,
	escrowAccount domain.Account,
) (EscrowService, error) {
	return newEscrowService(repoManager, registries, pubsub, escrowAccount)
}

func newEscrowService(
	repoManager ports.RepoManager,
	registries ports.RegistryManager,
	pubsub ports.PubSub,
	escrowAccount domain.Account,
) (*escrowService, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if registries == nil {
		return nil, fmt.Errorf("missing registry manager")
	}
	if len(escrowAccount) <= 0 {
		return nil, ErrMissingEscrowAccount
	}

	return &escrowService{
		repoManager:   repoManager,
		registries:    registries,
		publisher:     newEventPublisher(pubsub),
		escrowAccount: escrowAccount,
		gate:          semaphore.NewWeighted(1),
	}, nil
}

func (s *escrowService) StartTrade(
	ctx context.Context, caller domain.Account, args StartTradeArgs,
) (err error) {
	defer observe("start_trade", time.Now(), &err)

	ctx, release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	trade, err := domain.NewTrade(
		args.TradeID, args.Starter, args.Receiver,
		args.StarterRegistry, args.ReceiverRegistry, args.CellCount,
	)
	if err != nil {
		return err
	}
	if _, err := s.bindRegistries(
		args.StarterRegistry, args.ReceiverRegistry,
	); err != nil {
		return err
	}

	repo := s.repoManager.TradeRepository()
	if err := uow.NewUnitOfWork(repo).Run(
		ctx, func(ctx context.Context) error {
			return repo.AddTrade(ctx, trade)
		},
	); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"trade_id": trade.ID,
		"caller":   caller,
	}).Debug("trade started")

	s.publisher.publish(domain.TradeStarted{
		TradeID:          trade.ID,
		Starter:          trade.Starter,
		Receiver:         trade.Receiver,
		StarterRegistry:  trade.StarterRegistry,
		ReceiverRegistry: trade.ReceiverRegistry,
		CellCount:        trade.CellCount,
	})
	return nil
}

// GetTrade never fails for unknown trades, it returns the NULL record
// instead. Called from within an operation in progress, it reads the pending
// state of the operation.
func (s *escrowService) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*TradeInfo, error) {
	trade, err := s.getTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	info := newTradeInfo(trade)
	return &info, nil
}

func (s *escrowService) ListTrades(
	ctx context.Context, account domain.Account,
) ([]TradeInfo, error) {
	repo := s.repoManager.TradeRepository()

	var trades []*domain.Trade
	var err error
	if len(account) > 0 {
		trades, err = repo.GetTradesByAccount(ctx, account)
	} else {
		trades, err = repo.GetAllTrades(ctx)
	}
	if err != nil {
		return nil, err
	}

	infos := make([]TradeInfo, 0, len(trades))
	for _, trade := range trades {
		infos = append(infos, newTradeInfo(trade))
	}
	return infos, nil
}

func (s *escrowService) AddTokenToTrade(
	ctx context.Context,
	caller domain.Account,
	tradeID domain.TradeID,
	asset domain.AssetID,
	cell uint32,
) (err error) {
	defer observe("add_token_to_trade", time.Now(), &err)

	ctx, release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	trade, err := s.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	if err := trade.CheckCell(cell); err != nil {
		return err
	}
	registryID, err := trade.RegistryOf(caller)
	if err != nil {
		return err
	}
	registries, err := s.bindRegistries(registryID)
	if err != nil {
		return err
	}
	registry := registries[registryID]

	repo := s.repoManager.TradeRepository()
	if err := uow.NewUnitOfWork(participants(repo, registries)...).Run(
		ctx, func(ctx context.Context) error {
			owner, err := registry.OwnerOf(ctx, asset)
			if err != nil {
				return registryError(err)
			}
			if owner != caller {
				return domain.ErrNotAssetOwner
			}
			approved, err := registry.IsApprovedForTransfer(
				ctx, asset, s.escrowAccount,
			)
			if err != nil {
				return registryError(err)
			}
			if !approved {
				return domain.ErrRegistryNotApproved
			}

			if err := repo.UpdateTrade(
				ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
					if err := t.Deposit(caller, asset, cell); err != nil {
						return nil, err
					}
					return t, nil
				},
			); err != nil {
				return err
			}

			if err := registry.Transfer(
				ctx, caller, s.escrowAccount, asset,
			); err != nil {
				return registryError(err)
			}
			return nil
		},
	); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"trade_id": tradeID,
		"caller":   caller,
		"asset":    asset,
		"cell":     cell,
	}).Debug("asset added to trade")

	s.publisher.publish(domain.TokenAddedToTrade{
		TradeID: tradeID,
		Account: caller,
		Asset:   asset,
		Cell:    cell,
	})
	return nil
}

func (s *escrowService) RemoveTokenFromTrade(
	ctx context.Context,
	caller domain.Account,
	tradeID domain.TradeID,
	cell uint32,
) (err error) {
	defer observe("remove_token_from_trade", time.Now(), &err)

	ctx, release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	trade, err := s.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	slot, err := trade.Withdraw(caller, cell)
	if err != nil {
		return err
	}
	registryID, err := trade.RegistryOf(slot.Depositor)
	if err != nil {
		return err
	}
	registries, err := s.bindRegistries(registryID)
	if err != nil {
		return err
	}
	registry := registries[registryID]

	repo := s.repoManager.TradeRepository()
	if err := uow.NewUnitOfWork(participants(repo, registries)...).Run(
		ctx, func(ctx context.Context) error {
			if err := repo.UpdateTrade(
				ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
					if _, err := t.Withdraw(caller, cell); err != nil {
						return nil, err
					}
					return t, nil
				},
			); err != nil {
				return err
			}

			if err := registry.Transfer(
				ctx, s.escrowAccount, caller, slot.Asset,
			); err != nil {
				return registryError(err)
			}
			return nil
		},
	); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"trade_id": tradeID,
		"caller":   caller,
		"asset":    slot.Asset,
		"cell":     cell,
	}).Debug("asset removed from trade")

	s.publisher.publish(domain.TokenRemovedFromTrade{
		TradeID: tradeID,
		Account: caller,
		Asset:   slot.Asset,
		Cell:    cell,
	})
	return nil
}

func (s *escrowService) ChangeUserReadiness(
	ctx context.Context,
	caller domain.Account,
	tradeID domain.TradeID,
	ready bool,
) (err error) {
	defer observe("change_user_readiness", time.Now(), &err)

	ctx, release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	trade, err := s.getTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	mustFinalize, err := trade.SetReadiness(caller, ready)
	if err != nil {
		return err
	}

	registryIDs := make([]domain.RegistryID, 0, 2)
	if mustFinalize {
		registryIDs = append(
			registryIDs, trade.StarterRegistry, trade.ReceiverRegistry,
		)
	}
	registries, err := s.bindRegistries(registryIDs...)
	if err != nil {
		return err
	}

	repo := s.repoManager.TradeRepository()
	var transfers []domain.Transfer
	if err := uow.NewUnitOfWork(participants(repo, registries)...).Run(
		ctx, func(ctx context.Context) error {
			transfers = nil
			if err := repo.UpdateTrade(
				ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
					mustFinalize, err := t.SetReadiness(caller, ready)
					if err != nil {
						return nil, err
					}
					if mustFinalize {
						if transfers, err = t.Finalize(s.escrowAccount); err != nil {
							return nil, err
						}
					}
					return t, nil
				},
			); err != nil {
				return err
			}

			return s.sweep(ctx, registries, transfers)
		},
	); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"trade_id": tradeID,
		"caller":   caller,
		"ready":    ready,
	}).Debug("readiness changed")

	s.publisher.publish(domain.UserTradeStateChange{
		TradeID: tradeID,
		Account: caller,
		Ready:   ready,
	})

	if mustFinalize {
		stats.IncFinalizedTrades()
		log.WithField("trade_id", tradeID).Infof(
			"trade finalized, swapped %d assets", len(transfers),
		)
		s.publisher.publish(domain.TradeFinalized{TradeID: tradeID})
	}
	return nil
}

// sweep moves every deposited asset to the counterparty of its depositor.
// Transfers through transactional registries are made first, cells
// ascending. Every other registry then receives all of its transfers in a
// single batch, once each of its assets is confirmed in escrow custody.
func (s *escrowService) sweep(
	ctx context.Context,
	registries map[domain.RegistryID]ports.AssetRegistry,
	transfers []domain.Transfer,
) error {
	local := make([]domain.Transfer, 0, len(transfers))
	batches := make(map[domain.RegistryID][]domain.Transfer)
	for _, t := range transfers {
		registry, ok := registries[t.Registry]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRegistry, t.Registry)
		}
		if _, ok := registry.(ports.BatchTransferer); ok {
			batches[t.Registry] = append(batches[t.Registry], t)
			continue
		}
		local = append(local, t)
	}

	batchIDs := sortedRegistryIDs(batches)
	for _, id := range batchIDs {
		registry := registries[id]
		for _, t := range batches[id] {
			owner, err := registry.OwnerOf(ctx, t.Asset)
			if err != nil {
				return fmt.Errorf("cell %d: %w", t.Cell, registryError(err))
			}
			if owner != t.From {
				return fmt.Errorf(
					"cell %d: %w: asset %d is owned by %s",
					t.Cell, ErrAssetNotInCustody, t.Asset, owner,
				)
			}
		}
	}

	for _, t := range local {
		if err := registries[t.Registry].Transfer(
			ctx, t.From, t.To, t.Asset,
		); err != nil {
			return fmt.Errorf(
				"cell %d: %w", t.Cell, registryError(err),
			)
		}
	}

	for _, id := range batchIDs {
		batch := make([]ports.AssetTransfer, 0, len(batches[id]))
		for _, t := range batches[id] {
			batch = append(batch, ports.AssetTransfer{
				From: t.From, To: t.To, Asset: t.Asset,
			})
		}
		batcher := registries[id].(ports.BatchTransferer)
		if err := batcher.TransferBatch(ctx, batch); err != nil {
			return fmt.Errorf("registry %s: %w", id, registryError(err))
		}
	}
	return nil
}

// enter makes sure that operations never interleave. The returned context
// marks the operation as in progress and must be used for every call made
// within it.
func (s *escrowService) enter(
	ctx context.Context,
) (context.Context, func(), error) {
	if ctx.Value(inFlightKey{}) != nil {
		return nil, nil, ErrReentrantCall
	}
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, inFlightKey{}, struct{}{}), func() {
		s.gate.Release(1)
	}, nil
}

func (s *escrowService) getTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	trade, err := s.repoManager.TradeRepository().GetTrade(ctx, tradeID)
	if err != nil {
		if errors.Is(err, domain.ErrTradeNotFound) {
			return domain.NewEmptyTrade(tradeID), nil
		}
		return nil, err
	}
	return trade, nil
}

// bindRegistries resolves the given registries for the duration of an
// operation. Registries without transactions are journaled.
func (s *escrowService) bindRegistries(
	ids ...domain.RegistryID,
) (map[domain.RegistryID]ports.AssetRegistry, error) {
	registries := make(map[domain.RegistryID]ports.AssetRegistry, len(ids))
	for _, id := range ids {
		if _, ok := registries[id]; ok {
			continue
		}
		registry, err := s.registries.Registry(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRegistry, id)
		}
		if _, ok := registry.(uow.Transactional); !ok {
			registry = &journaledRegistry{registry, id}
		}
		registries[id] = registry
	}
	return registries, nil
}

func observe(operation string, start time.Time, err *error) {
	stats.ObserveOperation(operation, start, *err)
}

func participants(
	repo ports.TradeRepository,
	registries map[domain.RegistryID]ports.AssetRegistry,
) []uow.Transactional {
	list := []uow.Transactional{repo}
	for _, id := range sortedRegistryIDs(registries) {
		list = append(list, registries[id].(uow.Transactional))
	}
	return list
}

func sortedRegistryIDs[V any](
	registries map[domain.RegistryID]V,
) []domain.RegistryID {
	ids := make([]domain.RegistryID, 0, len(registries))
	for id := range registries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func registryError(err error) error {
	if errors.Is(err, ErrReentrantCall) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRegistryFailure, err)
}
