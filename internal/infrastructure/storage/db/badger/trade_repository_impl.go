package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
	"github.com/timshannon/badgerhold/v4"
)

type tradeRepositoryImpl struct {
	store *badgerhold.Store
}

// NewTradeRepositoryImpl returns a new badger TradeRepository implementation.
func NewTradeRepositoryImpl(store *badgerhold.Store) ports.TradeRepository {
	return &tradeRepositoryImpl{store}
}

// Begin opens a read-write badger transaction.
func (r *tradeRepositoryImpl) Begin() (uow.Tx, error) {
	return &tx{r.store.Badger().NewTransaction(true)}, nil
}

func (r *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) error {
	model := fromDomain(trade)

	var err error
	if txn := r.txn(ctx); txn != nil {
		err = r.store.TxInsert(txn, model.ID, model)
	} else {
		err = r.store.Insert(model.ID, model)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrTradeAlreadyExists
		}
		return err
	}
	return nil
}

func (r *tradeRepositoryImpl) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	return r.getTrade(r.txn(ctx), tradeID)
}

func (r *tradeRepositoryImpl) GetAllTrades(
	ctx context.Context,
) ([]*domain.Trade, error) {
	return r.findTrades(r.txn(ctx), nil)
}

func (r *tradeRepositoryImpl) GetTradesByAccount(
	ctx context.Context, account domain.Account,
) ([]*domain.Trade, error) {
	query := badgerhold.Where("Starter").Eq(string(account)).
		Or(badgerhold.Where("Receiver").Eq(string(account)))
	return r.findTrades(r.txn(ctx), query)
}

func (r *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	txn := r.txn(ctx)
	if txn == nil {
		return r.store.Badger().Update(func(txn *badger.Txn) error {
			return r.updateTrade(txn, tradeID, updateFn)
		})
	}
	return r.updateTrade(txn, tradeID, updateFn)
}

func (r *tradeRepositoryImpl) updateTrade(
	txn *badger.Txn,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	currentTrade, err := r.getTrade(txn, tradeID)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	model := fromDomain(updatedTrade)
	return r.store.TxUpdate(txn, model.ID, model)
}

func (r *tradeRepositoryImpl) getTrade(
	txn *badger.Txn, tradeID domain.TradeID,
) (*domain.Trade, error) {
	var model tradeModel
	var err error
	if txn != nil {
		err = r.store.TxGet(txn, tradeID.String(), &model)
	} else {
		err = r.store.Get(tradeID.String(), &model)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}

	return model.toDomain()
}

func (r *tradeRepositoryImpl) findTrades(
	txn *badger.Txn, query *badgerhold.Query,
) ([]*domain.Trade, error) {
	var models []tradeModel
	var err error
	if txn != nil {
		err = r.store.TxFind(txn, &models, query)
	} else {
		err = r.store.Find(&models, query)
	}
	if err != nil {
		return nil, err
	}

	return toDomainList(models)
}

func (r *tradeRepositoryImpl) txn(ctx context.Context) *badger.Txn {
	if t, ok := uow.TxFromContext(ctx, r).(*tx); ok {
		return t.txn
	}
	return nil
}

type tx struct {
	txn *badger.Txn
}

func (t *tx) Commit() error {
	return t.txn.Commit()
}

func (t *tx) Rollback() error {
	t.txn.Discard()
	return nil
}
