package inmemory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
)

type tradeInmemoryStore struct {
	trades map[domain.TradeID]domain.Trade
	locker *sync.RWMutex
}

type tradeRepositoryImpl struct {
	store *tradeInmemoryStore
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository implementation.
func NewTradeRepositoryImpl() ports.TradeRepository {
	return &tradeRepositoryImpl{&tradeInmemoryStore{
		trades: make(map[domain.TradeID]domain.Trade),
		locker: &sync.RWMutex{},
	}}
}

// Begin opens a transaction buffering every write until it's committed.
func (r *tradeRepositoryImpl) Begin() (uow.Tx, error) {
	return &tradeTx{
		store:   r.store,
		pending: make(map[domain.TradeID]*domain.Trade),
	}, nil
}

func (r *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) error {
	tx := r.tx(ctx)
	if tx == nil {
		r.store.locker.Lock()
		defer r.store.locker.Unlock()
	}

	if _, err := r.getTrade(tx, trade.ID); err == nil {
		return domain.ErrTradeAlreadyExists
	}
	r.writeTrade(tx, trade)
	return nil
}

func (r *tradeRepositoryImpl) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	tx := r.tx(ctx)
	if tx == nil {
		r.store.locker.RLock()
		defer r.store.locker.RUnlock()
	}

	return r.getTrade(tx, tradeID)
}

func (r *tradeRepositoryImpl) GetAllTrades(
	ctx context.Context,
) ([]*domain.Trade, error) {
	tx := r.tx(ctx)
	if tx == nil {
		r.store.locker.RLock()
		defer r.store.locker.RUnlock()
	}

	return r.findTrades(tx, func(*domain.Trade) bool { return true }), nil
}

func (r *tradeRepositoryImpl) GetTradesByAccount(
	ctx context.Context, account domain.Account,
) ([]*domain.Trade, error) {
	tx := r.tx(ctx)
	if tx == nil {
		r.store.locker.RLock()
		defer r.store.locker.RUnlock()
	}

	return r.findTrades(tx, func(t *domain.Trade) bool {
		return t.IsParticipant(account)
	}), nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	tx := r.tx(ctx)
	if tx == nil {
		r.store.locker.Lock()
		defer r.store.locker.Unlock()
	}

	currentTrade, err := r.getTrade(tx, tradeID)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	r.writeTrade(tx, updatedTrade)
	return nil
}

// tx returns the pending transaction for the given context, if any. The
// caller is in charge of locking the store when no transaction is returned.
func (r *tradeRepositoryImpl) tx(ctx context.Context) *tradeTx {
	tx, _ := uow.TxFromContext(ctx, r).(*tradeTx)
	if tx == nil || tx.done {
		return nil
	}
	return tx
}

func (r *tradeRepositoryImpl) getTrade(
	tx *tradeTx, tradeID domain.TradeID,
) (*domain.Trade, error) {
	if tx != nil {
		if trade, ok := tx.pending[tradeID]; ok {
			return trade.Clone(), nil
		}
		tx.store.locker.RLock()
		defer tx.store.locker.RUnlock()
	}

	trade, ok := r.store.trades[tradeID]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return trade.Clone(), nil
}

func (r *tradeRepositoryImpl) writeTrade(tx *tradeTx, trade *domain.Trade) {
	if tx != nil {
		tx.pending[trade.ID] = trade.Clone()
		return
	}
	r.store.trades[trade.ID] = *trade.Clone()
}

func (r *tradeRepositoryImpl) findTrades(
	tx *tradeTx, filter func(t *domain.Trade) bool,
) []*domain.Trade {
	all := make(map[domain.TradeID]*domain.Trade)
	if tx != nil {
		tx.store.locker.RLock()
	}
	for id, trade := range r.store.trades {
		all[id] = trade.Clone()
	}
	if tx != nil {
		tx.store.locker.RUnlock()
		for id, trade := range tx.pending {
			all[id] = trade.Clone()
		}
	}

	trades := make([]*domain.Trade, 0, len(all))
	for _, trade := range all {
		if filter(trade) {
			trades = append(trades, trade)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return bytes.Compare(trades[i].ID[:], trades[j].ID[:]) < 0
	})
	return trades
}

type tradeTx struct {
	store   *tradeInmemoryStore
	pending map[domain.TradeID]*domain.Trade
	done    bool
}

func (tx *tradeTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.store.locker.Lock()
	defer tx.store.locker.Unlock()

	for id, trade := range tx.pending {
		tx.store.trades[id] = *trade
	}
	tx.done = true
	return nil
}

func (tx *tradeTx) Rollback() error {
	tx.pending = nil
	tx.done = true
	return nil
}
