package domain

import (
	"context"
)

// TradeRepository is the abstraction for any kind of database intended to
// persist Trades.
type TradeRepository interface {
	// AddTrade persists a new trade, returning ErrTradeAlreadyExists if its id
	// is already in use.
	AddTrade(ctx context.Context, trade *Trade) error
	// GetTrade returns the trade with the given id, or ErrTradeNotFound.
	GetTrade(ctx context.Context, tradeID TradeID) (*Trade, error)
	// GetAllTrades returns all the trades stored in the repository.
	GetAllTrades(ctx context.Context) ([]*Trade, error)
	// GetTradesByAccount returns all the trades where the given account is
	// either the starter or the receiver.
	GetTradesByAccount(ctx context.Context, account Account) ([]*Trade, error)
	// UpdateTrade allows to commit multiple changes to the same trade in a
	// transactional way.
	UpdateTrade(
		ctx context.Context,
		tradeID TradeID,
		updateFn func(t *Trade) (*Trade, error),
	) error
}
