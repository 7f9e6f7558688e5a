package dbsqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
)

const (
	selectTrades = `SELECT id, starter, receiver, starter_registry,
		receiver_registry, cell_count, status, starter_ready, receiver_ready
		FROM trades`
	selectCells = `SELECT cell, asset, depositor FROM cells WHERE trade_id = ?`
)

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type tradeRepositoryImpl struct {
	db     *sql.DB
	readDB *sql.DB
}

// NewTradeRepositoryImpl returns a new sqlite TradeRepository implementation.
// Reads made outside of a transaction use readDB so that they never wait for
// the writer connection.
func NewTradeRepositoryImpl(db, readDB *sql.DB) ports.TradeRepository {
	return &tradeRepositoryImpl{db, readDB}
}

// Begin opens a sql transaction.
func (r *tradeRepositoryImpl) Begin() (uow.Tx, error) {
	sqlTx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	return &tx{sqlTx}, nil
}

func (r *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) error {
	return r.withQuerier(ctx, func(q querier) error {
		var count int
		if err := q.QueryRowContext(
			ctx, `SELECT COUNT(*) FROM trades WHERE id = ?`, trade.ID.String(),
		).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrTradeAlreadyExists
		}

		if _, err := q.ExecContext(
			ctx,
			`INSERT INTO trades (id, starter, receiver, starter_registry,
			receiver_registry, cell_count, status, starter_ready, receiver_ready)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trade.ID.String(), string(trade.Starter), string(trade.Receiver),
			string(trade.StarterRegistry), string(trade.ReceiverRegistry),
			trade.CellCount, int(trade.Status),
			trade.StarterReady, trade.ReceiverReady,
		); err != nil {
			return err
		}
		return insertCells(ctx, q, trade)
	})
}

func (r *tradeRepositoryImpl) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	trades, err := r.findTrades(
		ctx, r.querier(ctx), " WHERE id = ?", tradeID.String(),
	)
	if err != nil {
		return nil, err
	}
	if len(trades) <= 0 {
		return nil, domain.ErrTradeNotFound
	}
	return trades[0], nil
}

func (r *tradeRepositoryImpl) GetAllTrades(
	ctx context.Context,
) ([]*domain.Trade, error) {
	return r.findTrades(ctx, r.querier(ctx), " ORDER BY id")
}

func (r *tradeRepositoryImpl) GetTradesByAccount(
	ctx context.Context, account domain.Account,
) ([]*domain.Trade, error) {
	return r.findTrades(
		ctx, r.querier(ctx), " WHERE starter = ? OR receiver = ? ORDER BY id",
		string(account), string(account),
	)
}

func (r *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	return r.withQuerier(ctx, func(q querier) error {
		trades, err := r.findTrades(ctx, q, " WHERE id = ?", tradeID.String())
		if err != nil {
			return err
		}
		if len(trades) <= 0 {
			return domain.ErrTradeNotFound
		}

		updatedTrade, err := updateFn(trades[0])
		if err != nil {
			return err
		}

		if _, err := q.ExecContext(
			ctx,
			`UPDATE trades SET status = ?, starter_ready = ?, receiver_ready = ?
			WHERE id = ?`,
			int(updatedTrade.Status), updatedTrade.StarterReady,
			updatedTrade.ReceiverReady, updatedTrade.ID.String(),
		); err != nil {
			return err
		}
		if _, err := q.ExecContext(
			ctx, `DELETE FROM cells WHERE trade_id = ?`, updatedTrade.ID.String(),
		); err != nil {
			return err
		}
		return insertCells(ctx, q, updatedTrade)
	})
}

// withQuerier runs fn within the transaction of the context, or within a new
// one committed right after fn succeeds.
func (r *tradeRepositoryImpl) withQuerier(
	ctx context.Context, fn func(q querier) error,
) error {
	if t, ok := uow.TxFromContext(ctx, r).(*tx); ok {
		return fn(t.sqlTx)
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(sqlTx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

func (r *tradeRepositoryImpl) querier(ctx context.Context) querier {
	if t, ok := uow.TxFromContext(ctx, r).(*tx); ok {
		return t.sqlTx
	}
	return r.readDB
}

func (r *tradeRepositoryImpl) findTrades(
	ctx context.Context, q querier, filter string, args ...interface{},
) ([]*domain.Trade, error) {
	rows, err := q.QueryContext(ctx, selectTrades+filter, args...)
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		var id, starter, receiver, starterRegistry, receiverRegistry string
		var cellCount uint32
		var status int
		var starterReady, receiverReady bool
		if err := rows.Scan(
			&id, &starter, &receiver, &starterRegistry, &receiverRegistry,
			&cellCount, &status, &starterReady, &receiverReady,
		); err != nil {
			rows.Close()
			return nil, err
		}

		tradeID, err := domain.ParseTradeID(id)
		if err != nil {
			rows.Close()
			return nil, err
		}
		trades = append(trades, &domain.Trade{
			ID:               tradeID,
			Starter:          domain.Account(starter),
			Receiver:         domain.Account(receiver),
			StarterRegistry:  domain.RegistryID(starterRegistry),
			ReceiverRegistry: domain.RegistryID(receiverRegistry),
			CellCount:        cellCount,
			Status:           domain.TradeStatus(status),
			Cells:            make(map[uint32]domain.Slot),
			StarterReady:     starterReady,
			ReceiverReady:    receiverReady,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Cells are loaded once the trades cursor is released since a
	// transaction holds a single connection.
	rows.Close()

	for _, trade := range trades {
		if err := loadCells(ctx, q, trade); err != nil {
			return nil, err
		}
	}
	return trades, nil
}

func loadCells(ctx context.Context, q querier, trade *domain.Trade) error {
	rows, err := q.QueryContext(ctx, selectCells, trade.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cell uint32
		var asset int64
		var depositor string
		if err := rows.Scan(&cell, &asset, &depositor); err != nil {
			return err
		}
		trade.Cells[cell] = domain.Slot{
			Occupied:  true,
			Asset:     domain.AssetID(uint64(asset)),
			Depositor: domain.Account(depositor),
		}
	}
	return rows.Err()
}

func insertCells(ctx context.Context, q querier, trade *domain.Trade) error {
	cells := trade.OccupiedCells()
	if len(cells) <= 0 {
		return nil
	}

	placeholders := make([]string, 0, len(cells))
	args := make([]interface{}, 0, len(cells)*4)
	for _, cell := range cells {
		slot := trade.Cells[cell]
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		// asset ids are stored with their bit pattern since sqlite integers
		// are signed.
		args = append(
			args, trade.ID.String(), cell, int64(slot.Asset), string(slot.Depositor),
		)
	}

	_, err := q.ExecContext(
		ctx,
		`INSERT INTO cells (trade_id, cell, asset, depositor) VALUES `+
			strings.Join(placeholders, ", "),
		args...,
	)
	return err
}

type tx struct {
	sqlTx *sql.Tx
}

func (t *tx) Commit() error {
	return t.sqlTx.Commit()
}

func (t *tx) Rollback() error {
	if err := t.sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
