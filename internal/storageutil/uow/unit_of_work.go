package uow

import (
	"context"
	"fmt"
)

// Transactional begins a transaction
type Transactional interface {
	Begin() (Tx, error)
}

// Tx represents an all-or-nothing transaction, by committing or rolling back
// a set of read/write operations. Rollback must be a no-op for an already
// committed transaction.
type Tx interface {
	Commit() error
	Rollback() error
}

// ContextProvider returns a context key
type ContextProvider interface {
	ContextKey() interface{}
}

// ContextKey returns the key under which the transaction of the given
// participant is stored in the context of a running unit of work.
func ContextKey(participant interface{}) interface{} {
	if cp, ok := participant.(ContextProvider); ok {
		return cp.ContextKey()
	}
	return participant
}

// TxFromContext returns the transaction opened for the given participant by
// the running unit of work, if any.
func TxFromContext(ctx context.Context, participant interface{}) Tx {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(ContextKey(participant)).(Tx)
	return tx
}

// UnitOfWork allows to run multiple transactions as one
type UnitOfWork struct {
	participants []Transactional
}

// NewUnitOfWork returns a new UnitOfWork with the given Transaction interfaces
func NewUnitOfWork(participants ...Transactional) *UnitOfWork {
	return &UnitOfWork{participants}
}

// Run executes the given function over the current UnitOfWork. The given
// function is likely making read/write operations to different participants
// in a transactional way, by using the context it receives. Run makes sure
// that all the transactions within the given function are either all
// committed or all rolled back, in reverse order, if any error occur.
// Participants sharing the same context key share the same transaction.
func (u *UnitOfWork) Run(
	ctx context.Context, fn func(ctx context.Context) error,
) (err error) {
	txs := make([]Tx, 0, len(u.participants))

	defer func() {
		if err == nil {
			return
		}
		for i := len(txs) - 1; i >= 0; i-- {
			if _err := txs[i].Rollback(); _err != nil {
				err = fmt.Errorf("%w (rollback failed: %v)", err, _err)
			}
		}
	}()

	defer func() {
		if err != nil {
			return
		}
		for _, tx := range txs {
			if _err := tx.Commit(); _err != nil {
				err = _err
				return
			}
		}
	}()

	defer func() {
		// panicking returns an error that causes txs rollback
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recovered: %v", rec)
		}
	}()

	keys := make(map[interface{}]struct{}, len(u.participants))
	for _, p := range u.participants {
		key := ContextKey(p)
		// make sure that the same context providers share the same transaction
		if _, ok := keys[key]; ok {
			continue
		}

		tx, err := p.Begin()
		if err != nil {
			return err
		}
		keys[key] = struct{}{}
		txs = append(txs, tx)
		ctx = context.WithValue(ctx, key, tx)
	}

	return fn(ctx)
}
