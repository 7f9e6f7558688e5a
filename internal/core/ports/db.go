package ports

import (
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
)

// TradeRepository is a domain.TradeRepository able to take part in a unit of
// work. Reads and writes made with the context given by the unit of work see
// the pending changes of its transaction.
type TradeRepository interface {
	domain.TradeRepository
	uow.Transactional
}

// RepoManager interface defines the methods for the repositories of the
// daemon.
type RepoManager interface {
	TradeRepository() TradeRepository
	Close()
}
