package inmemory

import (
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type repoManager struct {
	tradeRepository ports.TradeRepository
}

// NewRepoManager returns a RepoManager keeping all the data in memory.
func NewRepoManager() ports.RepoManager {
	return &repoManager{
		tradeRepository: NewTradeRepositoryImpl(),
	}
}

func (d *repoManager) TradeRepository() ports.TradeRepository {
	return d.tradeRepository
}

func (d *repoManager) Close() {}
