package dbbadger

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

// repoManager holds the badgerhold store of the escrow in a single data
// structure.
type repoManager struct {
	store           *badgerhold.Store
	tradeRepository ports.TradeRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// It expects a base data dir and an optional logger. An empty dir makes the
// store live in memory.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	dir := ""
	if len(baseDbDir) > 0 {
		dir = filepath.Join(baseDbDir, "trades")
	}

	store, err := createDb(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening trades db: %w", err)
	}

	return &repoManager{
		store:           store,
		tradeRepository: NewTradeRepositoryImpl(store),
	}, nil
}

func (d *repoManager) TradeRepository() ports.TradeRepository {
	return d.tradeRepository
}

func (d *repoManager) Close() {
	d.store.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
