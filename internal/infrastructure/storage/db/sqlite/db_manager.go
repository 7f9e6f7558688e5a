package dbsqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	_ "modernc.org/sqlite"
)

const (
	dbFile = "escrow.db"

	// In WAL mode readers see the last committed state while the writer
	// connection holds a transaction.
	maxReadConns = 4
	readerParams = "?_pragma=busy_timeout(5000)&_pragma=query_only(1)"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		starter TEXT NOT NULL,
		receiver TEXT NOT NULL,
		starter_registry TEXT NOT NULL,
		receiver_registry TEXT NOT NULL,
		cell_count INTEGER NOT NULL,
		status INTEGER NOT NULL,
		starter_ready INTEGER NOT NULL,
		receiver_ready INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS trades_starter_idx ON trades(starter);`,
	`CREATE INDEX IF NOT EXISTS trades_receiver_idx ON trades(receiver);`,
	`CREATE TABLE IF NOT EXISTS cells (
		trade_id TEXT NOT NULL REFERENCES trades(id),
		cell INTEGER NOT NULL,
		asset INTEGER NOT NULL,
		depositor TEXT NOT NULL,
		PRIMARY KEY (trade_id, cell)
	);`,
}

type repoManager struct {
	db              *sql.DB
	readDB          *sql.DB
	tradeRepository ports.TradeRepository
}

// NewRepoManager opens (or creates if not exists) the sqlite database in the
// given dir. Writes go through a single connection, reads made outside of a
// transaction through a separate read-only pool.
func NewRepoManager(baseDbDir string) (ports.RepoManager, error) {
	if err := os.MkdirAll(baseDbDir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(baseDbDir, dbFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initDb(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", path+readerParams)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	readDB.SetMaxOpenConns(maxReadConns)

	return &repoManager{
		db:              db,
		readDB:          readDB,
		tradeRepository: NewTradeRepositoryImpl(db, readDB),
	}, nil
}

func (d *repoManager) TradeRepository() ports.TradeRepository {
	return d.tradeRepository
}

func (d *repoManager) Close() {
	d.readDB.Close()
	d.db.Close()
}

func initDb(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing sqlite db: %w", err)
		}
	}
	return nil
}
