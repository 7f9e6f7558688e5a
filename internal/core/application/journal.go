package application

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
	"github.com/tdex-network/tdex-escrow/pkg/stats"
)

// journaledRegistry makes a registry without transactions take part in a unit
// of work. Successful transfers are journaled and, if the unit of work is
// rolled back, reverted in reverse order on a best effort basis: a reverse
// transfer out of an account other than the escrow is refused unless that
// account approved the escrow again.
type journaledRegistry struct {
	ports.AssetRegistry
	id domain.RegistryID
}

func (r *journaledRegistry) Begin() (uow.Tx, error) {
	return &transferJournal{registry: r.AssetRegistry, id: r.id}, nil
}

func (r *journaledRegistry) Transfer(
	ctx context.Context, from, to domain.Account, asset domain.AssetID,
) error {
	if err := r.AssetRegistry.Transfer(ctx, from, to, asset); err != nil {
		return err
	}
	if journal, ok := uow.TxFromContext(ctx, r).(*transferJournal); ok {
		journal.record(from, to, asset)
	}
	return nil
}

// TransferBatch applies the transfers all-or-nothing if the registry
// supports it, one by one otherwise.
func (r *journaledRegistry) TransferBatch(
	ctx context.Context, transfers []ports.AssetTransfer,
) error {
	batcher, ok := r.AssetRegistry.(ports.BatchTransferer)
	if !ok {
		for _, t := range transfers {
			if err := r.Transfer(ctx, t.From, t.To, t.Asset); err != nil {
				return err
			}
		}
		return nil
	}

	if err := batcher.TransferBatch(ctx, transfers); err != nil {
		return err
	}
	if journal, ok := uow.TxFromContext(ctx, r).(*transferJournal); ok {
		for _, t := range transfers {
			journal.record(t.From, t.To, t.Asset)
		}
	}
	return nil
}

type journalEntry struct {
	from  domain.Account
	to    domain.Account
	asset domain.AssetID
}

type transferJournal struct {
	registry ports.AssetRegistry
	id       domain.RegistryID
	entries  []journalEntry
}

func (j *transferJournal) record(from, to domain.Account, asset domain.AssetID) {
	j.entries = append(j.entries, journalEntry{from, to, asset})
}

func (j *transferJournal) Commit() error {
	j.entries = nil
	return nil
}

// Rollback issues the compensating transfers. Every entry is attempted even
// if a previous one failed.
func (j *transferJournal) Rollback() error {
	failures := make([]string, 0)
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if err := j.registry.Transfer(
			context.Background(), e.to, e.from, e.asset,
		); err != nil {
			stats.IncCompensationFailures()
			log.WithError(err).WithFields(log.Fields{
				"registry": j.id,
				"asset":    e.asset,
				"from":     e.to,
				"to":       e.from,
			}).Error("failed to revert asset transfer")
			failures = append(failures, fmt.Sprintf("asset %d: %s", e.asset, err))
			continue
		}
		log.Debugf("registry %s: reverted transfer of asset %d", j.id, e.asset)
	}
	j.entries = nil

	if len(failures) > 0 {
		return fmt.Errorf(
			"registry %s: failed to revert transfers: %s",
			j.id, strings.Join(failures, ", "),
		)
	}
	return nil
}
