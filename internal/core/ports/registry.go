package ports

import (
	"context"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// AssetRegistry is the external system of record for the ownership of
// non-fungible assets. Every method receives the context of the escrow
// operation in progress, which a registry must forward if it ever calls
// back into the escrow.
type AssetRegistry interface {
	// OwnerOf returns the current owner of the asset.
	OwnerOf(ctx context.Context, asset domain.AssetID) (domain.Account, error)
	// IsApprovedForTransfer returns whether the operator is allowed to move
	// the asset on behalf of its owner.
	IsApprovedForTransfer(
		ctx context.Context, asset domain.AssetID, operator domain.Account,
	) (bool, error)
	// Transfer moves the custody of the asset. It fails if the operator of the
	// registry is not authorized or if the asset does not exist.
	Transfer(ctx context.Context, from, to domain.Account, asset domain.AssetID) error
}

// RegistryManager resolves the registries the escrow is bound to.
type RegistryManager interface {
	// Registry returns the registry identified by the given id.
	Registry(id domain.RegistryID) (AssetRegistry, error)
	// RegistryIDs returns the ids of all the known registries.
	RegistryIDs() []domain.RegistryID
}

// AssetTransfer is a single change of custody of an asset.
type AssetTransfer struct {
	From  domain.Account
	To    domain.Account
	Asset domain.AssetID
}

// BatchTransferer is implemented by registries able to apply several
// transfers all-or-nothing. The escrow relies on it to finalize trades
// through registries that can't take part in its transactions.
type BatchTransferer interface {
	TransferBatch(ctx context.Context, transfers []AssetTransfer) error
}
