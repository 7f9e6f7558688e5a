package inmemory

import "errors"

var (
	// ErrAssetNotFound is returned when the asset was never minted.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrAssetAlreadyExists is returned when minting an existing asset.
	ErrAssetAlreadyExists = errors.New("asset already exists")
	// ErrWrongOwner is returned when the sender of a transfer or approval is
	// not the owner of the asset.
	ErrWrongOwner = errors.New("sender is not the owner of the asset")
	// ErrNotAuthorized is returned when the operator of a transfer is neither
	// the owner nor an approved account.
	ErrNotAuthorized = errors.New("operator not authorized to transfer the asset")
	// ErrInvalidAccount is returned for empty accounts.
	ErrInvalidAccount = errors.New("invalid account")
)
