package domain

import "errors"

// Trade errors
var (
	// ErrTradeAlreadyExists is returned when starting a trade with an id
	// already in use.
	ErrTradeAlreadyExists = errors.New("trade already exists")
	// ErrTradeNotFound is returned by repositories when no trade matches the
	// given id.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrTradeNotActive is returned when mutating a trade that is not in
	// Started status.
	ErrTradeNotActive = errors.New("trade is not active")
	// ErrInvalidParticipants is returned when starter and receiver are empty or
	// the same account.
	ErrInvalidParticipants = errors.New("starter and receiver must be distinct non empty accounts")
	// ErrNotParticipant is returned when the caller is neither the starter nor
	// the receiver of the trade.
	ErrNotParticipant = errors.New("caller is not a participant of the trade")
	// ErrRedundantReadinessState is returned when the caller's readiness already
	// equals the requested one.
	ErrRedundantReadinessState = errors.New("readiness already in the requested state")
	// ErrTradeNotReady is returned when finalizing a trade whose participants
	// are not both ready.
	ErrTradeNotReady = errors.New("both participants must be ready to finalize the trade")
)

// Cell errors
var (
	// ErrInvalidCell is returned for the reserved cell 0.
	ErrInvalidCell = errors.New("cell 0 is not a valid cell")
	// ErrCellOutOfRange is returned for cells greater than the trade cell count.
	ErrCellOutOfRange = errors.New("cell is out of range")
	// ErrCellOccupied is returned when depositing into an occupied cell.
	ErrCellOccupied = errors.New("cell is already occupied")
	// ErrUnknownCell is returned when withdrawing from an empty cell.
	ErrUnknownCell = errors.New("cell is empty")
	// ErrUnauthorizedSigner is returned when the caller did not deposit the
	// asset held by the cell.
	ErrUnauthorizedSigner = errors.New("caller is not the depositor of the cell")
)

// Asset errors
var (
	// ErrNotAssetOwner is returned when the caller does not own the asset
	// according to its bound registry.
	ErrNotAssetOwner = errors.New("caller is not the owner of the asset")
	// ErrRegistryNotApproved is returned when the escrow is not approved to move
	// the asset.
	ErrRegistryNotApproved = errors.New("escrow is not approved to transfer the asset")
)
