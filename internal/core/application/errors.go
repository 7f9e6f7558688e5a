package application

import "errors"

var (
	// ErrReentrantCall is returned when a mutating operation is invoked from
	// within another one still in progress, typically by a registry calling
	// back into the escrow during a transfer.
	ErrReentrantCall = errors.New("reentrant call to escrow operation")
	// ErrUnknownRegistry is returned when a registry id is not configured.
	ErrUnknownRegistry = errors.New("unknown registry")
	// ErrRegistryFailure wraps every error returned by an asset registry.
	ErrRegistryFailure = errors.New("asset registry failure")
	// ErrAssetNotInCustody is returned when a registry reports an owner other
	// than the escrow for an asset about to be swept.
	ErrAssetNotInCustody = errors.New("asset not in escrow custody")
	// ErrMissingEscrowAccount is returned if the account holding the assets in
	// custody is not defined.
	ErrMissingEscrowAccount = errors.New("missing escrow account")
	// ErrInvalidTopic is returned when subscribing for an unknown event topic.
	ErrInvalidTopic = errors.New("unknown event topic")
	// ErrPubSubNotInitialized is returned when managing webhooks without a
	// pubsub service.
	ErrPubSubNotInitialized = errors.New("pubsub service is not initialized")
)
