package httpregistry

import "github.com/tdex-network/tdex-escrow/internal/core/domain"

type ownerResponse struct {
	Owner domain.Account `json:"owner"`
}

type approvalResponse struct {
	Approved bool `json:"approved"`
}

type transferRequest struct {
	From  domain.Account `json:"from"`
	To    domain.Account `json:"to"`
	Asset domain.AssetID `json:"asset_id"`
}

type batchTransferRequest struct {
	Transfers []transferRequest `json:"transfers"`
}

type mintRequest struct {
	Owner domain.Account `json:"owner"`
	Asset domain.AssetID `json:"asset_id"`
}

type approveRequest struct {
	Operator domain.Account `json:"operator"`
	Asset    domain.AssetID `json:"asset_id"`
	All      bool           `json:"all"`
	Approved bool           `json:"approved"`
}

type errorResponse struct {
	Error string `json:"error"`
}
