package httpregistry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/registry/inmemory"
	"github.com/tdex-network/tdex-escrow/internal/storageutil/uow"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
)

type handler struct {
	registry   *inmemory.Registry
	authSecret []byte
}

// NewHandler exposes an in-memory registry over HTTP with the same protocol
// consumed by the remote registry client. Mint and approve requests are
// authenticated as the asset owner, transfers as the operator.
func NewHandler(registry *inmemory.Registry, authSecret []byte) http.Handler {
	h := &handler{registry, authSecret}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /assets/{id}/owner", h.ownerOf)
	mux.HandleFunc("GET /assets/{id}/approval", h.isApproved)
	mux.HandleFunc("POST /transfers", h.transfer)
	mux.HandleFunc("POST /transfers/batch", h.transferBatch)
	mux.HandleFunc("POST /mint", h.mint)
	mux.HandleFunc("POST /approve", h.approve)
	return mux
}

func (h *handler) ownerOf(w http.ResponseWriter, req *http.Request) {
	asset, err := parseAssetID(req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	owner, err := h.registry.OwnerOf(asset)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, ownerResponse{owner})
}

func (h *handler) isApproved(w http.ResponseWriter, req *http.Request) {
	asset, err := parseAssetID(req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	operator := domain.Account(req.URL.Query().Get("operator"))

	approved, err := h.registry.Session(operator).IsApprovedForTransfer(
		req.Context(), asset, operator,
	)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, approvalResponse{approved})
}

func (h *handler) transfer(w http.ResponseWriter, req *http.Request) {
	operator, ok := h.authenticate(w, req)
	if !ok {
		return
	}
	body := transferRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.registry.Session(operator).Transfer(
		req.Context(), body.From, body.To, body.Asset,
	); err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

// transferBatch applies the transfers within a single registry transaction,
// none of them is committed if any fails.
func (h *handler) transferBatch(w http.ResponseWriter, req *http.Request) {
	operator, ok := h.authenticate(w, req)
	if !ok {
		return
	}
	body := batchTransferRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.Transfers) <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("missing transfers"))
		return
	}

	session := h.registry.Session(operator)
	if err := uow.NewUnitOfWork(session).Run(
		req.Context(), func(ctx context.Context) error {
			for _, t := range body.Transfers {
				if err := session.Transfer(ctx, t.From, t.To, t.Asset); err != nil {
					return err
				}
			}
			return nil
		},
	); err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (h *handler) mint(w http.ResponseWriter, req *http.Request) {
	caller, ok := h.authenticate(w, req)
	if !ok {
		return
	}
	body := mintRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.Owner) <= 0 {
		body.Owner = caller
	}

	if err := h.registry.Mint(body.Owner, body.Asset); err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, ownerResponse{body.Owner})
}

func (h *handler) approve(w http.ResponseWriter, req *http.Request) {
	owner, ok := h.authenticate(w, req)
	if !ok {
		return
	}
	body := approveRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	if body.All {
		err = h.registry.SetApprovalForAll(owner, body.Operator, body.Approved)
	} else {
		operator := body.Operator
		if !body.Approved {
			operator = ""
		}
		err = h.registry.Approve(owner, operator, body.Asset)
	}
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, approvalResponse{body.Approved})
}

func (h *handler) authenticate(
	w http.ResponseWriter, req *http.Request,
) (domain.Account, bool) {
	subject, err := jwtauth.SubjectFromRequest(h.authSecret, req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return "", false
	}
	return domain.Account(subject), true
}

func parseAssetID(str string) (domain.AssetID, error) {
	asset, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, errors.New("invalid asset id")
	}
	return domain.AssetID(asset), nil
}

func writeRegistryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, inmemory.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, inmemory.ErrWrongOwner),
		errors.Is(err, inmemory.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, inmemory.ErrAssetAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, inmemory.ErrInvalidAccount):
		status = http.StatusBadRequest
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	json.NewEncoder(w).Encode(errorResponse{err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	//nolint
	json.NewEncoder(w).Encode(v)
}
