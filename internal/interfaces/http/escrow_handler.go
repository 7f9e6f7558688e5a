package httpinterface

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type escrowHandler struct {
	escrowSvc application.EscrowService
}

func (h escrowHandler) startTrade(w http.ResponseWriter, req *http.Request) {
	body := startTradeRequest{}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.escrowSvc.StartTrade(
		operationContext(req), callerFromContext(req.Context()), body.toArgs(),
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startTradeResponse{body.TradeID})
}

func (h escrowHandler) getTrade(w http.ResponseWriter, req *http.Request) {
	tradeID, err := parseTradeID(req)
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := h.escrowSvc.GetTrade(req.Context(), tradeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h escrowHandler) listTrades(w http.ResponseWriter, req *http.Request) {
	account := domain.Account(req.URL.Query().Get("account"))

	trades, err := h.escrowSvc.ListTrades(req.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listTradesResponse{trades})
}

func (h escrowHandler) addTokenToTrade(w http.ResponseWriter, req *http.Request) {
	tradeID, cell, err := parseTradeCell(req)
	if err != nil {
		writeError(w, err)
		return
	}
	body := addTokenRequest{}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Asset == nil {
		writeError(w, invalidRequest("missing asset_id"))
		return
	}

	if err := h.escrowSvc.AddTokenToTrade(
		operationContext(req), callerFromContext(req.Context()),
		tradeID, *body.Asset, cell,
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h escrowHandler) removeTokenFromTrade(w http.ResponseWriter, req *http.Request) {
	tradeID, cell, err := parseTradeCell(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.escrowSvc.RemoveTokenFromTrade(
		operationContext(req), callerFromContext(req.Context()), tradeID, cell,
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h escrowHandler) changeUserReadiness(w http.ResponseWriter, req *http.Request) {
	tradeID, err := parseTradeID(req)
	if err != nil {
		writeError(w, err)
		return
	}
	body := readinessRequest{}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Ready == nil {
		writeError(w, invalidRequest("missing ready"))
		return
	}

	if err := h.escrowSvc.ChangeUserReadiness(
		operationContext(req), callerFromContext(req.Context()),
		tradeID, *body.Ready,
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// operationContext detaches mutating operations from the client connection,
// so that they run to completion even if the client goes away.
func operationContext(req *http.Request) context.Context {
	return context.WithoutCancel(req.Context())
}

func decodeBody(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return invalidRequest("malformed body: %s", err)
	}
	return nil
}

func parseTradeID(req *http.Request) (domain.TradeID, error) {
	tradeID, err := domain.ParseTradeID(req.PathValue("id"))
	if err != nil {
		return domain.TradeID{}, invalidRequest("%s", err)
	}
	return tradeID, nil
}

func parseTradeCell(req *http.Request) (domain.TradeID, uint32, error) {
	tradeID, err := parseTradeID(req)
	if err != nil {
		return domain.TradeID{}, 0, err
	}
	cell, err := strconv.ParseUint(req.PathValue("cell"), 10, 32)
	if err != nil {
		return domain.TradeID{}, 0, invalidRequest("invalid cell")
	}
	return tradeID, uint32(cell), nil
}
