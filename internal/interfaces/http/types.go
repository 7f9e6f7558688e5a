package httpinterface

import (
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type startTradeRequest struct {
	TradeID          domain.TradeID    `json:"trade_id"`
	Starter          domain.Account    `json:"starter"`
	Receiver         domain.Account    `json:"receiver"`
	StarterRegistry  domain.RegistryID `json:"starter_registry"`
	ReceiverRegistry domain.RegistryID `json:"receiver_registry"`
	CellCount        uint32            `json:"cell_count"`
}

func (r startTradeRequest) toArgs() application.StartTradeArgs {
	return application.StartTradeArgs{
		TradeID:          r.TradeID,
		Starter:          r.Starter,
		Receiver:         r.Receiver,
		StarterRegistry:  r.StarterRegistry,
		ReceiverRegistry: r.ReceiverRegistry,
		CellCount:        r.CellCount,
	}
}

type startTradeResponse struct {
	TradeID domain.TradeID `json:"trade_id"`
}

type addTokenRequest struct {
	Asset *domain.AssetID `json:"asset_id"`
}

type readinessRequest struct {
	Ready *bool `json:"ready"`
}

type listTradesResponse struct {
	Trades []application.TradeInfo `json:"trades"`
}

type addWebhookRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type addWebhookResponse struct {
	ID string `json:"id"`
}

type listWebhooksResponse struct {
	Webhooks []application.Webhook `json:"webhooks"`
}

type errorResponse struct {
	Error string `json:"error"`
}
