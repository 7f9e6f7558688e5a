package application

import (
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// StartTradeArgs holds the inputs of a new trade.
type StartTradeArgs struct {
	TradeID          domain.TradeID
	Starter          domain.Account
	Receiver         domain.Account
	StarterRegistry  domain.RegistryID
	ReceiverRegistry domain.RegistryID
	CellCount        uint32
}

// CellInfo is the content of an occupied cell.
type CellInfo struct {
	Cell      uint32         `json:"cell"`
	Asset     domain.AssetID `json:"asset_id"`
	Depositor domain.Account `json:"depositor"`
}

// TradeInfo is the read model of a trade. A never started trade has status
// NULL and zero-valued fields.
type TradeInfo struct {
	ID               domain.TradeID    `json:"id"`
	Starter          domain.Account    `json:"starter"`
	Receiver         domain.Account    `json:"receiver"`
	StarterRegistry  domain.RegistryID `json:"starter_registry"`
	ReceiverRegistry domain.RegistryID `json:"receiver_registry"`
	CellCount        uint32            `json:"cell_count"`
	Status           string            `json:"status"`
	Cells            []CellInfo        `json:"cells"`
	StarterReady     bool              `json:"starter_ready"`
	ReceiverReady    bool              `json:"receiver_ready"`
}

func newTradeInfo(trade *domain.Trade) TradeInfo {
	cells := make([]CellInfo, 0, len(trade.Cells))
	for _, cell := range trade.OccupiedCells() {
		slot := trade.Slot(cell)
		cells = append(cells, CellInfo{
			Cell:      cell,
			Asset:     slot.Asset,
			Depositor: slot.Depositor,
		})
	}

	return TradeInfo{
		ID:               trade.ID,
		Starter:          trade.Starter,
		Receiver:         trade.Receiver,
		StarterRegistry:  trade.StarterRegistry,
		ReceiverRegistry: trade.ReceiverRegistry,
		CellCount:        trade.CellCount,
		Status:           trade.Status.String(),
		Cells:            cells,
		StarterReady:     trade.StarterReady,
		ReceiverReady:    trade.ReceiverReady,
	}
}

// EventMessage is the envelope of the trade events published to webhooks and
// streaming clients.
type EventMessage struct {
	ID        string       `json:"id"`
	Topic     string       `json:"topic"`
	Timestamp int64        `json:"timestamp"`
	Payload   domain.Event `json:"payload"`
}
