package dbbadger

import (
	"sort"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// tradeModel is the flat representation of a trade persisted in badger.
// Typed domain fields are stored as primitive ones so that badgerhold queries
// compare plain values.
type tradeModel struct {
	ID               string
	Starter          string `badgerhold:"index"`
	Receiver         string `badgerhold:"index"`
	StarterRegistry  string
	ReceiverRegistry string
	CellCount        uint32
	Status           int
	Cells            []cellModel
	StarterReady     bool
	ReceiverReady    bool
}

type cellModel struct {
	Cell      uint32
	Asset     uint64
	Depositor string
}

func fromDomain(trade *domain.Trade) tradeModel {
	cells := make([]cellModel, 0, len(trade.Cells))
	for _, cell := range trade.OccupiedCells() {
		slot := trade.Cells[cell]
		cells = append(cells, cellModel{
			Cell:      cell,
			Asset:     uint64(slot.Asset),
			Depositor: string(slot.Depositor),
		})
	}

	return tradeModel{
		ID:               trade.ID.String(),
		Starter:          string(trade.Starter),
		Receiver:         string(trade.Receiver),
		StarterRegistry:  string(trade.StarterRegistry),
		ReceiverRegistry: string(trade.ReceiverRegistry),
		CellCount:        trade.CellCount,
		Status:           int(trade.Status),
		Cells:            cells,
		StarterReady:     trade.StarterReady,
		ReceiverReady:    trade.ReceiverReady,
	}
}

func (m tradeModel) toDomain() (*domain.Trade, error) {
	id, err := domain.ParseTradeID(m.ID)
	if err != nil {
		return nil, err
	}

	cells := make(map[uint32]domain.Slot, len(m.Cells))
	for _, c := range m.Cells {
		cells[c.Cell] = domain.Slot{
			Occupied:  true,
			Asset:     domain.AssetID(c.Asset),
			Depositor: domain.Account(c.Depositor),
		}
	}

	return &domain.Trade{
		ID:               id,
		Starter:          domain.Account(m.Starter),
		Receiver:         domain.Account(m.Receiver),
		StarterRegistry:  domain.RegistryID(m.StarterRegistry),
		ReceiverRegistry: domain.RegistryID(m.ReceiverRegistry),
		CellCount:        m.CellCount,
		Status:           domain.TradeStatus(m.Status),
		Cells:            cells,
		StarterReady:     m.StarterReady,
		ReceiverReady:    m.ReceiverReady,
	}, nil
}

func toDomainList(models []tradeModel) ([]*domain.Trade, error) {
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	trades := make([]*domain.Trade, 0, len(models))
	for _, m := range models {
		trade, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}
