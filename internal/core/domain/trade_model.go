package domain

import (
	"encoding/hex"
	"fmt"
)

const (
	// TradeIDLength is the byte length of a trade identifier.
	TradeIDLength = 32
)

const (
	// TradeStatusNull is the implicit status of an id never used.
	TradeStatusNull TradeStatus = iota
	// TradeStatusStarted is the status of a trade accepting deposits,
	// withdrawals and readiness changes.
	TradeStatusStarted
	// TradeStatusFinalized is the terminal status reached once both
	// participants are ready and the assets have been swapped.
	TradeStatusFinalized
)

// TradeStatus represents the lifecycle phases of a trade.
type TradeStatus int

func (s TradeStatus) String() string {
	switch s {
	case TradeStatusNull:
		return "NULL"
	case TradeStatusStarted:
		return "STARTED"
	case TradeStatusFinalized:
		return "FINALIZED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// TradeID is the fixed-length opaque identifier of a trade.
type TradeID [TradeIDLength]byte

// ParseTradeID decodes a hex encoded trade identifier.
func ParseTradeID(str string) (TradeID, error) {
	var id TradeID
	buf, err := hex.DecodeString(str)
	if err != nil {
		return id, fmt.Errorf("invalid trade id: %w", err)
	}
	if len(buf) != TradeIDLength {
		return id, fmt.Errorf(
			"invalid trade id: expected %d bytes, got %d", TradeIDLength, len(buf),
		)
	}
	copy(id[:], buf)
	return id, nil
}

func (id TradeID) String() string {
	return hex.EncodeToString(id[:])
}

// Account identifies a participant, or the escrow itself, within asset
// registries.
type Account string

// RegistryID identifies an asset registry known by the escrow.
type RegistryID string

// AssetID identifies a non-fungible asset within its registry.
type AssetID uint64

// Slot is the content of a trade cell. An empty slot has Occupied false,
// which keeps asset 0 usable as a real asset.
type Slot struct {
	Occupied  bool
	Asset     AssetID
	Depositor Account
}

// Transfer describes a custody move to be executed by a registry.
type Transfer struct {
	Cell     uint32
	Registry RegistryID
	Asset    AssetID
	From     Account
	To       Account
}

// Trade is the data structure representing an escrow session between a
// starter and a receiver.
type Trade struct {
	ID               TradeID
	Starter          Account
	Receiver         Account
	StarterRegistry  RegistryID
	ReceiverRegistry RegistryID
	CellCount        uint32
	Status           TradeStatus
	Cells            map[uint32]Slot
	StarterReady     bool
	ReceiverReady    bool
}

// NewTrade returns a trade in Started status binding each participant to its
// own registry.
func NewTrade(
	id TradeID,
	starter, receiver Account,
	starterRegistry, receiverRegistry RegistryID,
	cellCount uint32,
) (*Trade, error) {
	if len(starter) <= 0 || len(receiver) <= 0 || starter == receiver {
		return nil, ErrInvalidParticipants
	}

	return &Trade{
		ID:               id,
		Starter:          starter,
		Receiver:         receiver,
		StarterRegistry:  starterRegistry,
		ReceiverRegistry: receiverRegistry,
		CellCount:        cellCount,
		Status:           TradeStatusStarted,
		Cells:            make(map[uint32]Slot),
	}, nil
}

// NewEmptyTrade returns the zero-valued record of a never used id.
func NewEmptyTrade(id TradeID) *Trade {
	return &Trade{ID: id, Status: TradeStatusNull, Cells: make(map[uint32]Slot)}
}

// Clone returns a deep copy of the trade allowing callers to mutate the
// result without affecting the stored instance.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Cells = make(map[uint32]Slot, len(t.Cells))
	for cell, slot := range t.Cells {
		clone.Cells[cell] = slot
	}
	return &clone
}

// MarshalText encodes the trade id in hex format.
func (id TradeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex encoded trade id.
func (id *TradeID) UnmarshalText(text []byte) error {
	parsed, err := ParseTradeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
