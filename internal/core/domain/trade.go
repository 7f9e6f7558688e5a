package domain

import "sort"

// IsEmpty returns whether the trade has never been started.
func (t *Trade) IsEmpty() bool {
	return t.Status == TradeStatusNull
}

// IsStarted returns whether the trade is in Started status.
func (t *Trade) IsStarted() bool {
	return t.Status == TradeStatusStarted
}

// IsFinalized returns whether the trade is in Finalized status.
func (t *Trade) IsFinalized() bool {
	return t.Status == TradeStatusFinalized
}

// IsParticipant returns whether the account is either the starter or the
// receiver of the trade.
func (t *Trade) IsParticipant(account Account) bool {
	return len(account) > 0 && (account == t.Starter || account == t.Receiver)
}

// RegistryOf returns the registry the given participant is bound to.
func (t *Trade) RegistryOf(account Account) (RegistryID, error) {
	switch {
	case !t.IsParticipant(account):
		return "", ErrNotParticipant
	case account == t.Starter:
		return t.StarterRegistry, nil
	default:
		return t.ReceiverRegistry, nil
	}
}

// CounterpartyOf returns the other participant of the trade.
func (t *Trade) CounterpartyOf(account Account) (Account, error) {
	switch {
	case !t.IsParticipant(account):
		return "", ErrNotParticipant
	case account == t.Starter:
		return t.Receiver, nil
	default:
		return t.Starter, nil
	}
}

// IsReady returns the readiness flag of the given participant.
func (t *Trade) IsReady(account Account) bool {
	switch {
	case !t.IsParticipant(account):
		return false
	case account == t.Starter:
		return t.StarterReady
	default:
		return t.ReceiverReady
	}
}

// Slot returns the content of the given cell.
func (t *Trade) Slot(cell uint32) Slot {
	return t.Cells[cell]
}

// OccupiedCells returns the indexes of the occupied cells in ascending
// order.
func (t *Trade) OccupiedCells() []uint32 {
	cells := make([]uint32, 0, len(t.Cells))
	for cell, slot := range t.Cells {
		if slot.Occupied {
			cells = append(cells, cell)
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	return cells
}

// CheckCell makes sure the given cell can receive a deposit.
func (t *Trade) CheckCell(cell uint32) error {
	if cell == 0 {
		return ErrInvalidCell
	}
	if cell > t.CellCount {
		return ErrCellOutOfRange
	}
	if t.Cells[cell].Occupied {
		return ErrCellOccupied
	}
	return nil
}

// Deposit records the asset deposited by the caller into the given cell.
// Ownership and approval of the asset are checked against the registry by
// the caller of this method, before the deposit is recorded.
func (t *Trade) Deposit(caller Account, asset AssetID, cell uint32) error {
	if err := t.CheckCell(cell); err != nil {
		return err
	}
	if !t.IsParticipant(caller) {
		return ErrNotParticipant
	}
	if !t.IsStarted() {
		return ErrTradeNotActive
	}

	if t.Cells == nil {
		t.Cells = make(map[uint32]Slot)
	}
	t.Cells[cell] = Slot{Occupied: true, Asset: asset, Depositor: caller}
	return nil
}

// Withdraw empties the given cell and returns its previous content. Only the
// depositor of the asset is allowed to withdraw it.
func (t *Trade) Withdraw(caller Account, cell uint32) (Slot, error) {
	slot := t.Cells[cell]
	if !slot.Occupied {
		return Slot{}, ErrUnknownCell
	}
	if len(caller) <= 0 || slot.Depositor != caller {
		return Slot{}, ErrUnauthorizedSigner
	}
	if !t.IsStarted() {
		return Slot{}, ErrTradeNotActive
	}

	delete(t.Cells, cell)
	return slot, nil
}

// SetReadiness updates the readiness of the caller and returns whether both
// participants are now ready, meaning the trade must be finalized.
func (t *Trade) SetReadiness(caller Account, ready bool) (bool, error) {
	if !t.IsParticipant(caller) {
		return false, ErrNotParticipant
	}
	if t.IsReady(caller) == ready {
		return false, ErrRedundantReadinessState
	}
	if !t.IsStarted() {
		return false, ErrTradeNotActive
	}

	if caller == t.Starter {
		t.StarterReady = ready
	} else {
		t.ReceiverReady = ready
	}

	return ready && t.StarterReady && t.ReceiverReady, nil
}

// Finalize brings the trade from the Started to the Finalized status and
// returns the transfers that swap the custody of every deposited asset, in
// ascending cell order. The status changes before any transfer is executed,
// so that a finalized trade can never be finalized again.
func (t *Trade) Finalize(escrow Account) ([]Transfer, error) {
	if !t.IsStarted() {
		return nil, ErrTradeNotActive
	}
	if !t.StarterReady || !t.ReceiverReady {
		return nil, ErrTradeNotReady
	}

	t.Status = TradeStatusFinalized

	cells := t.OccupiedCells()
	transfers := make([]Transfer, 0, len(cells))
	for _, cell := range cells {
		slot := t.Cells[cell]
		registry, err := t.RegistryOf(slot.Depositor)
		if err != nil {
			return nil, err
		}
		counterparty, _ := t.CounterpartyOf(slot.Depositor)

		transfers = append(transfers, Transfer{
			Cell:     cell,
			Registry: registry,
			Asset:    slot.Asset,
			From:     escrow,
			To:       counterparty,
		})
	}
	return transfers, nil
}
