package domain_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	starter  = domain.Account("alice")
	receiver = domain.Account("bob")
	stranger = domain.Account("mallory")
	escrow   = domain.Account("escrow")

	starterRegistry  = domain.RegistryID("punks")
	receiverRegistry = domain.RegistryID("apes")
)

func TestNewTrade(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id := randomTradeID()
		trade, err := domain.NewTrade(
			id, starter, receiver, starterRegistry, receiverRegistry, 12,
		)
		require.NoError(t, err)
		require.Equal(t, id, trade.ID)
		require.True(t, trade.IsStarted())
		require.Equal(t, uint32(12), trade.CellCount)

		reg, err := trade.RegistryOf(starter)
		require.NoError(t, err)
		require.Equal(t, starterRegistry, reg)

		reg, err = trade.RegistryOf(receiver)
		require.NoError(t, err)
		require.Equal(t, receiverRegistry, reg)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name     string
			starter  domain.Account
			receiver domain.Account
		}{
			{"empty_starter", "", receiver},
			{"empty_receiver", starter, ""},
			{"same_participant", starter, starter},
		}

		for i := range tests {
			tt := tests[i]
			t.Run(tt.name, func(t *testing.T) {
				trade, err := domain.NewTrade(
					randomTradeID(), tt.starter, tt.receiver,
					starterRegistry, receiverRegistry, 1,
				)
				require.ErrorIs(t, err, domain.ErrInvalidParticipants)
				require.Nil(t, trade)
			})
		}
	})
}

func TestTradeIDParse(t *testing.T) {
	id := randomTradeID()

	parsed, err := domain.ParseTradeID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = domain.ParseTradeID("zz")
	require.Error(t, err)

	_, err = domain.ParseTradeID("abcd")
	require.Error(t, err)
}

func TestTradeDeposit(t *testing.T) {
	trade := newStartedTrade(t, 3)

	require.NoError(t, trade.Deposit(receiver, 2, 1))
	require.NoError(t, trade.Deposit(starter, 0, 3))

	slot := trade.Slot(1)
	require.True(t, slot.Occupied)
	require.Equal(t, domain.AssetID(2), slot.Asset)
	require.Equal(t, receiver, slot.Depositor)

	// asset 0 is a real asset, not an empty cell.
	slot = trade.Slot(3)
	require.True(t, slot.Occupied)
	require.Equal(t, domain.AssetID(0), slot.Asset)

	require.Equal(t, []uint32{1, 3}, trade.OccupiedCells())
}

func TestFailingTradeDeposit(t *testing.T) {
	tests := []struct {
		name        string
		trade       func(t *testing.T) *domain.Trade
		caller      domain.Account
		cell        uint32
		expectedErr error
	}{
		{
			name:        "invalid_cell",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      starter,
			cell:        0,
			expectedErr: domain.ErrInvalidCell,
		},
		{
			name:        "cell_out_of_range",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      starter,
			cell:        4,
			expectedErr: domain.ErrCellOutOfRange,
		},
		{
			name: "cell_occupied",
			trade: func(t *testing.T) *domain.Trade {
				trade := newStartedTrade(t, 3)
				require.NoError(t, trade.Deposit(receiver, 7, 2))
				return trade
			},
			caller:      starter,
			cell:        2,
			expectedErr: domain.ErrCellOccupied,
		},
		{
			name:        "not_participant",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      stranger,
			cell:        1,
			expectedErr: domain.ErrNotParticipant,
		},
		{
			name:        "trade_finalized",
			trade:       newFinalizedTrade,
			caller:      starter,
			cell:        2,
			expectedErr: domain.ErrTradeNotActive,
		},
		{
			name: "trade_null",
			trade: func(t *testing.T) *domain.Trade {
				return domain.NewEmptyTrade(randomTradeID())
			},
			caller:      starter,
			cell:        1,
			expectedErr: domain.ErrCellOutOfRange,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			trade := tt.trade(t)
			before := trade.Clone()

			err := trade.Deposit(tt.caller, 5, tt.cell)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Equal(t, before, trade)
		})
	}
}

func TestTradeWithdraw(t *testing.T) {
	trade := newStartedTrade(t, 3)
	require.NoError(t, trade.Deposit(receiver, 2, 1))

	slot, err := trade.Withdraw(receiver, 1)
	require.NoError(t, err)
	require.Equal(t, domain.AssetID(2), slot.Asset)
	require.Equal(t, receiver, slot.Depositor)
	require.False(t, trade.Slot(1).Occupied)
	require.Empty(t, trade.OccupiedCells())
}

func TestFailingTradeWithdraw(t *testing.T) {
	tests := []struct {
		name        string
		trade       func(t *testing.T) *domain.Trade
		caller      domain.Account
		cell        uint32
		expectedErr error
	}{
		{
			name:        "empty_cell",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      starter,
			cell:        1,
			expectedErr: domain.ErrUnknownCell,
		},
		{
			name: "counterparty",
			trade: func(t *testing.T) *domain.Trade {
				trade := newStartedTrade(t, 3)
				require.NoError(t, trade.Deposit(receiver, 2, 1))
				return trade
			},
			caller:      starter,
			cell:        1,
			expectedErr: domain.ErrUnauthorizedSigner,
		},
		{
			name: "stranger",
			trade: func(t *testing.T) *domain.Trade {
				trade := newStartedTrade(t, 3)
				require.NoError(t, trade.Deposit(receiver, 2, 1))
				return trade
			},
			caller:      stranger,
			cell:        1,
			expectedErr: domain.ErrUnauthorizedSigner,
		},
		{
			name:        "trade_finalized",
			trade:       newFinalizedTrade,
			caller:      receiver,
			cell:        1,
			expectedErr: domain.ErrTradeNotActive,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			trade := tt.trade(t)
			before := trade.Clone()

			_, err := trade.Withdraw(tt.caller, tt.cell)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Equal(t, before, trade)
		})
	}
}

func TestTradeSetReadiness(t *testing.T) {
	trade := newStartedTrade(t, 3)

	mustFinalize, err := trade.SetReadiness(starter, true)
	require.NoError(t, err)
	require.False(t, mustFinalize)
	require.True(t, trade.IsReady(starter))

	mustFinalize, err = trade.SetReadiness(starter, false)
	require.NoError(t, err)
	require.False(t, mustFinalize)
	require.False(t, trade.IsReady(starter))

	mustFinalize, err = trade.SetReadiness(receiver, true)
	require.NoError(t, err)
	require.False(t, mustFinalize)

	mustFinalize, err = trade.SetReadiness(starter, true)
	require.NoError(t, err)
	require.True(t, mustFinalize)
}

func TestFailingTradeSetReadiness(t *testing.T) {
	tests := []struct {
		name        string
		trade       func(t *testing.T) *domain.Trade
		caller      domain.Account
		ready       bool
		expectedErr error
	}{
		{
			name:        "not_participant",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      stranger,
			ready:       true,
			expectedErr: domain.ErrNotParticipant,
		},
		{
			name:        "redundant_not_ready",
			trade:       func(t *testing.T) *domain.Trade { return newStartedTrade(t, 3) },
			caller:      starter,
			ready:       false,
			expectedErr: domain.ErrRedundantReadinessState,
		},
		{
			name: "redundant_ready",
			trade: func(t *testing.T) *domain.Trade {
				trade := newStartedTrade(t, 3)
				_, err := trade.SetReadiness(receiver, true)
				require.NoError(t, err)
				return trade
			},
			caller:      receiver,
			ready:       true,
			expectedErr: domain.ErrRedundantReadinessState,
		},
		{
			name:        "trade_finalized",
			trade:       newFinalizedTrade,
			caller:      starter,
			ready:       false,
			expectedErr: domain.ErrTradeNotActive,
		},
		{
			name: "trade_null",
			trade: func(t *testing.T) *domain.Trade {
				return domain.NewEmptyTrade(randomTradeID())
			},
			caller:      starter,
			ready:       true,
			expectedErr: domain.ErrNotParticipant,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			trade := tt.trade(t)
			before := trade.Clone()

			_, err := trade.SetReadiness(tt.caller, tt.ready)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Equal(t, before, trade)
		})
	}
}

func TestTradeFinalize(t *testing.T) {
	trade := newStartedTrade(t, 12)
	require.NoError(t, trade.Deposit(receiver, 2, 7))
	require.NoError(t, trade.Deposit(starter, 9, 1))
	require.NoError(t, trade.Deposit(starter, 4, 12))

	_, err := trade.Finalize(escrow)
	require.ErrorIs(t, err, domain.ErrTradeNotReady)
	require.True(t, trade.IsStarted())

	_, err = trade.SetReadiness(starter, true)
	require.NoError(t, err)
	_, err = trade.SetReadiness(receiver, true)
	require.NoError(t, err)

	transfers, err := trade.Finalize(escrow)
	require.NoError(t, err)
	require.True(t, trade.IsFinalized())
	require.Equal(t, []domain.Transfer{
		{Cell: 1, Registry: starterRegistry, Asset: 9, From: escrow, To: receiver},
		{Cell: 7, Registry: receiverRegistry, Asset: 2, From: escrow, To: starter},
		{Cell: 12, Registry: starterRegistry, Asset: 4, From: escrow, To: receiver},
	}, transfers)

	_, err = trade.Finalize(escrow)
	require.ErrorIs(t, err, domain.ErrTradeNotActive)
}

func TestTradeClone(t *testing.T) {
	trade := newStartedTrade(t, 3)
	require.NoError(t, trade.Deposit(starter, 1, 1))

	clone := trade.Clone()
	require.Equal(t, trade, clone)

	require.NoError(t, clone.Deposit(receiver, 2, 2))
	require.False(t, trade.Slot(2).Occupied)
}

func newStartedTrade(t *testing.T, cellCount uint32) *domain.Trade {
	trade, err := domain.NewTrade(
		randomTradeID(), starter, receiver,
		starterRegistry, receiverRegistry, cellCount,
	)
	require.NoError(t, err)
	return trade
}

func newFinalizedTrade(t *testing.T) *domain.Trade {
	trade := newStartedTrade(t, 3)
	require.NoError(t, trade.Deposit(receiver, 2, 1))
	_, err := trade.SetReadiness(starter, true)
	require.NoError(t, err)
	_, err = trade.SetReadiness(receiver, true)
	require.NoError(t, err)
	_, err = trade.Finalize(escrow)
	require.NoError(t, err)
	return trade
}

func randomTradeID() domain.TradeID {
	var id domain.TradeID
	//nolint
	rand.Read(id[:])
	return id
}
