package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const maxAssetID = domain.AssetID(math.MaxUint64)

func makeRandomTrade(t *testing.T) *domain.Trade {
	trade, err := domain.NewTrade(
		randomTradeID(),
		domain.Account(randomHex(20)),
		domain.Account(randomHex(20)),
		domain.RegistryID(randomHex(8)),
		domain.RegistryID(randomHex(8)),
		12,
	)
	require.NoError(t, err)
	return trade
}

func randomTradeID() domain.TradeID {
	var id domain.TradeID
	copy(id[:], randomBytes(domain.TradeIDLength))
	return id
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
