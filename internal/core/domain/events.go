package domain

const (
	TradeStartedTopic          = "TRADE_STARTED"
	TokenAddedToTradeTopic     = "TOKEN_ADDED_TO_TRADE"
	TokenRemovedFromTradeTopic = "TOKEN_REMOVED_FROM_TRADE"
	UserTradeStateChangeTopic  = "USER_TRADE_STATE_CHANGE"
	TradeFinalizedTopic        = "TRADE_FINALIZED"
)

// Topics returns the list of the topics of all trade events.
func Topics() []string {
	return []string{
		TradeStartedTopic,
		TokenAddedToTradeTopic,
		TokenRemovedFromTradeTopic,
		UserTradeStateChangeTopic,
		TradeFinalizedTopic,
	}
}

// Event is raised by every successful trade operation.
type Event interface {
	Topic() string
	GetTradeID() TradeID
}

// TradeStarted is raised when a trade is created.
type TradeStarted struct {
	TradeID          TradeID    `json:"trade_id"`
	Starter          Account    `json:"starter"`
	Receiver         Account    `json:"receiver"`
	StarterRegistry  RegistryID `json:"starter_registry"`
	ReceiverRegistry RegistryID `json:"receiver_registry"`
	CellCount        uint32     `json:"cell_count"`
}

func (e TradeStarted) Topic() string       { return TradeStartedTopic }
func (e TradeStarted) GetTradeID() TradeID { return e.TradeID }

// TokenAddedToTrade is raised when an asset is deposited into a cell.
type TokenAddedToTrade struct {
	TradeID TradeID `json:"trade_id"`
	Account Account `json:"account"`
	Asset   AssetID `json:"asset_id"`
	Cell    uint32  `json:"cell"`
}

func (e TokenAddedToTrade) Topic() string       { return TokenAddedToTradeTopic }
func (e TokenAddedToTrade) GetTradeID() TradeID { return e.TradeID }

// TokenRemovedFromTrade is raised when an asset is withdrawn from a cell.
type TokenRemovedFromTrade struct {
	TradeID TradeID `json:"trade_id"`
	Account Account `json:"account"`
	Asset   AssetID `json:"asset_id"`
	Cell    uint32  `json:"cell"`
}

func (e TokenRemovedFromTrade) Topic() string       { return TokenRemovedFromTradeTopic }
func (e TokenRemovedFromTrade) GetTradeID() TradeID { return e.TradeID }

// UserTradeStateChange is raised when a participant changes its readiness.
type UserTradeStateChange struct {
	TradeID TradeID `json:"trade_id"`
	Account Account `json:"account"`
	Ready   bool    `json:"ready"`
}

func (e UserTradeStateChange) Topic() string       { return UserTradeStateChangeTopic }
func (e UserTradeStateChange) GetTradeID() TradeID { return e.TradeID }

// TradeFinalized is raised once all the assets of a trade have been swapped.
type TradeFinalized struct {
	TradeID TradeID `json:"trade_id"`
}

func (e TradeFinalized) Topic() string       { return TradeFinalizedTopic }
func (e TradeFinalized) GetTradeID() TradeID { return e.TradeID }
