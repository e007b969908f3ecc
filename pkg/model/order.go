package model

// Status is the lifecycle state of an order.
// Transitions: active -> filled, active -> canceled. Both are terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusFilled   Status = "filled"
	StatusCanceled Status = "canceled"
)

// Order is one bid or ask held by an exchange.
// Volume is the original quantity; Traded grows as fills are applied, so
// Volume == Remaining() + Traded holds after every operation.
type Order struct {
	ID        int64  `json:"order_id"`
	AssetName string `json:"asset_name"`
	IsBid     bool   `json:"is_bid"`
	Price     int64  `json:"price"`
	Volume    int64  `json:"volume"`
	Traded    int64  `json:"traded_volume"`
	Status    Status `json:"status"`
	PCode     string `json:"pcode"`
	EntrySeq  int64  `json:"entry_sequence"` // price/time priority tie-break, never refreshed
	Timestamp int64  `json:"timestamp"`      // unix ms
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Volume - o.Traded
}

// Active reports whether the order can still trade.
func (o *Order) Active() bool {
	return o.Status == StatusActive && o.Remaining() > 0
}

// OrderSnapshot is the frozen view of an order carried by confirmations.
// Confirmations must never hold live *Order pointers: a snapshot taken at
// emission time stays valid however the book mutates afterwards.
type OrderSnapshot struct {
	ID        int64  `json:"order_id"`
	AssetName string `json:"asset_name"`
	IsBid     bool   `json:"is_bid"`
	Price     int64  `json:"price"`
	Volume    int64  `json:"volume"`
	Traded    int64  `json:"traded_volume"`
	Remaining int64  `json:"remaining_volume"`
	Status    Status `json:"status"`
	PCode     string `json:"pcode"`
	Timestamp int64  `json:"timestamp"`
}

// Snapshot freezes the order's current state.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:        o.ID,
		AssetName: o.AssetName,
		IsBid:     o.IsBid,
		Price:     o.Price,
		Volume:    o.Volume,
		Traded:    o.Traded,
		Remaining: o.Remaining(),
		Status:    o.Status,
		PCode:     o.PCode,
		Timestamp: o.Timestamp,
	}
}
