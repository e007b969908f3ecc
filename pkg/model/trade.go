package model

// Fill freezes one maker execution inside a trade: the resting order's id and
// owner plus the price and volume that actually transacted. Fills reference
// orders by id, never by pointer, so a trade record is immutable once stored.
type Fill struct {
	MakingOrderID int64  `json:"making_order_id"`
	PCode         string `json:"pcode"`
	IsBid         bool   `json:"is_bid"`
	Price         int64  `json:"fill_price"`
	Volume        int64  `json:"fill_volume"`
}

// Trade records one crossing event: a single taking order matched against one
// or more making orders. A crossing sweep produces exactly one Trade however
// many makers it consumed.
type Trade struct {
	ID            int64  `json:"trade_id"`
	AssetName     string `json:"asset_name"`
	Timestamp     int64  `json:"timestamp"` // unix ms
	TakingOrderID int64  `json:"taking_order_id"`
	Fills         []Fill `json:"fills"`
}

// Volume returns the total quantity transacted across all fills.
func (t *Trade) Volume() int64 {
	var total int64
	for _, f := range t.Fills {
		total += f.Volume
	}
	return total
}
