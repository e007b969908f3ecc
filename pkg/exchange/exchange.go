// Package exchange implements a continuous double-auction matching engine
// for a single asset: orders enter, cross under price/time priority, and
// every state change is reported outward through a ConfirmationSink.
package exchange

import (
	"fmt"
	"time"

	"github.com/marketlab/cda-matching-engine-go/pkg/book"
	"github.com/marketlab/cda-matching-engine-go/pkg/metrics"
	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

// Exchange owns the order book for one (market, asset) pair. It is NOT safe
// for concurrent use: callers must serialize all operations against one
// instance (see pkg/engine for the shard loop that does this).
type Exchange struct {
	asset  string
	book   *book.Book
	seq    *model.Sequencer
	sink   ConfirmationSink
	trades []model.Trade
}

// New creates an exchange for one asset. The sequencer is shared across
// exchanges so ids stay unique process-wide.
func New(asset string, seq *model.Sequencer, sink ConfirmationSink) *Exchange {
	return &Exchange{
		asset: asset,
		book:  book.New(asset),
		seq:   seq,
		sink:  sink,
	}
}

func (e *Exchange) Asset() string {
	return e.asset
}

// EnterOrder creates a new active order and runs the crossing sweep against
// the opposing side. Any residual volume rests on the book at its original
// priority. Exactly one trade confirmation is emitted when at least one fill
// occurred, covering every fill of this call.
func (e *Exchange) EnterOrder(price, volume int64, isBid bool, pcode string) (int64, error) {
	if err := model.ValidateEnter(price, volume, pcode, e.asset); err != nil {
		return 0, err
	}

	id := e.seq.Next()
	taker := &model.Order{
		ID:        id,
		AssetName: e.asset,
		IsBid:     isBid,
		Price:     price,
		Volume:    volume,
		Status:    model.StatusActive,
		PCode:     pcode,
		EntrySeq:  id,
		Timestamp: time.Now().UnixMilli(),
	}
	e.book.Track(taker)

	makers := e.sweep(taker)

	if taker.Remaining() > 0 {
		e.book.Insert(taker)
		e.sink.ConfirmEnter(taker.Snapshot())
	} else {
		taker.Status = model.StatusFilled
	}
	metrics.IncOrdersEntered()

	if len(makers) > 0 {
		e.recordTrade(taker, makers)
	}
	return taker.ID, nil
}

// sweep matches the taker against the opposing side in priority order. Each
// fill executes at the maker's resting price. The sweep stops when the taker
// is exhausted or the opposing best no longer crosses. Fully consumed makers
// leave the book; partial makers keep their entry sequence.
func (e *Exchange) sweep(taker *model.Order) []MakerFill {
	var makers []MakerFill
	for taker.Remaining() > 0 {
		maker := e.book.Best(!taker.IsBid)
		if maker == nil || !crosses(taker, maker) {
			break
		}

		fill := min(taker.Remaining(), maker.Remaining())
		taker.Traded += fill
		maker.Traded += fill

		if maker.Remaining() == 0 {
			maker.Status = model.StatusFilled
			e.book.Remove(maker.ID)
		}

		makers = append(makers, MakerFill{
			Order:      maker.Snapshot(),
			FillPrice:  maker.Price,
			FillVolume: fill,
		})
	}
	return makers
}

// crosses reports whether the taker's limit reaches the maker's price.
func crosses(taker, maker *model.Order) bool {
	if taker.IsBid {
		return maker.Price <= taker.Price
	}
	return maker.Price >= taker.Price
}

func (e *Exchange) recordTrade(taker *model.Order, makers []MakerFill) {
	trade := model.Trade{
		ID:            e.seq.Next(),
		AssetName:     e.asset,
		Timestamp:     time.Now().UnixMilli(),
		TakingOrderID: taker.ID,
		Fills:         make([]model.Fill, 0, len(makers)),
	}
	for _, m := range makers {
		trade.Fills = append(trade.Fills, model.Fill{
			MakingOrderID: m.Order.ID,
			PCode:         m.Order.PCode,
			IsBid:         m.Order.IsBid,
			Price:         m.FillPrice,
			Volume:        m.FillVolume,
		})
	}
	e.trades = append(e.trades, trade)

	e.sink.ConfirmTrade(TradeConfirmation{
		TradeID:      trade.ID,
		Timestamp:    trade.Timestamp,
		AssetName:    e.asset,
		TakingOrder:  taker.Snapshot(),
		MakingOrders: makers,
	})
	metrics.IncTradesExecuted()
	metrics.AddVolumeTraded(trade.Volume())
}

// CancelOrder deactivates an active resting order on the stated side and
// removes it from the book. Canceling an absent, inactive or wrong-side id
// fails with ErrOrderNotFound and has no side effect.
func (e *Exchange) CancelOrder(isBid bool, orderID int64) error {
	o, ok := e.book.Get(orderID)
	if !ok || !o.Active() || o.IsBid != isBid {
		return fmt.Errorf("cancel order %d: %w", orderID, model.ErrOrderNotFound)
	}

	e.book.Remove(orderID)
	o.Status = model.StatusCanceled
	e.sink.ConfirmCancel(o.Snapshot())
	metrics.IncOrdersCanceled()
	return nil
}

// AcceptImmediate trades the full remaining volume of one named resting
// order at its own price. A synthetic, already-filled order on the opposite
// side is attributed to the acceptor as the taker; nothing rests on the book
// and no partial fill is possible. Returns the trade id.
func (e *Exchange) AcceptImmediate(targetIsBid bool, targetID int64, pcode string) (int64, error) {
	target, ok := e.book.Get(targetID)
	if !ok || target.IsBid != targetIsBid {
		return 0, fmt.Errorf("accept order %d: %w", targetID, model.ErrOrderNotFound)
	}
	if !target.Active() {
		return 0, fmt.Errorf("accept order %d: %w", targetID, model.ErrOrderInactive)
	}

	volume := target.Remaining()
	e.book.Remove(targetID)
	target.Traded = target.Volume
	target.Status = model.StatusFilled

	id := e.seq.Next()
	taker := &model.Order{
		ID:        id,
		AssetName: e.asset,
		IsBid:     !targetIsBid,
		Price:     target.Price,
		Volume:    volume,
		Traded:    volume,
		Status:    model.StatusFilled,
		PCode:     pcode,
		EntrySeq:  id,
		Timestamp: time.Now().UnixMilli(),
	}
	e.book.Track(taker)
	metrics.IncOrdersEntered()

	makers := []MakerFill{{
		Order:      target.Snapshot(),
		FillPrice:  target.Price,
		FillVolume: volume,
	}}
	e.recordTrade(taker, makers)

	return e.trades[len(e.trades)-1].ID, nil
}

//
// Queries. Same single-writer rule as the commands above.
//

// Order returns a snapshot of any order this exchange has seen.
func (e *Exchange) Order(id int64) (model.OrderSnapshot, bool) {
	o, ok := e.book.Get(id)
	if !ok {
		return model.OrderSnapshot{}, false
	}
	return o.Snapshot(), true
}

// Best returns a snapshot of the highest-priority resting order on one side.
func (e *Exchange) Best(isBid bool) (model.OrderSnapshot, bool) {
	o := e.book.Best(isBid)
	if o == nil {
		return model.OrderSnapshot{}, false
	}
	return o.Snapshot(), true
}

// Depth aggregates up to max price levels of one side, best first.
func (e *Exchange) Depth(isBid bool, max int) []book.LevelSummary {
	return e.book.Depth(isBid, max)
}

// Resting returns the number of resting orders on one side.
func (e *Exchange) Resting(isBid bool) int {
	return e.book.Len(isBid)
}

// Trades returns a copy of every trade executed on this exchange, in
// execution order.
func (e *Exchange) Trades() []model.Trade {
	out := make([]model.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
