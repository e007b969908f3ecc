// Package engine provides the concurrency layer around the per-asset
// exchanges: a Market routes operations to actor shards so that operations
// against one book are strictly serialized while distinct assets run in
// parallel.
package engine

import (
	"hash/fnv"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/marketlab/cda-matching-engine-go/pkg/exchange"
	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

// Market routes per-asset operations to N shards. Every operation is
// synchronous: matching completes within the call that triggered it and the
// reply carries the outcome.
type Market struct {
	shards []*shard
	n      int
	seq    *model.Sequencer
}

// NewMarket creates a market with numShards worker shards and channel buffer
// size buf. All confirmations are emitted through sink from inside the shard
// loops.
func NewMarket(numShards, buf int, sink exchange.ConfirmationSink, log logrus.FieldLogger) *Market {
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Market{
		shards: make([]*shard, numShards),
		n:      numShards,
		seq:    model.NewSequencer(0),
	}
	for i := 0; i < numShards; i++ {
		m.shards[i] = newShard(i, buf, m.seq, sink, log)
	}
	return m
}

// Stop shuts down every shard loop.
func (m *Market) Stop() {
	for _, s := range m.shards {
		s.stop()
	}
}

// routeIdx returns the shard index for an asset. The same asset always maps
// to the same shard, which is what pins each book to a single writer.
func (m *Market) routeIdx(asset string) int {
	h := fnv.New32a()
	h.Write([]byte(asset))
	return int(h.Sum32()) % m.n
}

func (m *Market) send(idx int, c *cmd) any {
	c.reply = make(chan any, 1)
	m.shards[idx].in <- c
	return <-c.reply
}

// EnterOrder submits a new order for an asset and returns its id. The
// exchange for the asset is created on first use.
func (m *Market) EnterOrder(asset string, price, volume int64, isBid bool, pcode string) (int64, error) {
	r := m.send(m.routeIdx(asset), &cmd{
		typ:    cmdEnter,
		asset:  asset,
		price:  price,
		volume: volume,
		isBid:  isBid,
		pcode:  pcode,
	}).(EnterResult)
	return r.OrderID, r.Err
}

// CancelOrder cancels an active order on the stated side of an asset's book.
func (m *Market) CancelOrder(asset string, isBid bool, orderID int64) error {
	r := m.send(m.routeIdx(asset), &cmd{
		typ:     cmdCancel,
		asset:   asset,
		isBid:   isBid,
		orderID: orderID,
	}).(CancelResult)
	return r.Err
}

// AcceptImmediate trades the full remaining volume of a named resting order
// on behalf of the acceptor. Returns the trade id.
func (m *Market) AcceptImmediate(asset string, targetIsBid bool, orderID int64, pcode string) (int64, error) {
	r := m.send(m.routeIdx(asset), &cmd{
		typ:     cmdAccept,
		asset:   asset,
		isBid:   targetIsBid,
		orderID: orderID,
		pcode:   pcode,
	}).(AcceptResult)
	return r.TradeID, r.Err
}

// BookDepth returns an aggregated two-sided snapshot of one asset's book.
// The query runs through the shard loop, so it never observes a mid-sweep
// book.
func (m *Market) BookDepth(asset string, depth int) BookSnapshot {
	return m.send(m.routeIdx(asset), &cmd{
		typ:   cmdDepth,
		asset: asset,
		depth: depth,
	}).(BookSnapshot)
}

// Order looks up a snapshot of any order the asset's exchange has seen.
func (m *Market) Order(asset string, orderID int64) (model.OrderSnapshot, bool) {
	r := m.send(m.routeIdx(asset), &cmd{
		typ:     cmdOrder,
		asset:   asset,
		orderID: orderID,
	}).(OrderResult)
	return r.Order, r.OK
}

// Trades returns the trade history of one asset in execution order.
func (m *Market) Trades(asset string) ([]model.Trade, error) {
	r := m.send(m.routeIdx(asset), &cmd{
		typ:   cmdTrades,
		asset: asset,
	}).(TradesResult)
	return r.Trades, r.Err
}
