package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/marketlab/cda-matching-engine-go/pkg/book"
	"github.com/marketlab/cda-matching-engine-go/pkg/exchange"
	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

// cmdType defines the kind of command sent to a shard.
type cmdType int

const (
	cmdEnter cmdType = iota
	cmdCancel
	cmdAccept
	cmdDepth
	cmdOrder
	cmdTrades
)

// cmd is one command routed to a shard. Every field the six operations need
// rides in one struct so the channel hot path stays allocation-light.
type cmd struct {
	typ     cmdType
	asset   string
	price   int64
	volume  int64
	isBid   bool
	pcode   string
	orderID int64
	depth   int
	reply   chan any
}

// EnterResult is returned by an enter command.
type EnterResult struct {
	OrderID int64
	Err     error
}

// CancelResult is returned by a cancel command.
type CancelResult struct {
	Err error
}

// AcceptResult is returned by an accept-immediate command.
type AcceptResult struct {
	TradeID int64
	Err     error
}

// BookSnapshot is an aggregated two-sided depth view of one asset's book.
type BookSnapshot struct {
	Asset string              `json:"asset_name"`
	Bids  []book.LevelSummary `json:"bids"`
	Asks  []book.LevelSummary `json:"asks"`
}

// OrderResult is returned by an order lookup.
type OrderResult struct {
	Order model.OrderSnapshot
	OK    bool
}

// TradesResult is returned by a trade-history query.
type TradesResult struct {
	Trades []model.Trade
	Err    error
}

// shard is the actor owning a subset of assets. All operations against one
// exchange happen inside the shard's loop goroutine, which is what gives
// each book its single-writer serialization: a second caller can never
// observe a book mid-sweep.
type shard struct {
	in        chan *cmd
	exchanges map[string]*exchange.Exchange
	seq       *model.Sequencer
	sink      exchange.ConfirmationSink
	quit      chan struct{}
	log       logrus.FieldLogger
}

// newShard creates and starts a shard loop.
func newShard(id, bufSize int, seq *model.Sequencer, sink exchange.ConfirmationSink, log logrus.FieldLogger) *shard {
	s := &shard{
		in:        make(chan *cmd, bufSize),
		exchanges: make(map[string]*exchange.Exchange),
		seq:       seq,
		sink:      sink,
		quit:      make(chan struct{}),
		log:       log.WithField("shard", id),
	}
	go s.loop()
	return s
}

func (s *shard) loop() {
	for {
		select {
		case c := <-s.in:
			switch c.typ {
			case cmdEnter:
				s.handleEnter(c)
			case cmdCancel:
				s.handleCancel(c)
			case cmdAccept:
				s.handleAccept(c)
			case cmdDepth:
				s.handleDepth(c)
			case cmdOrder:
				s.handleOrder(c)
			case cmdTrades:
				s.handleTrades(c)
			}
		case <-s.quit:
			return
		}
	}
}

func (s *shard) stop() {
	close(s.quit)
}

// getOrCreate returns the exchange for an asset, creating it on first use.
// Only enter commands create exchanges; the other handlers use lookup so a
// typo'd asset name cannot spawn an empty book.
func (s *shard) getOrCreate(asset string) *exchange.Exchange {
	ex, ok := s.exchanges[asset]
	if !ok {
		ex = exchange.New(asset, s.seq, s.sink)
		s.exchanges[asset] = ex
		s.log.WithField("asset", asset).Info("exchange created")
	}
	return ex
}

func (s *shard) lookup(asset string) (*exchange.Exchange, error) {
	ex, ok := s.exchanges[asset]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", asset, model.ErrUnknownAsset)
	}
	return ex, nil
}

func (s *shard) handleEnter(c *cmd) {
	ex := s.getOrCreate(c.asset)
	id, err := ex.EnterOrder(c.price, c.volume, c.isBid, c.pcode)
	c.reply <- EnterResult{OrderID: id, Err: err}
}

func (s *shard) handleCancel(c *cmd) {
	ex, err := s.lookup(c.asset)
	if err != nil {
		c.reply <- CancelResult{Err: err}
		return
	}
	c.reply <- CancelResult{Err: ex.CancelOrder(c.isBid, c.orderID)}
}

func (s *shard) handleAccept(c *cmd) {
	ex, err := s.lookup(c.asset)
	if err != nil {
		c.reply <- AcceptResult{Err: err}
		return
	}
	tradeID, err := ex.AcceptImmediate(c.isBid, c.orderID, c.pcode)
	c.reply <- AcceptResult{TradeID: tradeID, Err: err}
}

func (s *shard) handleDepth(c *cmd) {
	snap := BookSnapshot{Asset: c.asset}
	if ex, err := s.lookup(c.asset); err == nil {
		snap.Bids = ex.Depth(true, c.depth)
		snap.Asks = ex.Depth(false, c.depth)
	}
	c.reply <- snap
}

func (s *shard) handleOrder(c *cmd) {
	ex, err := s.lookup(c.asset)
	if err != nil {
		c.reply <- OrderResult{}
		return
	}
	snap, ok := ex.Order(c.orderID)
	c.reply <- OrderResult{Order: snap, OK: ok}
}

func (s *shard) handleTrades(c *cmd) {
	ex, err := s.lookup(c.asset)
	if err != nil {
		c.reply <- TradesResult{Err: err}
		return
	}
	c.reply <- TradesResult{Trades: ex.Trades()}
}
