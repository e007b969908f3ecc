package exchange

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

// MakerFill pairs a making order's post-fill snapshot with the price and
// volume that transacted against it in one trade.
type MakerFill struct {
	Order      model.OrderSnapshot `json:"order"`
	FillPrice  int64               `json:"fill_price"`
	FillVolume int64               `json:"fill_volume"`
}

// TradeConfirmation is the payload of a confirm_trade event: one taking
// order matched against one or more making orders, each carrying its own
// fill price and volume.
type TradeConfirmation struct {
	TradeID      int64               `json:"trade_id"`
	Timestamp    int64               `json:"timestamp"`
	AssetName    string              `json:"asset_name"`
	TakingOrder  model.OrderSnapshot `json:"taking_order"`
	MakingOrders []MakerFill         `json:"making_orders"`
}

// ConfirmationSink receives every outbound event an exchange produces. The
// session layer implements it to update holdings and forward confirmations
// to clients; the engine only calls it from inside the single-writer loop,
// so implementations are never invoked concurrently for the same asset.
type ConfirmationSink interface {
	ConfirmEnter(order model.OrderSnapshot)
	ConfirmTrade(trade TradeConfirmation)
	ConfirmCancel(order model.OrderSnapshot)
	Error(pcode, message string)
}

// LogSink writes every confirmation to a logrus logger. Useful as a default
// sink and as the tail of a Fanout.
type LogSink struct {
	Log logrus.FieldLogger
}

func NewLogSink(log logrus.FieldLogger) *LogSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSink{Log: log}
}

func (s *LogSink) ConfirmEnter(order model.OrderSnapshot) {
	s.Log.WithFields(logrus.Fields{
		"orderId":   order.ID,
		"asset":     order.AssetName,
		"isBid":     order.IsBid,
		"price":     order.Price,
		"remaining": order.Remaining,
		"pcode":     order.PCode,
	}).Info("confirm_enter")
}

func (s *LogSink) ConfirmTrade(trade TradeConfirmation) {
	s.Log.WithFields(logrus.Fields{
		"tradeId":       trade.TradeID,
		"asset":         trade.AssetName,
		"takingOrderId": trade.TakingOrder.ID,
		"makers":        len(trade.MakingOrders),
	}).Info("confirm_trade")
}

func (s *LogSink) ConfirmCancel(order model.OrderSnapshot) {
	s.Log.WithFields(logrus.Fields{
		"orderId":   order.ID,
		"asset":     order.AssetName,
		"remaining": order.Remaining,
		"pcode":     order.PCode,
	}).Info("confirm_cancel")
}

func (s *LogSink) Error(pcode, message string) {
	s.Log.WithField("pcode", pcode).Warn(message)
}

// RecordingSink collects every event it receives. It is safe for concurrent
// use so a single instance can sit behind a whole market.
type RecordingSink struct {
	mu      sync.Mutex
	Enters  []model.OrderSnapshot
	Trades  []TradeConfirmation
	Cancels []model.OrderSnapshot
	Errors  []SinkError
}

// SinkError is one recorded error event.
type SinkError struct {
	PCode   string
	Message string
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) ConfirmEnter(order model.OrderSnapshot) {
	s.mu.Lock()
	s.Enters = append(s.Enters, order)
	s.mu.Unlock()
}

func (s *RecordingSink) ConfirmTrade(trade TradeConfirmation) {
	s.mu.Lock()
	s.Trades = append(s.Trades, trade)
	s.mu.Unlock()
}

func (s *RecordingSink) ConfirmCancel(order model.OrderSnapshot) {
	s.mu.Lock()
	s.Cancels = append(s.Cancels, order)
	s.mu.Unlock()
}

func (s *RecordingSink) Error(pcode, message string) {
	s.mu.Lock()
	s.Errors = append(s.Errors, SinkError{PCode: pcode, Message: message})
	s.mu.Unlock()
}

// EnterSnapshots returns a copy of every recorded enter confirmation.
func (s *RecordingSink) EnterSnapshots() []model.OrderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderSnapshot, len(s.Enters))
	copy(out, s.Enters)
	return out
}

// Counts returns how many events of each kind have been recorded.
func (s *RecordingSink) Counts() (enters, trades, cancels, errors int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Enters), len(s.Trades), len(s.Cancels), len(s.Errors)
}

// Fanout forwards every event to each sink in order.
type Fanout []ConfirmationSink

func (f Fanout) ConfirmEnter(order model.OrderSnapshot) {
	for _, s := range f {
		s.ConfirmEnter(order)
	}
}

func (f Fanout) ConfirmTrade(trade TradeConfirmation) {
	for _, s := range f {
		s.ConfirmTrade(trade)
	}
}

func (f Fanout) ConfirmCancel(order model.OrderSnapshot) {
	for _, s := range f {
		s.ConfirmCancel(order)
	}
}

func (f Fanout) Error(pcode, message string) {
	for _, s := range f {
		s.Error(pcode, message)
	}
}
