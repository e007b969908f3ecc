package msg

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/marketlab/cda-matching-engine-go/pkg/engine"
	"github.com/marketlab/cda-matching-engine-go/pkg/exchange"
	"github.com/marketlab/cda-matching-engine-go/pkg/metrics"
)

// HoldingsChecker is the caller-owned pre-trade sufficiency check. It runs
// before an enter or accept reaches the engine; returning false rejects the
// message with an error confirmation to the sender. The engine itself never
// re-verifies funds or inventory.
type HoldingsChecker func(pcode string, isBid bool, price, volume int64, assetName string) bool

// Dispatcher validates inbound JSON messages and forwards them to a Market.
// Validation failures and engine rejections both surface as error
// confirmations to the affected participant; neither mutates any book.
type Dispatcher struct {
	market *engine.Market
	sink   exchange.ConfirmationSink
	log    logrus.FieldLogger

	// Check vetoes enters and accepts on insufficient holdings. Nil allows
	// everything.
	Check HoldingsChecker
}

// NewDispatcher wires a dispatcher to a market and the sink used for error
// confirmations.
func NewDispatcher(market *engine.Market, sink exchange.ConfirmationSink, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{market: market, sink: sink, log: log}
}

// Handle processes one raw inbound message. The returned error reports why a
// message was rejected; the engine and book state is valid either way.
func (d *Dispatcher) Handle(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.IncMessagesDropped()
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeEnter:
		return d.handleEnter(env.Payload)
	case TypeCancel:
		return d.handleCancel(env.Payload)
	case TypeAcceptImmediate:
		return d.handleAccept(env.Payload)
	default:
		metrics.IncMessagesDropped()
		return fmt.Errorf("invalid inbound message type %q", env.Type)
	}
}

func (d *Dispatcher) handleEnter(payload json.RawMessage) error {
	var m EnterMsg
	if err := decodePayload(TypeEnter, payload, &m); err != nil {
		return d.reject(&m, err)
	}
	if err := m.validate(); err != nil {
		return d.reject(&m, err)
	}

	if d.Check != nil && !d.Check(*m.PCode, *m.IsBid, *m.Price, *m.Volume, *m.AssetName) {
		if *m.IsBid {
			d.sink.Error(*m.PCode, "Order rejected: insufficient available cash")
		} else {
			d.sink.Error(*m.PCode, fmt.Sprintf("Order rejected: insufficient available amount of asset %s", *m.AssetName))
		}
		metrics.IncMessagesDropped()
		return nil
	}

	if _, err := d.market.EnterOrder(*m.AssetName, *m.Price, *m.Volume, *m.IsBid, *m.PCode); err != nil {
		d.sink.Error(*m.PCode, fmt.Sprintf("Unable to enter order: %v", err))
		metrics.IncMessagesDropped()
		return err
	}
	return nil
}

func (d *Dispatcher) handleCancel(payload json.RawMessage) error {
	var m CancelMsg
	if err := decodePayload(TypeCancel, payload, &m); err != nil {
		return d.rejectMessage(m.PCode, err)
	}
	if err := m.validate(); err != nil {
		return d.rejectMessage(m.PCode, err)
	}

	if err := d.market.CancelOrder(*m.AssetName, *m.IsBid, *m.OrderID); err != nil {
		d.sink.Error(*m.PCode, fmt.Sprintf("Unable to cancel order: %v", err))
		metrics.IncMessagesDropped()
		return err
	}
	return nil
}

func (d *Dispatcher) handleAccept(payload json.RawMessage) error {
	var m AcceptMsg
	if err := decodePayload(TypeAcceptImmediate, payload, &m); err != nil {
		return d.rejectMessage(m.PCode, err)
	}
	if err := m.validate(); err != nil {
		return d.rejectMessage(m.PCode, err)
	}

	if d.Check != nil {
		target, ok := d.market.Order(*m.AssetName, *m.OrderID)
		// the acceptor takes the opposite side of the target order
		if ok && !d.Check(*m.PCode, !target.IsBid, target.Price, target.Remaining, *m.AssetName) {
			if target.IsBid {
				d.sink.Error(*m.PCode, fmt.Sprintf("Cannot accept order: insufficient available amount of asset %s", *m.AssetName))
			} else {
				d.sink.Error(*m.PCode, "Cannot accept order: insufficient available cash")
			}
			metrics.IncMessagesDropped()
			return nil
		}
	}

	if _, err := d.market.AcceptImmediate(*m.AssetName, *m.IsBid, *m.OrderID, *m.PCode); err != nil {
		d.sink.Error(*m.PCode, fmt.Sprintf("Unable to accept order: %v", err))
		metrics.IncMessagesDropped()
		return err
	}
	return nil
}

// reject reports a validation failure on an enter message. The sender gets
// an error confirmation when the payload carried a usable pcode.
func (d *Dispatcher) reject(m *EnterMsg, err error) error {
	var pcode *string
	if m != nil {
		pcode = m.PCode
	}
	return d.rejectMessage(pcode, err)
}

func (d *Dispatcher) rejectMessage(pcode *string, err error) error {
	metrics.IncMessagesDropped()
	if pcode != nil && *pcode != "" {
		d.sink.Error(*pcode, err.Error())
	} else {
		d.log.WithField("reason", err.Error()).Warn("inbound message rejected")
	}
	return err
}
