// Package msg is the schema-check boundary on messages entering the engine.
// Raw JSON envelopes are decoded, validated field by field, and dispatched;
// anything malformed is rejected before it can touch a book.
package msg

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Message type names accepted in an envelope.
const (
	TypeEnter           = "enter"
	TypeCancel          = "cancel"
	TypeAcceptImmediate = "accept_immediate"
)

// Envelope is the outer shape of every inbound message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InvalidMessageError reports a missing or mistyped field in an inbound
// message.
type InvalidMessageError struct {
	MessageName string
	FieldName   string
	FieldType   string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("incoming message validation failed: %s message should have a field %q of type %q",
		e.MessageName, e.FieldName, e.FieldType)
}

// EnterMsg asks the engine to enter a new order. Pointer fields distinguish
// absent from zero-valued so validation can insist on every field.
type EnterMsg struct {
	Price     *int64  `json:"price"`
	Volume    *int64  `json:"volume"`
	IsBid     *bool   `json:"is_bid"`
	PCode     *string `json:"pcode"`
	AssetName *string `json:"asset_name"`
}

func (m *EnterMsg) validate() error {
	switch {
	case m.Price == nil:
		return &InvalidMessageError{TypeEnter, "price", "int"}
	case m.Volume == nil:
		return &InvalidMessageError{TypeEnter, "volume", "int"}
	case m.IsBid == nil:
		return &InvalidMessageError{TypeEnter, "is_bid", "bool"}
	case m.PCode == nil:
		return &InvalidMessageError{TypeEnter, "pcode", "string"}
	case m.AssetName == nil:
		return &InvalidMessageError{TypeEnter, "asset_name", "string"}
	}
	return nil
}

// CancelMsg asks the engine to cancel an active order.
type CancelMsg struct {
	OrderID   *int64  `json:"order_id"`
	IsBid     *bool   `json:"is_bid"`
	PCode     *string `json:"pcode"`
	AssetName *string `json:"asset_name"`
}

func (m *CancelMsg) validate() error {
	switch {
	case m.OrderID == nil:
		return &InvalidMessageError{TypeCancel, "order_id", "int"}
	case m.IsBid == nil:
		return &InvalidMessageError{TypeCancel, "is_bid", "bool"}
	case m.PCode == nil:
		return &InvalidMessageError{TypeCancel, "pcode", "string"}
	case m.AssetName == nil:
		return &InvalidMessageError{TypeCancel, "asset_name", "string"}
	}
	return nil
}

// AcceptMsg asks the engine to trade immediately against one named order.
type AcceptMsg struct {
	OrderID   *int64  `json:"order_id"`
	IsBid     *bool   `json:"is_bid"`
	PCode     *string `json:"pcode"`
	AssetName *string `json:"asset_name"`
}

func (m *AcceptMsg) validate() error {
	switch {
	case m.OrderID == nil:
		return &InvalidMessageError{TypeAcceptImmediate, "order_id", "int"}
	case m.IsBid == nil:
		return &InvalidMessageError{TypeAcceptImmediate, "is_bid", "bool"}
	case m.PCode == nil:
		return &InvalidMessageError{TypeAcceptImmediate, "pcode", "string"}
	case m.AssetName == nil:
		return &InvalidMessageError{TypeAcceptImmediate, "asset_name", "string"}
	}
	return nil
}

// decodePayload unmarshals a payload into a message struct, converting JSON
// type mismatches into InvalidMessageError.
func decodePayload(name string, payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return &InvalidMessageError{name, "payload", "object"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &InvalidMessageError{name, typeErr.Field, jsonTypeName(typeErr.Type)}
		}
		return fmt.Errorf("decode %s payload: %w", name, err)
	}
	return nil
}

// jsonTypeName renders the expected Go type as the wire-level type name used
// in validation errors.
func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	default:
		return t.String()
	}
}
