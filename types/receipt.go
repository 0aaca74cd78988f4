package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/govm-net/counter/core"
)

const (
	ReceiptStatusFailed     uint8 = 0
	ReceiptStatusSuccessful uint8 = 1
)

// Receipt records the outcome of an executed transaction
type Receipt struct {
	TxHash          core.Hash       `json:"tx_hash"`
	Status          uint8           `json:"status"`
	BlockHeight     uint64          `json:"block_height"`
	From            core.Address    `json:"from"`
	To              core.Address    `json:"to"`
	ContractAddress core.Address    `json:"contract_address"`
	GasUsed         int64           `json:"gas_used"`
	Result          json.RawMessage `json:"result,omitempty"`
	Events          []Event         `json:"events,omitempty"`
	RevertReason    string          `json:"revert_reason,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// Err returns nil for a successful receipt. A reverted transaction yields a
// *core.RevertError carrying the contract's reason.
func (r *Receipt) Err() error {
	if r.Status == ReceiptStatusSuccessful {
		return nil
	}
	if r.RevertReason != "" {
		return &core.RevertError{Reason: r.RevertReason, Kind: core.ErrInvalidOperation}
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return fmt.Errorf("transaction %s failed", r.TxHash.Hex())
}

// EventField is one key/value pair of an event
type EventField struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Event is a notification emitted by a contract through core.Context.Log
type Event struct {
	Contract    core.Address `json:"contract"`
	Name        string       `json:"name"`
	BlockHeight uint64       `json:"block_height"`
	TxHash      core.Hash    `json:"tx_hash"`
	Fields      []EventField `json:"fields,omitempty"`
}

// NewEvent converts alternating key/value pairs into an Event
func NewEvent(contract core.Address, name string, keyValues ...any) (Event, error) {
	ev := Event{Contract: contract, Name: name}
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			return Event{}, fmt.Errorf("event %s: key %d is %T, not string", name, i/2, keyValues[i])
		}
		value, err := json.Marshal(keyValues[i+1])
		if err != nil {
			return Event{}, fmt.Errorf("event %s: field %s: %w", name, key, err)
		}
		ev.Fields = append(ev.Fields, EventField{Key: key, Value: value})
	}
	return ev, nil
}

// Decode unmarshals the value of field key into v
func (e Event) Decode(key string, v any) error {
	for _, f := range e.Fields {
		if f.Key == key {
			return json.Unmarshal(f.Value, v)
		}
	}
	return fmt.Errorf("event %s has no field %s", e.Name, key)
}

// KeyValues returns the fields in the alternating form accepted by slog
func (e Event) KeyValues() []any {
	kv := make([]any, 0, 2*len(e.Fields))
	for _, f := range e.Fields {
		kv = append(kv, f.Key, string(f.Value))
	}
	return kv
}
