package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"certregistry/model"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// retentionKey holds the model.RetentionState written on every commit.
const retentionKey = "RETENTION"

// LedgerStore keeps registry state in the channel's world state.
// Writes land in the transaction's write set, so a failed transaction
// commits none of them.
type LedgerStore struct {
	stub shim.ChaincodeStubInterface
}

// NewLedgerStore wraps the stub of the current transaction.
func NewLedgerStore(stub shim.ChaincodeStubInterface) *LedgerStore {
	return &LedgerStore{stub: stub}
}

func (s *LedgerStore) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.stub.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading '%s': %w", key, err)
	}
	return value, nil
}

func (s *LedgerStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.stub.PutState(key, value); err != nil {
		return fmt.Errorf("ledger error writing '%s': %w", key, err)
	}
	return nil
}

// Commit puts every entry, in key order, then records the retention horizon.
// The peer discards the whole write set if the transaction fails.
func (s *LedgerStore) Commit(ctx context.Context, entries map[string][]byte, threshold, extendTo uint64) error {
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if err := s.Set(ctx, key, entries[key]); err != nil {
			return err
		}
	}
	return s.ExtendRetention(ctx, threshold, extendTo)
}

// ExtendRetention records the retention horizon, measured in seconds of
// transaction time. World state itself never expires.
func (s *LedgerStore) ExtendRetention(ctx context.Context, threshold, extendTo uint64) error {
	now, err := NewTxClock(s.stub).Now(ctx)
	if err != nil {
		return err
	}
	state, err := s.Retention()
	if err != nil {
		return err
	}
	if state != nil && state.LiveUntil >= now && state.LiveUntil-now >= threshold {
		return nil
	}

	next := model.RetentionState{LiveUntil: now + extendTo, ExtendedAt: now}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal retention state: %w", err)
	}
	if err := s.stub.PutState(retentionKey, raw); err != nil {
		return fmt.Errorf("failed to save retention state: %w", err)
	}
	logger.Debugf("Retention extended until %d", next.LiveUntil)
	return nil
}

// Retention returns the recorded horizon, or nil before the first write.
func (s *LedgerStore) Retention() (*model.RetentionState, error) {
	raw, err := s.stub.GetState(retentionKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading retention state: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var state model.RetentionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retention state: %w", err)
	}
	return &state, nil
}

// TxClock reads the transaction timestamp as unix seconds. Every endorser
// sees the same value, unlike the wall clock.
type TxClock struct {
	stub shim.ChaincodeStubInterface
}

// NewTxClock wraps the stub of the current transaction.
func NewTxClock(stub shim.ChaincodeStubInterface) *TxClock {
	return &TxClock{stub: stub}
}

func (c *TxClock) Now(_ context.Context) (uint64, error) {
	ts, err := c.stub.GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	if ts == nil || ts.GetSeconds() < 0 {
		return 0, fmt.Errorf("invalid transaction timestamp %v", ts)
	}
	return uint64(ts.GetSeconds()), nil
}
