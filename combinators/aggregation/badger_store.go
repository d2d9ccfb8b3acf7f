package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/goldentooth/flowengine/flow"
)

// BadgerMemoizeStore is a durable MemoizeStore backed by an on-disk Badger
// keyspace, grounded on the teacher's examples/memory/badger/badger.go
// cache-store adapter: keys are JSON-encoded, values are JSON-encoded, and
// a Get on a missing key reports a clean (zero, false, nil) miss rather
// than surfacing badger.ErrKeyNotFound to callers.
type BadgerMemoizeStore[K comparable, V any] struct {
	db     *badger.DB
	prefix string
}

// NewBadgerMemoizeStore wraps an already-open *badger.DB. prefix
// namespaces keys so one database can back several memoized flows
// without collisions.
func NewBadgerMemoizeStore[K comparable, V any](db *badger.DB, prefix string) *BadgerMemoizeStore[K, V] {
	return &BadgerMemoizeStore[K, V]{db: db, prefix: prefix}
}

func (s *BadgerMemoizeStore[K, V]) encodeKey(key K) ([]byte, error) {
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	return append([]byte(s.prefix+":"), raw...), nil
}

// Get looks up key, returning (zero, false, nil) on a clean miss.
func (s *BadgerMemoizeStore[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	encKey, err := s.encodeKey(key)
	if err != nil {
		return zero, false, flow.ExecutionError(ctx, "badger_memoize_store", "failed to encode key", err)
	}
	var value V
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encKey)
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			return json.Unmarshal(raw, &value)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, flow.ExecutionError(ctx, "badger_memoize_store", "badger lookup failed", err)
	}
	return value, true, nil
}

// Set persists value under key.
func (s *BadgerMemoizeStore[K, V]) Set(ctx context.Context, key K, value V) error {
	encKey, err := s.encodeKey(key)
	if err != nil {
		return flow.ExecutionError(ctx, "badger_memoize_store", "failed to encode key", err)
	}
	encValue, err := json.Marshal(value)
	if err != nil {
		return flow.ExecutionError(ctx, "badger_memoize_store", fmt.Sprintf("failed to encode value for key %v", key), err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encKey, encValue)
	})
	if err != nil {
		return flow.ExecutionError(ctx, "badger_memoize_store", "badger write failed", err)
	}
	return nil
}
