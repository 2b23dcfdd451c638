package storage

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// txKey is the context key carrying the active transaction.
type txKey struct{}

// tx is an indexed batch bound to the storage that opened it.
type tx struct {
	owner *Storage
	batch *pebble.Batch
}

// txFrom returns the transaction of s carried by ctx, if any.
func txFrom(ctx context.Context, s *Storage) *tx {
	t, ok := ctx.Value(txKey{}).(*tx)
	if !ok || t.owner != s {
		return nil
	}

	return t
}

// InTx reports whether ctx carries an open transaction of s.
func (s *Storage) InTx(ctx context.Context) bool {
	return txFrom(ctx, s) != nil
}

// Update runs fn inside a transaction and commits it if fn succeeds.
// Reads through the context passed to fn observe the transaction's own writes.
// A nested call joins the enclosing transaction: the outermost Update owns
// the commit, so an error must be propagated for the whole unit to roll back.
// Outermost transactions are serialized.
func (s *Storage) Update(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.InTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(context.WithValue(ctx, txKey{}, &tx{owner: s, batch: batch})); err != nil {
		return err
	}

	return batch.Commit(pebble.NoSync)
}
