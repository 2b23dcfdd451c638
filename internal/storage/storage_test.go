package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newTestStorage creates a temporary on-disk storage for testing.
func newTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	s, err := New(filepath.Join(dir, "db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to create storage: %v", err)
	}

	cleanup := func() {
		s.Close()
		os.RemoveAll(dir)
	}

	return s, cleanup
}

// newMemStorage creates an in-memory storage closed at test end.
func newMemStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSetAndGet(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	key := []byte("test-key")
	value := []byte("test-value")

	if err := s.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newMemStorage(t)

	got, err := s.Get(context.Background(), []byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q, want nil", got)
	}
}

func TestDelete(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	key := []byte("to-delete")

	if err := s.Set(ctx, key, []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ok, err := s.Has(ctx, key)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}

	if ok {
		t.Error("key still present after Delete")
	}
}

func TestSetBatch(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	pairs := []KeyValue{
		{Key: []byte("batch-1"), Value: []byte("value-1")},
		{Key: []byte("batch-2"), Value: []byte("value-2")},
		{Key: []byte("batch-3"), Value: []byte("value-3")},
	}

	if err := s.SetBatch(ctx, pairs); err != nil {
		t.Fatalf("SetBatch failed: %v", err)
	}

	for _, kv := range pairs {
		got, err := s.Get(ctx, kv.Key)
		if err != nil {
			t.Fatalf("Get failed for %q: %v", kv.Key, err)
		}

		if !bytes.Equal(got, kv.Value) {
			t.Errorf("Get(%q) = %q, want %q", kv.Key, got, kv.Value)
		}
	}
}

// TestIteratePrefixScoped checks that prefix scans stay inside one scope and space.
func TestIteratePrefixScoped(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	a := Scope{1}
	b := Scope{2}

	for _, key := range [][]byte{
		Key(a, SpaceNote, []byte("x")),
		Key(a, SpaceNote, []byte("y")),
		Key(a, SpaceApproval, []byte("x")),
		Key(b, SpaceNote, []byte("z")),
	} {
		if err := s.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	count := 0
	err := s.IteratePrefix(ctx, SpacePrefix(a, SpaceNote), func(key, value []byte) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	if count != 2 {
		t.Errorf("visited %d keys, want 2", count)
	}

	count = 0
	_ = s.IteratePrefix(ctx, ScopePrefix(a), func(key, value []byte) error {
		count++
		return nil
	})

	if count != 3 {
		t.Errorf("scope scan visited %d keys, want 3", count)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x01, 0xFF}, []byte{0x02}},
		{[]byte{0xFF, 0xFF}, nil},
	}

	for _, tt := range tests {
		got := prefixUpperBound(tt.prefix)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("prefixUpperBound(%x) = %x, want %x", tt.prefix, got, tt.want)
		}
	}
}

// TestRecordRoundTrip stores and loads a CBOR record.
func TestRecordRoundTrip(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	type record struct {
		Owner []byte `cbor:"1,keyasint"`
		Value uint64 `cbor:"2,keyasint"`
	}

	key := Key(Scope{9}, SpaceMeta)
	in := record{Owner: []byte{1, 2, 3}, Value: 42}

	if err := s.PutRecord(ctx, key, in); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	var out record
	ok, err := s.GetRecord(ctx, key, &out)
	if err != nil || !ok {
		t.Fatalf("GetRecord = %v, %v", ok, err)
	}

	if out.Value != 42 || !bytes.Equal(out.Owner, in.Owner) {
		t.Errorf("GetRecord returned %+v, want %+v", out, in)
	}

	ok, err = s.GetRecord(ctx, Key(Scope{9}, SpaceNote), &out)
	if err != nil || ok {
		t.Errorf("GetRecord on missing key = %v, %v", ok, err)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	m := map[string]uint64{"b": 2, "a": 1, "c": 3}

	first, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, _ := Encode(m)
		if !bytes.Equal(first, again) {
			t.Fatal("Encode is not deterministic")
		}
	}
}

var errAbort = errors.New("abort")
