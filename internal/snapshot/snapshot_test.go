package snapshot

import (
	"bytes"
	"context"
	"testing"

	"NoteVault/internal/storage"
)

func newMemStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

func scope(b byte) storage.Scope {
	var s storage.Scope
	s[0] = b
	return s
}

// TestCaptureRestore tests moving an instance's entries to a new scope.
func TestCaptureRestore(t *testing.T) {
	ctx := context.Background()
	db := newMemStorage(t)

	from, to, other := scope(1), scope(2), scope(3)

	_ = db.Set(ctx, storage.Key(from, storage.SpaceNote, []byte("a")), []byte("note a"))
	_ = db.Set(ctx, storage.Key(from, storage.SpaceMeta, []byte("init")), []byte{1})
	_ = db.Set(ctx, storage.Key(other, storage.SpaceNote, []byte("x")), []byte("foreign"))

	state, err := Capture(ctx, db, from, scope(9))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if len(state.Entries) != 2 {
		t.Fatalf("captured %d entries, want 2", len(state.Entries))
	}

	if err := Restore(ctx, db, to, state); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, _ := db.Get(ctx, storage.Key(to, storage.SpaceNote, []byte("a")))
	if string(got) != "note a" {
		t.Errorf("restored note = %q", got)
	}

	if ok, _ := db.Has(ctx, storage.Key(to, storage.SpaceNote, []byte("x"))); ok {
		t.Error("foreign entry leaked into restored scope")
	}
}

// TestEncodeDecode tests the compressed round trip and deterministic ordering.
func TestEncodeDecode(t *testing.T) {
	state := &State{
		Template: scope(7),
		Source:   scope(8),
		Entries: []KV{
			{Key: []byte{2, 'b'}, Value: []byte("second")},
			{Key: []byte{1, 'a'}, Value: []byte("first")},
			{Key: []byte{3}, Value: nil},
		},
	}

	data, err := Encode(state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if out.Template != state.Template || out.Source != state.Source {
		t.Errorf("header = %x %x", out.Template, out.Source)
	}

	if len(out.Entries) != 3 {
		t.Fatalf("decoded %d entries", len(out.Entries))
	}

	if !bytes.Equal(out.Entries[0].Key, []byte{1, 'a'}) || string(out.Entries[1].Value) != "second" {
		t.Errorf("entries not sorted: %+v", out.Entries)
	}

	again, _ := Encode(out)
	if !bytes.Equal(again, data) {
		t.Error("encoding is not deterministic")
	}
}

// TestDecodeDetectsTampering tests the checksum.
func TestDecodeDetectsTampering(t *testing.T) {
	state := &State{Template: scope(1), Source: scope(2), Entries: []KV{{Key: []byte("k"), Value: []byte("balance=100")}}}

	raw := build(state)

	i := bytes.Index(raw, []byte("balance=100"))
	if i < 0 {
		t.Fatal("value not found in table")
	}

	raw[i+len("balance=")] = '9'

	data, err := compress(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	if _, err := Decode(data); err == nil {
		t.Fatal("tampered snapshot decoded")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte("not zstd")); err == nil {
		t.Fatal("garbage decoded")
	}
}
