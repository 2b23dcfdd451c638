// Package snapshot captures and restores the key space of one instance.
//
// A snapshot is a FlatBuffers table holding the instance's entries with keys
// relative to its scope, sorted, plus a blake3 checksum over the canonical
// content. Encoded snapshots are zstd compressed.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"NoteVault/internal/storage"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion = 1

// KV is one entry, its key relative to the instance scope.
type KV struct {
	Key   []byte
	Value []byte
}

// State is the decoded content of an instance.
type State struct {
	Template storage.Scope // Template is the template the state was written by
	Source   storage.Scope // Source is the instance the state was captured from
	Entries  []KV
}

// Capture reads every entry of scope. Inside a transaction it observes
// the transaction's own writes.
func Capture(ctx context.Context, db *storage.Storage, source, template storage.Scope) (*State, error) {
	prefix := storage.ScopePrefix(source)
	state := &State{Template: template, Source: source}

	err := db.IteratePrefix(ctx, prefix, func(key, value []byte) error {
		// Copy key and value to avoid iterator invalidation
		k := make([]byte, len(key)-len(prefix))
		copy(k, key[len(prefix):])

		v := make([]byte, len(value))
		copy(v, value)

		state.Entries = append(state.Entries, KV{Key: k, Value: v})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate scope:\n%w", err)
	}

	return state, nil
}

// Restore writes the entries of state under scope.
func Restore(ctx context.Context, db *storage.Storage, scope storage.Scope, state *State) error {
	prefix := storage.ScopePrefix(scope)
	pairs := make([]storage.KeyValue, len(state.Entries))

	for i, e := range state.Entries {
		key := make([]byte, 0, len(prefix)+len(e.Key))
		key = append(key, prefix...)
		key = append(key, e.Key...)

		pairs[i] = storage.KeyValue{Key: key, Value: e.Value}
	}

	if err := db.SetBatch(ctx, pairs); err != nil {
		return fmt.Errorf("write entries:\n%w", err)
	}

	return nil
}

// Encode builds the FlatBuffers table and compresses it.
func Encode(state *State) ([]byte, error) {
	return compress(build(state))
}

// Decode decompresses a snapshot and verifies its checksum.
func Decode(data []byte) (*State, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress:\n%w", err)
	}

	if len(raw) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(raw))
	}

	fb := GetRootAsSnapshot(raw, 0)

	if v := fb.Version(); v != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", v)
	}

	state := &State{Entries: make([]KV, fb.EntriesLength())}

	if err := copyScope(&state.Template, fb.TemplateBytes()); err != nil {
		return nil, fmt.Errorf("template:\n%w", err)
	}

	if err := copyScope(&state.Source, fb.SourceBytes()); err != nil {
		return nil, fmt.Errorf("source:\n%w", err)
	}

	// Copy bytes: the table aliases the decompressed buffer
	var e Entry
	for i := range state.Entries {
		if !fb.Entries(&e, i) {
			return nil, fmt.Errorf("read entry %d", i)
		}

		state.Entries[i] = KV{
			Key:   append([]byte(nil), e.KeyBytes()...),
			Value: append([]byte(nil), e.ValueBytes()...),
		}
	}

	computed := checksum(fb.Version(), state)
	if !bytes.Equal(computed[:], fb.ChecksumBytes()) {
		return nil, fmt.Errorf("checksum mismatch")
	}

	return state, nil
}

func copyScope(dst *storage.Scope, src []byte) error {
	if len(src) != storage.ScopeSize {
		return fmt.Errorf("invalid scope length: %d", len(src))
	}

	copy(dst[:], src)

	return nil
}

// build creates the FlatBuffers table with checksum.
func build(state *State) []byte {
	// Sort entries for a deterministic checksum
	sort.Slice(state.Entries, func(i, j int) bool {
		return bytes.Compare(state.Entries[i].Key, state.Entries[j].Key) < 0
	})

	sum := checksum(snapshotVersion, state)

	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(state.Entries))
	for i, e := range state.Entries {
		keyOffset := builder.CreateByteVector(e.Key)
		valueOffset := builder.CreateByteVector(e.Value)

		EntryStart(builder)
		EntryAddKey(builder, keyOffset)
		EntryAddValue(builder, valueOffset)
		offsets[i] = EntryEnd(builder)
	}

	SnapshotStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entries := builder.EndVector(len(offsets))

	template := builder.CreateByteVector(state.Template[:])
	source := builder.CreateByteVector(state.Source[:])
	checksumOffset := builder.CreateByteVector(sum[:])

	SnapshotStart(builder)
	SnapshotAddVersion(builder, snapshotVersion)
	SnapshotAddTemplate(builder, template)
	SnapshotAddSource(builder, source)
	SnapshotAddEntries(builder, entries)
	SnapshotAddChecksum(builder, checksumOffset)
	builder.Finish(SnapshotEnd(builder))

	return builder.FinishedBytes()
}

// checksum computes a blake3 hash over the canonical content.
// Format: version (4 bytes) + template + source + for each entry: len-prefixed key and value
func checksum(version uint32, state *State) [32]byte {
	hasher := blake3.New()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], version)
	hasher.Write(buf[:])
	hasher.Write(state.Template[:])
	hasher.Write(state.Source[:])

	for _, e := range state.Entries {
		binary.BigEndian.PutUint32(buf[:], uint32(len(e.Key)))
		hasher.Write(buf[:])
		hasher.Write(e.Key)

		binary.BigEndian.PutUint32(buf[:], uint32(len(e.Value)))
		hasher.Write(buf[:])
		hasher.Write(e.Value)
	}

	var sum [32]byte
	hasher.Sum(sum[:0])

	return sum
}

func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
