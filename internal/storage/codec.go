package storage

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode produces deterministic CBOR so identical records yield identical bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}

	encMode = em
}

// Encode serializes a record.
func Encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode deserializes a record.
func Decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// GetRecord loads the record at key into v.
// Returns false if the key does not exist.
func (s *Storage) GetRecord(ctx context.Context, key []byte, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}

	if data == nil {
		return false, nil
	}

	if err := Decode(data, v); err != nil {
		return false, fmt.Errorf("decode record:\n%w", err)
	}

	return true, nil
}

// PutRecord stores v at key.
func (s *Storage) PutRecord(ctx context.Context, key []byte, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode record:\n%w", err)
	}

	return s.Set(ctx, key, data)
}
