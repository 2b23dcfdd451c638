package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

const (
	// maxMessageSize is the maximum allowed message size (16 MB).
	maxMessageSize = 16 << 20

	// lengthPrefixSize is the size of the length prefix in bytes.
	lengthPrefixSize = 4
)

// request is the wire form of a remote call.
type request struct {
	To      common.Address
	Caller  common.Address
	Method  string
	Payload []byte
}

// response carries a result or a classified failure.
type response struct {
	Class   uint8  // Class is a fault.Class, zero on success
	Failed  bool   // Failed is set when the call returned an error
	Message string // Message is the error text
	Payload []byte
}

// newResponse builds the response for a handler outcome.
func newResponse(payload []byte, err error) response {
	if err == nil {
		return response{Payload: payload}
	}

	return response{Class: uint8(fault.ClassOf(err)), Failed: true, Message: err.Error()}
}

// result returns the payload or rebuilds the remote error with its class.
func (r response) result() ([]byte, error) {
	if !r.Failed {
		return r.Payload, nil
	}

	return nil, fault.New(fault.Class(r.Class), r.Message)
}

// writeFrame RLP-encodes v and writes it with a length prefix.
// Format: [4 bytes big-endian length] [payload]
func writeFrame(w io.Writer, v any) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode frame:\n%w", err)
	}

	if len(data) > maxMessageSize {
		return errors.Newf("message too large: %d > %d", len(data), maxMessageSize)
	}

	var lengthBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length:\n%w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload:\n%w", err)
	}

	return nil
}

// readFrame reads a length-prefixed frame and decodes it into v.
func readFrame(r io.Reader, v any) error {
	var lengthBuf [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return fmt.Errorf("read length:\n%w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxMessageSize {
		return errors.Newf("message too large: %d > %d", length, maxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read payload:\n%w", err)
	}

	if err := rlp.DecodeBytes(data, v); err != nil {
		return fmt.Errorf("decode frame:\n%w", err)
	}

	return nil
}
