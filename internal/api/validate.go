package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"NoteVault/internal/note"
	"NoteVault/internal/versions"
)

// parseAddress reads a hex address path parameter.
func parseAddress(r *http.Request, param string) (common.Address, error) {
	s := chi.URLParam(r, param)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q", param, s)
	}

	return common.HexToAddress(s), nil
}

// parseHash reads a 32-byte hex path parameter.
func parseHash(r *http.Request, param string) (common.Hash, error) {
	b, err := hexutil.Decode(chi.URLParam(r, param))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid %s: want 0x-prefixed 32 bytes", param)
	}

	return common.BytesToHash(b), nil
}

// parseVersion reads a version path parameter, decimal or 0x-prefixed.
func parseVersion(r *http.Request, param string) (note.Version, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, param), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", param, err)
	}

	return note.Version(v), nil
}

// parseByte reads a uint8 path parameter.
func parseByte(r *http.Request, param string) (uint8, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, param), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", param, err)
	}

	return uint8(v), nil
}

// parseRole reads the role path parameter.
func parseRole(r *http.Request) (versions.Role, error) {
	return versions.ParseRole(chi.URLParam(r, "role"))
}

// parseCaller reads the caller header of administrative requests.
func parseCaller(r *http.Request) (common.Address, error) {
	s := r.Header.Get(callerHeader)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("missing or invalid %s header", callerHeader)
	}

	return common.HexToAddress(s), nil
}

// readProof reads a raw proof body.
func readProof(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProofSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body")
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty proof")
	}

	if len(body) > maxProofSize {
		return nil, fmt.Errorf("proof exceeds %d bytes", maxProofSize)
	}

	return body, nil
}

// readJSON decodes a bounded JSON body into v, rejecting unknown fields.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONSize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}

	return nil
}
