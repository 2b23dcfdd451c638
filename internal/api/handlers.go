package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"NoteVault/internal/acl"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
	"NoteVault/internal/versions"
)

// RegistryRequest is the body of POST /assets/{asset}/registry.
type RegistryRequest struct {
	ValidatorVersion note.Version   `json:"validatorVersion"`
	StorageVersion   note.Version   `json:"storageVersion"`
	ScalingFactor    uint64         `json:"scalingFactor"`
	Token            common.Address `json:"token"`
	CanMintBurn      bool           `json:"canMintBurn"`
}

// TransferResponse describes an applied transfer.
type TransferResponse struct {
	Type        string         `json:"type"`
	Inputs      []common.Hash  `json:"inputs"`
	Outputs     []common.Hash  `json:"outputs"`
	PublicOwner common.Address `json:"publicOwner"`
	PublicValue int64          `json:"publicValue"`
	Result      hexutil.Bytes  `json:"result"`
}

// NoteResponse describes an unspent note.
type NoteResponse struct {
	Hash   common.Hash   `json:"hash"`
	Owner  hexutil.Bytes `json:"owner"`
	Sender hexutil.Bytes `json:"sender"`
}

// UpgradeRequest is the body of POST /assets/{asset}/upgrade/{role}.
type UpgradeRequest struct {
	Version note.Version `json:"version"`
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// assetContext returns a context calling as the asset in the path.
func assetContext(r *http.Request) (context.Context, common.Address, error) {
	asset, err := parseAddress(r, "asset")
	if err != nil {
		return nil, common.Address{}, err
	}

	return rpc.WithCaller(r.Context(), asset), asset, nil
}

// callerContext returns a context calling as the X-Caller header.
func callerContext(r *http.Request) (context.Context, error) {
	caller, err := parseCaller(r)
	if err != nil {
		return nil, err
	}

	return rpc.WithCaller(r.Context(), caller), nil
}

func (s *Server) handleFundsManager(w http.ResponseWriter, r *http.Request) {
	addr, err := s.ledger.GetFundsManager(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]common.Address{"address": addr})
}

func (s *Server) handleCreateRegistry(w http.ResponseWriter, r *http.Request) {
	ctx, asset, err := assetContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RegistryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.ledger.CreateRegistry(ctx, acl.CreateRegistryArgs{
		ValidatorVersion: req.ValidatorVersion,
		StorageVersion:   req.StorageVersion,
		ScalingFactor:    req.ScalingFactor,
		Token:            req.Token,
		CanMintBurn:      req.CanMintBurn,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	reg, err := s.ledger.GetRegistry(r.Context(), asset)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(r, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := s.ledger.GetRegistry(r.Context(), asset)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := assetContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	proof, err := readProof(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ledger.Transfer(ctx, proof)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	tr, err := result.Transfer()
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	encoded, err := result.Encode()
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	resp := TransferResponse{
		Type:        result.Type.String(),
		Inputs:      make([]common.Hash, 0, len(tr.Inputs)),
		Outputs:     make([]common.Hash, 0, len(tr.Outputs)),
		PublicOwner: tr.PublicOwner,
		PublicValue: int64(tr.PublicValue),
		Result:      encoded,
	}

	for _, in := range tr.Inputs {
		resp.Inputs = append(resp.Inputs, in.Hash)
	}

	for _, out := range tr.Outputs {
		resp.Outputs = append(resp.Outputs, out.Hash)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleProof serves the proof endpoints that return nothing but success.
func (s *Server) handleProof(apply func(Ledger, context.Context, []byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, _, err := assetContext(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		proof, err := readProof(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := apply(s.ledger, ctx, proof); err != nil {
			writeFailure(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := assetContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := parseHash(r, "hash")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := s.ledger.GetNote(ctx, hash)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NoteResponse{Hash: status.Hash, Owner: status.Owner, Sender: status.Sender})
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := assetContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := parseHash(r, "hash")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	shared, err := s.ledger.GetApproval(ctx, hash)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]hexutil.Bytes{"sharedSign": shared})
}

func (s *Server) handleSupportProof(w http.ResponseWriter, r *http.Request) {
	ctx, _, err := assetContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := parseVersion(r, "version")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.ledger.SupportProof(ctx, version)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"supported": ok})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx, err := callerContext(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := parseAddress(r, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := parseRole(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpgradeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instance, err := s.ledger.Upgrade(ctx, asset, role, req.Version)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]common.Address{"instance": instance})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	role, err := parseRole(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.ledger.ListVersions(r.Context(), role)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	if list == nil {
		list = []versions.Info{}
	}

	writeJSON(w, http.StatusOK, list)
}

// handleRecordVersion serves version creation and update.
func (s *Server) handleRecordVersion(record func(Ledger, context.Context, versions.Role, versions.Info) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, err := callerContext(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		role, err := parseRole(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var info versions.Info
		if err := readJSON(r, &info); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := record(s.ledger, ctx, role, info); err != nil {
			writeFailure(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, info)
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	role, err := parseRole(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, err := parseByte(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.ledger.Latest(r.Context(), role, name)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleLatestMinor(w http.ResponseWriter, r *http.Request) {
	role, err := parseRole(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, err := parseByte(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	major, err := parseByte(r, "major")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.ledger.LatestMinor(r.Context(), role, name, major)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleSnapshot serves the encoded state of an instance.
func (s *Server) handleSnapshot(read func(context.Context, common.Address) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := parseAddress(r, "address")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, err := read(r.Context(), addr)
		if err != nil {
			writeFailure(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
