// Package client talks to a NoteVault daemon over HTTP and builds proofs for
// a wallet of plaintext notes.
package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"NoteVault/internal/acl"
	"NoteVault/internal/api"
	"NoteVault/internal/note"
	"NoteVault/internal/versions"
)

// Client connects to a NoteVault daemon via HTTP.
type Client struct {
	baseURL string       // baseURL is the API root (e.g. "http://127.0.0.1:8080")
	http    *http.Client // http sends the requests
}

// NewClient creates a client for the daemon at addr. A bare host:port is
// reached over plain HTTP.
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func assetPath(asset common.Address, rest string) string {
	return "/assets/" + asset.Hex() + rest
}

// Health reports whether the daemon answers.
func (c *Client) Health() error {
	return c.httpGet("/health", nil)
}

// FundsManager returns the funds manager of the orchestrator.
func (c *Client) FundsManager() (common.Address, error) {
	var resp struct {
		Address common.Address `json:"address"`
	}

	if err := c.httpGet("/funds", &resp); err != nil {
		return common.Address{}, fmt.Errorf("get funds manager:\n%w", err)
	}

	return resp.Address, nil
}

// CreateRegistry registers asset and returns its registry.
func (c *Client) CreateRegistry(asset common.Address, req api.RegistryRequest) (*acl.Registry, error) {
	var reg acl.Registry

	if err := c.httpSendJSON(http.MethodPost, assetPath(asset, "/registry"), nil, req, &reg); err != nil {
		return nil, fmt.Errorf("create registry:\n%w", err)
	}

	return &reg, nil
}

// Registry returns the registry of asset.
func (c *Client) Registry(asset common.Address) (*acl.Registry, error) {
	var reg acl.Registry

	if err := c.httpGet(assetPath(asset, "/registry"), &reg); err != nil {
		return nil, fmt.Errorf("get registry:\n%w", err)
	}

	return &reg, nil
}

// Transfer submits a transfer, deposit or withdraw proof.
func (c *Client) Transfer(asset common.Address, proof []byte) (*api.TransferResponse, error) {
	var resp api.TransferResponse

	if err := c.submitProof(assetPath(asset, "/transfer"), proof, &resp); err != nil {
		return nil, fmt.Errorf("transfer:\n%w", err)
	}

	return &resp, nil
}

// Mint submits a mint proof.
func (c *Client) Mint(asset common.Address, proof []byte) error {
	if err := c.submitProof(assetPath(asset, "/mint"), proof, nil); err != nil {
		return fmt.Errorf("mint:\n%w", err)
	}

	return nil
}

// Burn submits a burn proof.
func (c *Client) Burn(asset common.Address, proof []byte) error {
	if err := c.submitProof(assetPath(asset, "/burn"), proof, nil); err != nil {
		return fmt.Errorf("burn:\n%w", err)
	}

	return nil
}

// Approve submits an approve proof.
func (c *Client) Approve(asset common.Address, proof []byte) error {
	if err := c.submitProof(assetPath(asset, "/approve"), proof, nil); err != nil {
		return fmt.Errorf("approve:\n%w", err)
	}

	return nil
}

// Note returns an unspent note of asset.
func (c *Client) Note(asset common.Address, hash common.Hash) (*api.NoteResponse, error) {
	var resp api.NoteResponse

	if err := c.httpGet(assetPath(asset, "/notes/"+hash.Hex()), &resp); err != nil {
		return nil, fmt.Errorf("get note:\n%w", err)
	}

	return &resp, nil
}

// Approval returns the shared signature recorded for a note.
func (c *Client) Approval(asset common.Address, hash common.Hash) ([]byte, error) {
	var resp struct {
		SharedSign hexutil.Bytes `json:"sharedSign"`
	}

	if err := c.httpGet(assetPath(asset, "/approvals/"+hash.Hex()), &resp); err != nil {
		return nil, fmt.Errorf("get approval:\n%w", err)
	}

	return resp.SharedSign, nil
}

// SupportProof asks whether the asset's validator accepts version.
func (c *Client) SupportProof(asset common.Address, version note.Version) (bool, error) {
	var resp struct {
		Supported bool `json:"supported"`
	}

	if err := c.httpGet(assetPath(asset, fmt.Sprintf("/support/%#x", uint32(version))), &resp); err != nil {
		return false, fmt.Errorf("support proof:\n%w", err)
	}

	return resp.Supported, nil
}

// Upgrade moves the role instance of asset to version on behalf of caller.
func (c *Client) Upgrade(caller, asset common.Address, role versions.Role, version note.Version) (common.Address, error) {
	var resp struct {
		Instance common.Address `json:"instance"`
	}

	path := assetPath(asset, "/upgrade/"+role.String())
	if err := c.httpSendJSON(http.MethodPost, path, &caller, api.UpgradeRequest{Version: version}, &resp); err != nil {
		return common.Address{}, fmt.Errorf("upgrade:\n%w", err)
	}

	return resp.Instance, nil
}

// CreateVersion records the first version of an algorithm on behalf of caller.
func (c *Client) CreateVersion(caller common.Address, role versions.Role, info versions.Info) error {
	if err := c.httpSendJSON(http.MethodPost, "/versions/"+role.String(), &caller, info, nil); err != nil {
		return fmt.Errorf("create version:\n%w", err)
	}

	return nil
}

// UpdateVersion records a newer version on behalf of caller.
func (c *Client) UpdateVersion(caller common.Address, role versions.Role, info versions.Info) error {
	if err := c.httpSendJSON(http.MethodPut, "/versions/"+role.String(), &caller, info, nil); err != nil {
		return fmt.Errorf("update version:\n%w", err)
	}

	return nil
}

// Versions lists the versions of role.
func (c *Client) Versions(role versions.Role) ([]versions.Info, error) {
	var list []versions.Info

	if err := c.httpGet("/versions/"+role.String(), &list); err != nil {
		return nil, fmt.Errorf("list versions:\n%w", err)
	}

	return list, nil
}

// Latest returns the newest version of algorithm name.
func (c *Client) Latest(role versions.Role, name uint8) (*versions.Info, error) {
	var info versions.Info

	if err := c.httpGet(fmt.Sprintf("/versions/%s/latest/%d", role, name), &info); err != nil {
		return nil, fmt.Errorf("latest version:\n%w", err)
	}

	return &info, nil
}

// LatestMinor returns the newest minor of major.
func (c *Client) LatestMinor(role versions.Role, name, major uint8) (*versions.Info, error) {
	var info versions.Info

	if err := c.httpGet(fmt.Sprintf("/versions/%s/latest/%d/%d", role, name, major), &info); err != nil {
		return nil, fmt.Errorf("latest minor:\n%w", err)
	}

	return &info, nil
}
