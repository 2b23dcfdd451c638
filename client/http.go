package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// callerHeader carries the caller of administrative requests.
const callerHeader = "X-Caller"

// Error is a request rejected by the server.
type Error struct {
	Status  int    // Status is the HTTP status code
	Class   string // Class is the failure class reported by the server
	Message string // Message is the server's error text
}

func (e *Error) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Message)
	}

	return fmt.Sprintf("status %d (%s): %s", e.Status, e.Class, e.Message)
}

// do sends a request and decodes the JSON response into result when non-nil.
func (c *Client) do(method, path, contentType string, body []byte, caller *common.Address, result any) error {
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if caller != nil {
		req.Header.Set(callerHeader, caller.Hex())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", method, path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error string `json:"error"`
			Class string `json:"class"`
		}

		json.NewDecoder(resp.Body).Decode(&failure)

		return &Error{Status: resp.StatusCode, Class: failure.Class, Message: failure.Error}
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGet performs a GET request and decodes the JSON response.
func (c *Client) httpGet(path string, result any) error {
	return c.do(http.MethodGet, path, "", nil, nil, result)
}

// httpSendJSON sends a JSON body and decodes the JSON response.
func (c *Client) httpSendJSON(method, path string, caller *common.Address, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	return c.do(method, path, "application/json", data, caller, result)
}

// submitProof posts raw proof bytes.
func (c *Client) submitProof(path string, proof []byte, result any) error {
	return c.do(http.MethodPost, path, "application/octet-stream", proof, nil, result)
}
