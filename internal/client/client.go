// Package client talks to a running AutoInput service over its local API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autoinput/internal/config"
	"autoinput/internal/protocol"
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the local API
type Client struct {
	addr  string
	token string
	http  *http.Client
}

// SetupsResponse is the body of GET /api/setups
type SetupsResponse struct {
	Active string         `json:"active"`
	Setups []config.Setup `json:"setups"`
}

// New creates a client for the API at addr (host:port)
func New(addr, token string) *Client {
	return &Client{
		addr:  addr,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := url.URL{Scheme: "http", Host: c.addr, Path: path}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.url(path, query), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type commandResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// Start starts the named setup
func (c *Client) Start(setup string) error {
	return c.do(http.MethodPost, "/api/start", url.Values{"setup": {setup}}, nil, nil)
}

// StartSetup starts an ad-hoc setup that is not in the service's config
func (c *Client) StartSetup(setup config.Setup) error {
	return c.do(http.MethodPost, "/api/start", nil, setup, nil)
}

// Stop stops whatever is running
func (c *Client) Stop() error {
	return c.do(http.MethodPost, "/api/stop", nil, nil, nil)
}

// Toggle toggles the named setup and reports whether it is now running
func (c *Client) Toggle(setup string) (bool, error) {
	var resp commandResponse
	if err := c.do(http.MethodPost, "/api/toggle", url.Values{"setup": {setup}}, nil, &resp); err != nil {
		return false, err
	}
	return resp.Running, nil
}

// Drag updates the drag vector of a running hold
func (c *Client) Drag(dx, dy float64) error {
	return c.do(http.MethodPost, "/api/drag", nil, protocol.DragPayload{DX: dx, DY: dy}, nil)
}

// Status returns the engine status
func (c *Client) Status() (protocol.StatusPayload, error) {
	var st protocol.StatusPayload
	err := c.do(http.MethodGet, "/api/status", nil, nil, &st)
	return st, err
}

// Setups lists the configured setups
func (c *Client) Setups() (SetupsResponse, error) {
	var resp SetupsResponse
	err := c.do(http.MethodGet, "/api/setups", nil, nil, &resp)
	return resp, err
}

// Health checks that the service is up
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil, nil)
}
