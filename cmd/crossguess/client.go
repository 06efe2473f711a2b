package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moonshotcommons/cross-guess-game/internal/server"
)

// APIError is a non-2xx answer from the game server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Client talks to the game server's JSON API for one mode.
type Client struct {
	baseURL string
	mode    string
	http    *http.Client
}

func NewClient(baseURL, mode string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		mode:    mode,
		// Joins wait on the settlement executor.
		http: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (c *Client) Status(ctx context.Context) (server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *Client) Join(ctx context.Context, guess int) (server.JoinResponse, error) {
	var out server.JoinResponse
	err := c.do(ctx, http.MethodPost, "/api/join", server.JoinRequest{Guess: &guess, Mode: c.mode}, &out)
	return out, err
}

func (c *Client) WalletInfo(ctx context.Context) (server.WalletInfoResponse, error) {
	var out server.WalletInfoResponse
	err := c.do(ctx, http.MethodGet, "/api/wallet-info", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("building url: %w", err)
	}
	if method == http.MethodGet && c.mode != "" {
		u.RawQuery = url.Values{"mode": {c.mode}}.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e server.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
