package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

var (
	ErrNotConfigured  = errors.New("bridge not configured")
	ErrNoRoute        = errors.New("no route found for cross-chain transfer")
	ErrQuoteRejected  = errors.New("quote rejected")
	ErrTransferFailed = errors.New("transfer failed")
)

const defaultPollInterval = 2 * time.Second

// Bridge executes transfers through an external bridge API:
//
//	POST /v1/quotes           price the route
//	POST /v1/transfers        initiate against a quote
//	GET  /v1/transfers/{txId} poll until completed or failed
type Bridge struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

type BridgeOption func(*Bridge)

func WithHTTPClient(c *http.Client) BridgeOption {
	return func(b *Bridge) { b.httpClient = c }
}

func WithPollInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.pollInterval = d }
}

func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

func NewBridge(baseURL, apiKey string, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type quoteRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	SourceChain string          `json:"sourceChain"`
	DestChain   string          `json:"destChain"`
}

type quoteResponse struct {
	QuoteID           string          `json:"quoteId"`
	Valid             bool            `json:"valid"`
	Error             string          `json:"error,omitempty"`
	DestinationAmount decimal.Decimal `json:"destinationAmount"`
}

type transferRequest struct {
	QuoteID  string `json:"quoteId"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

type transferStatus struct {
	TxID              string          `json:"txId"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
	DestinationAmount decimal.Decimal `json:"destinationAmount"`
}

const (
	statusPending   = "pending"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

type apiError struct {
	Error string `json:"error"`
}

func (b *Bridge) Transfer(ctx context.Context, req game.TransferRequest) (game.TransferReceipt, error) {
	if b.baseURL == "" {
		return game.TransferReceipt{}, ErrNotConfigured
	}

	var quote quoteResponse
	status, err := b.call(ctx, http.MethodPost, "/v1/quotes", quoteRequest{
		Amount:      req.Amount,
		SourceChain: req.SourceChain,
		DestChain:   req.DestChain,
	}, &quote)
	if status == http.StatusNotFound {
		return game.TransferReceipt{}, fmt.Errorf("%s -> %s: %w", req.SourceChain, req.DestChain, ErrNoRoute)
	}
	if err != nil {
		return game.TransferReceipt{}, fmt.Errorf("quote: %w", err)
	}
	if !quote.Valid {
		return game.TransferReceipt{}, fmt.Errorf("%w: %s", ErrQuoteRejected, quote.Error)
	}
	b.logger.Debug("bridge quote",
		"quote_id", quote.QuoteID,
		"amount", req.Amount.String(),
		"destination_amount", quote.DestinationAmount.String(),
	)

	var st transferStatus
	if _, err := b.call(ctx, http.MethodPost, "/v1/transfers", transferRequest{
		QuoteID:  quote.QuoteID,
		Sender:   req.Sender,
		Receiver: req.Receiver,
	}, &st); err != nil {
		return game.TransferReceipt{}, fmt.Errorf("initiate: %w", err)
	}
	if st.TxID == "" {
		return game.TransferReceipt{}, fmt.Errorf("initiate: %w: empty tx id", ErrTransferFailed)
	}
	b.logger.Info("bridge transfer initiated", "tx_id", st.TxID, "sender", req.Sender, "receiver", req.Receiver)

	st, err = b.await(ctx, st)
	if err != nil {
		return game.TransferReceipt{}, err
	}

	dest := st.DestinationAmount
	if dest.IsZero() {
		dest = quote.DestinationAmount
	}
	return game.TransferReceipt{TxID: st.TxID, DestinationAmount: dest}, nil
}

// await polls the transfer until it leaves the pending state or ctx ends.
func (b *Bridge) await(ctx context.Context, st transferStatus) (transferStatus, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	txID := st.TxID
	for {
		switch st.Status {
		case statusCompleted:
			return st, nil
		case statusFailed:
			return st, fmt.Errorf("tx %s: %w: %s", txID, ErrTransferFailed, st.Error)
		}

		select {
		case <-ctx.Done():
			return st, fmt.Errorf("tx %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}

		if _, err := b.call(ctx, http.MethodGet, "/v1/transfers/"+url.PathEscape(txID), nil, &st); err != nil {
			return st, fmt.Errorf("poll tx %s: %w", txID, err)
		}
		if st.TxID == "" {
			st.TxID = txID
		}
	}
}

// call sends payload as JSON and decodes a 2xx body into out. The HTTP
// status is returned even when err is set.
func (b *Bridge) call(ctx context.Context, method, path string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			return resp.StatusCode, fmt.Errorf("bridge: %s (%d)", ae.Error, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("bridge: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("unmarshal: %w", err)
	}
	return resp.StatusCode, nil
}
