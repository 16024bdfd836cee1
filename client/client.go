// Package client talks to the transport backend's REST API. It satisfies the
// source and writer interfaces of the transporter, ledger and submission packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"shipmentledger/logger"
	"shipmentledger/models"
)

const defaultHTTPTimeout = 30 * time.Second

// APIError is a non-2xx reply or a reply with success=false.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, msg)
}

// Unwrap maps 404 onto models.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(l) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRequest loads one transport request.
func (c *Client) GetRequest(ctx context.Context, requestID int64) (models.TransportRequest, error) {
	var req models.TransportRequest
	err := c.do(ctx, http.MethodGet, "/requests/"+id(requestID), nil, &req)
	return req, err
}

// TransporterDetails returns the stored assignments of a request. The backend
// may answer with a single object instead of an array.
func (c *Client) TransporterDetails(ctx context.Context, requestID int64) ([]models.AssignmentRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/requests/"+id(requestID)+"/transporter-details", nil, &raw); err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

func decodeRecords(raw json.RawMessage) ([]models.AssignmentRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.AssignmentRecord{}, nil
	}
	if raw[0] == '{' {
		var one models.AssignmentRecord
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("decode transporter details: %w", err)
		}
		return []models.AssignmentRecord{one}, nil
	}
	var many []models.AssignmentRecord
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("decode transporter details: %w", err)
	}
	return many, nil
}

func (c *Client) CreateAssignment(ctx context.Context, requestID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	var out models.AssignmentRecord
	err := c.do(ctx, http.MethodPost, "/requests/"+id(requestID)+"/assignments", rec, &out)
	return out, err
}

func (c *Client) UpdateAssignment(ctx context.Context, assignmentID int64, rec models.AssignmentRecord) (models.AssignmentRecord, error) {
	var out models.AssignmentRecord
	err := c.do(ctx, http.MethodPut, "/assignments/"+id(assignmentID), rec, &out)
	return out, err
}

func (c *Client) TransactionsByRequest(ctx context.Context, requestID int64) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := c.do(ctx, http.MethodGet, "/requests/"+id(requestID)+"/transactions", nil, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (c *Client) PaymentsByTransaction(ctx context.Context, transactionID int64) ([]models.Payment, error) {
	var payments []models.Payment
	if err := c.do(ctx, http.MethodGet, "/transactions/"+id(transactionID)+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// SavePayment posts a new transaction when transactionID is nil and appends
// to the existing one otherwise.
func (c *Client) SavePayment(ctx context.Context, transactionID *int64, in models.PaymentInput) (models.Transaction, error) {
	method, path := http.MethodPost, "/payments"
	if transactionID != nil {
		method, path = http.MethodPut, "/transactions/"+id(*transactionID)+"/payments"
	}
	var tx models.Transaction
	err := c.do(ctx, method, path, in, &tx)
	return tx, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
