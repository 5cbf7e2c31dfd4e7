package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"osryn.bank/internal/ledger"
	"osryn.bank/internal/money"
)

// Credentials identify the account a request acts for.
type Credentials struct {
	Username string
	Secret   string
}

// Client talks to the bank REST API.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a non-2xx response. It unwraps to the matching ledger error.
type Error struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (status %d, request %s)", e.Message, e.Status, e.RequestID)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error {
	return ledger.ErrorFromCode(e.Code)
}

func (c *Client) Register(ctx context.Context, in ledger.NewAccount) (ledger.Account, error) {
	var acc ledger.Account
	err := c.do(ctx, http.MethodPost, "/v1/accounts", nil, map[string]any{
		"display_name": in.DisplayName,
		"username":     in.Username,
		"secret":       in.Secret,
		"email":        in.Email,
		"phone":        in.Phone,
		"kind":         string(in.Kind),
	}, &acc)
	return acc, err
}

func (c *Client) Login(ctx context.Context, cr Credentials) (ledger.Account, error) {
	var acc ledger.Account
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", nil, map[string]any{
		"username": cr.Username,
		"secret":   cr.Secret,
	}, &acc)
	return acc, err
}

func (c *Client) Me(ctx context.Context, cr Credentials) (ledger.Account, error) {
	var acc ledger.Account
	err := c.do(ctx, http.MethodGet, "/v1/me", &cr, nil, &acc)
	return acc, err
}

func (c *Client) UpdateProfile(ctx context.Context, cr Credentials, p ledger.Profile) (ledger.Account, error) {
	body := map[string]any{}
	if p.DisplayName != nil {
		body["display_name"] = *p.DisplayName
	}
	if p.Email != nil {
		body["email"] = *p.Email
	}
	if p.Phone != nil {
		body["phone"] = *p.Phone
	}
	var acc ledger.Account
	err := c.do(ctx, http.MethodPatch, "/v1/me/profile", &cr, body, &acc)
	return acc, err
}

func (c *Client) ChangeSecret(ctx context.Context, cr Credentials, next string) error {
	return c.do(ctx, http.MethodPut, "/v1/me/secret", &cr, map[string]any{
		"current": cr.Secret,
		"next":    next,
	}, nil)
}

func (c *Client) Deposit(ctx context.Context, cr Credentials, amount int64) (ledger.Transaction, error) {
	var tx ledger.Transaction
	err := c.do(ctx, http.MethodPost, "/v1/me/deposits", &cr, map[string]any{
		"amount": money.Decimal(amount),
	}, &tx)
	return tx, err
}

func (c *Client) Withdraw(ctx context.Context, cr Credentials, amount int64) (ledger.Transaction, error) {
	var tx ledger.Transaction
	err := c.do(ctx, http.MethodPost, "/v1/me/withdrawals", &cr, map[string]any{
		"amount": money.Decimal(amount),
	}, &tx)
	return tx, err
}

func (c *Client) PayBill(ctx context.Context, cr Credentials, biller string, amount int64) (ledger.Transaction, error) {
	var tx ledger.Transaction
	err := c.do(ctx, http.MethodPost, "/v1/me/bill-payments", &cr, map[string]any{
		"biller": biller,
		"amount": money.Decimal(amount),
	}, &tx)
	return tx, err
}

func (c *Client) Transfer(ctx context.Context, cr Credentials, toID string, amount int64) (ledger.TransferResult, error) {
	var res ledger.TransferResult
	err := c.do(ctx, http.MethodPost, "/v1/me/transfers", &cr, map[string]any{
		"to_account": toID,
		"amount":     money.Decimal(amount),
	}, &res)
	return res, err
}

// Transactions lists postings most recent first; limit <= 0 returns all.
func (c *Client) Transactions(ctx context.Context, cr Credentials, limit int) ([]ledger.Transaction, error) {
	path := "/v1/me/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Items []ledger.Transaction `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, &cr, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) BalanceHistory(ctx context.Context, cr Credentials) ([]int64, error) {
	var out struct {
		Points []int64 `json:"points"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/me/balance-history", &cr, nil, &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}

// Statement downloads the PDF statement.
func (c *Client) Statement(ctx context.Context, cr Credentials) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, "/v1/me/statement", &cr, nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Client) Billers(ctx context.Context) ([]ledger.Biller, error) {
	var out struct {
		Items []ledger.Biller `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/billers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, cr *Credentials, body, out any) error {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if cr != nil {
		req.SetBasicAuth(cr.Username, cr.Secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return mapLedgerError(resp)
	}
	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case io.Writer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

// mapLedgerError turns an error response into an *Error that matches the
// ledger sentinels with errors.Is.
func mapLedgerError(resp *http.Response) error {
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	if body.RequestID == "" {
		body.RequestID = resp.Header.Get("X-Request-ID")
	}
	return &Error{
		Status:    resp.StatusCode,
		Code:      body.Code,
		Message:   body.Error,
		RequestID: body.RequestID,
	}
}

// IsTemporary reports whether err is worth retrying.
func IsTemporary(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return false
}

// WithTimeout returns a context with default timeout useful for CLI tools.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(parent, d)
}
