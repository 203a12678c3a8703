// Package gateway maps domain operations onto authenticated HTTP calls
// against the configured backend. One method per backend operation, a
// single attempt per call, no caching and no shared mutable state; retry
// and failure policy belong to the callers.
package gateway

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

	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New creates a gateway client for the given base URL, e.g.
// "http://127.0.0.1:5000/api". A trailing slash is tolerated.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent(log.ComponentGateway),
	}
}

// TokenEnvelope is the raw success payload of register and login. The
// backend names the token field either "access_token" or "token";
// selecting one is the auth controller's job, not the gateway's.
type TokenEnvelope struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileEnvelope struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

type expenseDTO struct {
	ID       string    `json:"_id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Date     core.Date `json:"date"`
}

type expenseBody struct {
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Date     core.Date `json:"date,omitempty"`
}

type listEnvelope struct {
	Expenses []expenseDTO `json:"expenses"`
}

// createEnvelope tolerates both echo shapes: the record wrapped under
// "expense" or returned bare.
type createEnvelope struct {
	Expense *expenseDTO `json:"expense"`
	expenseDTO
}

func (d expenseDTO) toDomain() core.Expense {
	return core.Expense{
		ID:       d.ID,
		Title:    d.Title,
		Category: core.Category(d.Category),
		Amount:   core.MoneyFromFloat(d.Amount),
		Date:     d.Date,
	}
}

func draftBody(d core.Draft) expenseBody {
	return expenseBody{
		Title:    d.Title,
		Category: string(d.Category),
		Amount:   d.Amount.Float64(),
		Date:     d.Date,
	}
}

// Register creates an account and returns the raw token envelope.
func (c *Client) Register(ctx context.Context, username, email, password string) (TokenEnvelope, error) {
	var out TokenEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/register", "", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &out)
	return out, err
}

// Login authenticates and returns the raw token envelope.
func (c *Client) Login(ctx context.Context, email, password string) (TokenEnvelope, error) {
	var out TokenEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{
		Email:    email,
		Password: password,
	}, &out)
	return out, err
}

// Profile fetches the account profile for the credential. A 401 here is
// the backend's verdict that the credential is no longer valid.
func (c *Client) Profile(ctx context.Context, cred core.Credential) (core.Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/profile", cred, nil, &out); err != nil {
		return core.Profile{}, err
	}
	return core.Profile{Username: out.User.Username, Email: out.User.Email}, nil
}

// ListExpenses fetches the full expense list for the session.
func (c *Client) ListExpenses(ctx context.Context, cred core.Credential) ([]core.Expense, error) {
	var out listEnvelope
	if err := c.do(ctx, http.MethodGet, "/expenses", cred, nil, &out); err != nil {
		return nil, err
	}
	expenses := make([]core.Expense, 0, len(out.Expenses))
	for _, d := range out.Expenses {
		expenses = append(expenses, d.toDomain())
	}
	return expenses, nil
}

// AddExpense submits a draft and returns the created record as echoed by
// the backend.
func (c *Client) AddExpense(ctx context.Context, cred core.Credential, draft core.Draft) (core.Expense, error) {
	var out createEnvelope
	if err := c.do(ctx, http.MethodPost, "/expenses", cred, draftBody(draft), &out); err != nil {
		return core.Expense{}, err
	}
	if out.Expense != nil {
		return out.Expense.toDomain(), nil
	}
	return out.expenseDTO.toDomain(), nil
}

// UpdateExpense submits a draft against an existing record.
func (c *Client) UpdateExpense(ctx context.Context, cred core.Credential, id string, draft core.Draft) (core.Expense, error) {
	var out createEnvelope
	if err := c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), cred, draftBody(draft), &out); err != nil {
		return core.Expense{}, err
	}
	if out.Expense != nil {
		return out.Expense.toDomain(), nil
	}
	return out.expenseDTO.toDomain(), nil
}

// DeleteExpense removes a record. The success body is an ack and is
// discarded.
func (c *Client) DeleteExpense(ctx context.Context, cred core.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), cred, nil, nil)
}

// do issues a single request and decodes the success payload into out.
// Transport failures become KindNetwork errors, non-2xx responses become
// status-classified errors carrying the extracted server message.
func (c *Client) do(ctx context.Context, method, path string, cred core.Credential, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cred.Empty() {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed without response",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldError, err)
		return newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return newNetworkError(err)
	}

	c.logger.DebugContext(ctx, "Request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
