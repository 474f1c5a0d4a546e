package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Catalog lists the models available to request plus default quota values.
type Catalog struct {
	Models               []string `json:"models"`
	DefaultPromptsPerDay int      `json:"default_prompts_per_day"`
	MaxTokensPerResponse int      `json:"max_tokens_per_response"`
}

// RequestInput is the access request form payload.
type RequestInput struct {
	Models            []string `json:"models"`
	PromptsPerDay     int      `json:"prompts_per_day"`
	TokensPerResponse int      `json:"tokens_per_response"`
	Justification     string   `json:"justification"`
}

// Validate checks required fields locally, before any network traffic.
func (in RequestInput) Validate() error {
	if len(in.Models) == 0 {
		return &ValidationError{Message: "select at least one model"}
	}
	if strings.TrimSpace(in.Justification) == "" {
		return &ValidationError{Message: "justification required"}
	}
	if in.PromptsPerDay <= 0 || in.TokensPerResponse <= 0 {
		return &ValidationError{Message: "quotas must be positive"}
	}
	return nil
}

// RequestStatus is the resolution of the caller's latest access request:
// "none", "pending" or "approved".
type RequestStatus struct {
	State      string      `json:"state"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
	Allocation *Allocation `json:"allocation,omitempty"`
	ApprovedBy *string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
}

// PendingRequest is an admin's view of a queued access request.
type PendingRequest struct {
	ID                         string    `json:"id"`
	Identifier                 string    `json:"identifier"`
	RoleClass                  string    `json:"role_class"`
	RequestedModels            []string  `json:"requested_models"`
	RequestedPromptsPerDay     int       `json:"requested_prompts_per_day"`
	RequestedTokensPerResponse int       `json:"requested_tokens_per_response"`
	Justification              string    `json:"justification"`
	CreatedAt                  time.Time `json:"created_at"`
}

// Client talks to the portal API. Login arms subsequent requests with the
// issued token; every method returns a structured outcome and never panics
// on backend misbehavior.
type Client struct {
	baseURL string
	httpc   *http.Client
	store   SessionStore

	mu       sync.Mutex
	token    string
	inflight map[string]bool
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport, e.g. to set timeouts or TLS config.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// NewClient builds a client rooted at baseURL. If the store holds a session
// from a previous run, its token is restored so the login state survives a
// restart.
func NewClient(baseURL string, store SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{Timeout: 30 * time.Second},
		store:    store,
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if store != nil {
		if sess, err := store.Current(); err == nil {
			c.token = sess.Token
		}
	}
	return c
}

// CurrentSession returns the stored session, or ErrNoSession.
func (c *Client) CurrentSession() (*Session, error) {
	if c.store == nil {
		return nil, ErrNoSession
	}
	return c.store.Current()
}

// Login authenticates the credential triple. On success the normalized
// session is persisted and the token attached to subsequent calls; on failure
// nothing is written.
func (c *Client) Login(ctx context.Context, identifier, roleClass, password string) (*Session, error) {
	done, err := c.begin("login")
	if err != nil {
		return nil, err
	}
	defer done()

	payload, err := c.doRaw(ctx, http.MethodPost, "/auth/login", map[string]string{
		"identifier": identifier,
		"role_class": roleClass,
		"password":   password,
	})
	if err != nil {
		return nil, err
	}

	sess, err := normalizeLogin(payload)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Save(sess); err != nil {
			return nil, err
		}
	}
	c.setToken(sess.Token)
	return sess, nil
}

// Logout clears the persisted session and revokes the token server-side. The
// local state is cleared even when the revoke call fails, so a dead backend
// cannot pin a stale login.
func (c *Client) Logout(ctx context.Context) error {
	_, revokeErr := c.doRaw(ctx, http.MethodPost, "/auth/logout", nil)

	c.setToken("")
	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			return err
		}
	}
	return revokeErr
}

// FetchCatalog retrieves the model set and default quotas for the request form.
func (c *Client) FetchCatalog(ctx context.Context) (*Catalog, error) {
	var resp struct {
		Catalog Catalog `json:"catalog"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/catalog", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Catalog, nil
}

// Submit files an access request. Validation failures surface before any
// network call; concurrent submissions are rejected with ErrRequestInFlight.
func (c *Client) Submit(ctx context.Context, input RequestInput) (*RequestStatus, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	done, err := c.begin("submit")
	if err != nil {
		return nil, err
	}
	defer done()

	var resp struct {
		Request struct {
			CreatedAt time.Time `json:"created_at"`
		} `json:"request"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/requests", input, &resp); err != nil {
		return nil, err
	}
	createdAt := resp.Request.CreatedAt
	return &RequestStatus{State: "pending", CreatedAt: &createdAt}, nil
}

// Status fetches the caller's current request resolution.
func (c *Client) Status(ctx context.Context) (*RequestStatus, error) {
	var status RequestStatus
	if err := c.doJSON(ctx, http.MethodGet, "/requests/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListPending returns the approval queue, most recent first regardless of the
// order the backend happened to send.
func (c *Client) ListPending(ctx context.Context) ([]PendingRequest, error) {
	var resp struct {
		Requests []PendingRequest `json:"requests"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/requests/pending", nil, &resp); err != nil {
		return nil, err
	}

	sort.SliceStable(resp.Requests, func(i, j int) bool {
		return resp.Requests[i].CreatedAt.After(resp.Requests[j].CreatedAt)
	})
	return resp.Requests, nil
}

// ApproveOne grants the allocation to a single pending request.
func (c *Client) ApproveOne(ctx context.Context, requestID string, alloc Allocation) error {
	done, err := c.begin("approve:" + requestID)
	if err != nil {
		return err
	}
	defer done()

	return c.doJSON(ctx, http.MethodPost, "/admin/requests/"+requestID+"/approve", alloc, nil)
}

// EditAllocation replaces the allocation of an approved request.
func (c *Client) EditAllocation(ctx context.Context, requestID string, alloc Allocation) error {
	done, err := c.begin("edit:" + requestID)
	if err != nil {
		return err
	}
	defer done()

	return c.doJSON(ctx, http.MethodPost, "/admin/requests/"+requestID+"/allocation", alloc, nil)
}

// ApproveAll approves every pending request with its requested values and
// returns the number approved.
func (c *Client) ApproveAll(ctx context.Context) (int, error) {
	done, err := c.begin("approve-all")
	if err != nil {
		return 0, err
	}
	defer done()

	var resp struct {
		Approved int `json:"approved"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/requests/approve-all", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Approved, nil
}

// ApproveByRoleClass approves every pending request from one role class.
func (c *Client) ApproveByRoleClass(ctx context.Context, roleClass string) (int, error) {
	done, err := c.begin("approve-all:" + roleClass)
	if err != nil {
		return 0, err
	}
	defer done()

	var resp struct {
		Approved int `json:"approved"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/requests/approve-all/"+roleClass, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Approved, nil
}

func (c *Client) begin(op string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[op] {
		return nil, ErrRequestInFlight
	}
	c.inflight[op] = true
	return func() {
		c.mu.Lock()
		delete(c.inflight, op)
		c.mu.Unlock()
	}, nil
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(op, resp.StatusCode, payload)
	}
	return payload, nil
}

func errorFromResponse(op string, status int, payload []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		switch envelope.Error.Code {
		case "INVALID_CREDENTIALS":
			return ErrInvalidCredentials
		case "VALIDATION_FAILED":
			return &ValidationError{Message: envelope.Error.Message}
		}
		if envelope.Error.Code != "" {
			return &NetworkError{Op: op, Err: fmt.Errorf("%s: %s (http %d)", envelope.Error.Code, envelope.Error.Message, status)}
		}
	}
	return &NetworkError{Op: op, Err: fmt.Errorf("http %d", status)}
}
