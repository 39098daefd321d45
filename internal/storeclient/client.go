// Package storeclient talks to the FocusFlow server: the session store over
// JSON HTTP and the session channel over Server-Sent Events.
package storeclient

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

	"github.com/google/uuid"

	apperrors "focusflow/internal/errors"
	"focusflow/internal/model"
	"focusflow/internal/session"
)

// ErrTerminal matches store rejections caused by an absorbing status.
var ErrTerminal = session.ErrTerminal

// StatusError is a non-2xx store response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("store returned %d", e.StatusCode)
	}
	return fmt.Sprintf("store returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTerminal && e.Code == apperrors.CodeSessionTerminal
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type Client struct {
	baseURL  string
	token    string
	clientID string
	http     *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClientID sets the id sent with every request so the server can tag
// the snapshots it publishes.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		clientID: uuid.NewString(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) Token() string { return c.token }

// Register creates an account. An empty displayName leaves join notices
// showing the email.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/register", map[string]string{
		"email": email, "password": password, "displayName": displayName,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

type sessionEnvelope struct {
	Session model.Session `json:"session"`
}

func (c *Client) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	return c.session(ctx, http.MethodPost, "/api/sessions", params)
}

func (c *Client) Get(ctx context.Context, id string) (*model.Session, error) {
	return c.session(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil)
}

func (c *Client) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	return c.session(ctx, http.MethodGet, "/api/sessions/code/"+url.PathEscape(code), nil)
}

// Join announces the caller to the session's other participants.
func (c *Client) Join(ctx context.Context, id string) (*model.Session, error) {
	return c.session(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/join", nil)
}

func (c *Client) History(ctx context.Context, limit int) ([]model.Session, error) {
	var env struct {
		Sessions []model.Session `json:"sessions"`
	}
	path := "/api/sessions/history?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Sessions, nil
}

func (c *Client) Activities(ctx context.Context, id string, limit int) ([]model.Activity, error) {
	var env struct {
		Activities []model.Activity `json:"activities"`
	}
	path := "/api/sessions/" + url.PathEscape(id) + "/activities?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Activities, nil
}

func (c *Client) Tip(ctx context.Context) (string, error) {
	var resp struct {
		Tip string `json:"tip"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tips/random", nil, &resp); err != nil {
		return "", err
	}
	return resp.Tip, nil
}

func (c *Client) SetStatus(ctx context.Context, id string, status model.Status) error {
	return c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(id)+"/status",
		map[string]model.Status{"status": status}, nil)
}

func (c *Client) SetCycle(ctx context.Context, id string, cycle int) error {
	return c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(id)+"/cycle",
		map[string]int{"cycle": cycle}, nil)
}

func (c *Client) SetTimerState(ctx context.Context, id string, state model.TimerState) error {
	return c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(id)+"/timer-state", state, nil)
}

func (c *Client) CheckCompletion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/check-completion", nil, nil)
}

func (c *Client) RecordActivity(ctx context.Context, id string, activityType model.ActivityType, message string) error {
	body := map[string]string{"type": string(activityType), "message": message}
	return c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/activities", body, nil)
}

func (c *Client) session(ctx context.Context, method, path string, body any) (*model.Session, error) {
	var env sessionEnvelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return nil, err
	}
	return &env.Session, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set(model.OriginHeader, c.clientID)
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &env); err == nil {
		statusErr.Code = env.Error.Code
		statusErr.Message = env.Error.Message
	}
	return statusErr
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}
