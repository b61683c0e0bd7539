package auth

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

	"github.com/tidwall/gjson"
)

// AdminConfig holds the GoTrue endpoints and keys. ServiceRoleKey authorizes
// the admin calls; AnonKey is sent on the password grant.
type AdminConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

// Session is a GoTrue token response, passed through to the web client.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth server returned %d: %s", e.Status, e.Message)
}

// AdminClient manages the auth users behind phone accounts: it creates them,
// changes their password and signs them in.
type AdminClient struct {
	cfg    AdminConfig
	client *http.Client
}

// NewAdminClient returns a client. A nil hc gets a 10s-timeout client.
func NewAdminClient(cfg AdminConfig, hc *http.Client) *AdminClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.AnonKey == "" {
		cfg.AnonKey = cfg.ServiceRoleKey
	}
	return &AdminClient{cfg: cfg, client: hc}
}

// Configured reports whether the admin endpoints can be called.
func (a *AdminClient) Configured() bool {
	return a.cfg.URL != "" && a.cfg.ServiceRoleKey != ""
}

// CreateUser creates a confirmed email user and returns its id.
func (a *AdminClient) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	raw, err := a.do(ctx, http.MethodPost, "/auth/v1/admin/users", a.cfg.ServiceRoleKey, body)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(raw, "id").String()
	if id == "" {
		return "", &APIError{Status: http.StatusOK, Message: "created user has no id"}
	}
	return id, nil
}

// UpdatePassword sets a new password on the user.
func (a *AdminClient) UpdatePassword(ctx context.Context, userID, password string) error {
	_, err := a.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(userID), a.cfg.ServiceRoleKey,
		map[string]any{"password": password})
	return err
}

// SignIn runs the password grant and returns the session.
func (a *AdminClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	raw, err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", a.cfg.AnonKey,
		map[string]any{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "session has no access token"}
	}
	return &s, nil
}

func (a *AdminClient) do(ctx context.Context, method, path, key string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage picks the human-readable field GoTrue used for this error.
func errorMessage(raw []byte) string {
	for _, path := range []string{"msg", "error_description", "message", "error"} {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return strings.TrimSpace(string(raw))
}
