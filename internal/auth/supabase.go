// Package auth verifies Supabase access tokens and exposes a Gin middleware
// that admits only authenticated callers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken means no bearer credential was presented.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken means the credential was malformed or rejected.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// User is the identity behind a verified token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// Verifier turns a raw bearer token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*User, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (*User, error) { return f(ctx, token) }

// SupabaseConfig holds what the verifier needs from the Supabase project.
type SupabaseConfig struct {
	URL       string
	AnonKey   string
	JWTSecret string
}

// SupabaseVerifier checks tokens locally when the project JWT secret is known
// and falls back to the GoTrue user endpoint otherwise.
type SupabaseVerifier struct {
	cfg    SupabaseConfig
	client *http.Client
}

// NewSupabaseVerifier returns a verifier. A nil hc gets a 10s-timeout client.
func NewSupabaseVerifier(cfg SupabaseConfig, hc *http.Client) *SupabaseVerifier {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &SupabaseVerifier{cfg: cfg, client: hc}
}

// Verify implements Verifier.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if v.cfg.JWTSecret != "" {
		if u, err := v.verifyLocal(token); err == nil {
			return u, nil
		}
	}
	if v.cfg.URL == "" {
		return nil, ErrInvalidToken
	}
	return v.verifyRemote(ctx, token)
}

func (v *SupabaseVerifier) verifyLocal(token string) (*User, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &User{
		ID:    sub,
		Email: stringClaim(claims, "email"),
		Phone: stringClaim(claims, "phone"),
		Role:  stringClaim(claims, "role"),
	}, nil
}

func (v *SupabaseVerifier) verifyRemote(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.URL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.cfg.AnonKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("%w: auth server returned %d", ErrInvalidToken, resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidToken)
	}
	return &u, nil
}

func stringClaim(c jwt.MapClaims, key string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}
