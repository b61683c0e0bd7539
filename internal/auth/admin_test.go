package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeGoTrue serves the three endpoints AdminClient calls and records what
// it received.
type fakeGoTrue struct {
	t        *testing.T
	mu       sync.Mutex
	users    map[string]string // id -> password
	emails   map[string]string // email -> id
	lastMeta map[string]any
}

func newFakeGoTrue(t *testing.T) (*fakeGoTrue, *httptest.Server) {
	f := &fakeGoTrue{t: t, users: map[string]string{}, emails: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/admin/users", f.createUser)
	mux.HandleFunc("/auth/v1/admin/users/", f.updateUser)
	mux.HandleFunc("/auth/v1/token", f.token)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGoTrue) requireKey(w http.ResponseWriter, r *http.Request, key string) bool {
	if r.Header.Get("apikey") != key || r.Header.Get("Authorization") != "Bearer "+key {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Invalid API key"}`))
		return false
	}
	return true
}

func (f *fakeGoTrue) createUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !f.requireKey(w, r, "service") {
		return
	}
	var in struct {
		Email        string         `json:"email"`
		Password     string         `json:"password"`
		EmailConfirm bool           `json:"email_confirm"`
		UserMetadata map[string]any `json:"user_metadata"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if _, taken := f.emails[in.Email]; taken {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"msg":"A user with this email address has already been registered"}`))
		return
	}
	if !in.EmailConfirm {
		f.t.Errorf("email_confirm should be true")
	}
	id := "sb-" + in.Email
	f.users[id] = in.Password
	f.emails[in.Email] = id
	f.lastMeta = in.UserMetadata
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "email": in.Email})
}

func (f *fakeGoTrue) updateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut || !f.requireKey(w, r, "service") {
		return
	}
	id := r.URL.Path[len("/auth/v1/admin/users/"):]
	if _, ok := f.users[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"msg":"User not found"}`))
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.users[id] = in.Password
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (f *fakeGoTrue) token(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" || !f.requireKey(w, r, "anon") {
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	id, ok := f.emails[in.Email]
	if !ok || f.users[id] != in.Password {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "at-" + id,
		"refresh_token": "rt-" + id,
		"token_type":    "bearer",
		"expires_in":    3600,
		"user":          map[string]any{"id": id, "email": in.Email},
	})
}

func TestAdminClient_CreateSignInUpdate(t *testing.T) {
	f, srv := newFakeGoTrue(t)
	a := NewAdminClient(AdminConfig{URL: srv.URL + "/", AnonKey: "anon", ServiceRoleKey: "service"}, srv.Client())
	ctx := context.Background()

	if !a.Configured() {
		t.Fatal("client with URL and service key should be configured")
	}

	id, err := a.CreateUser(ctx, "13800138000@phone.login", "pw-1", map[string]any{"phone_number": "13800138000"})
	if err != nil || id != "sb-13800138000@phone.login" {
		t.Fatalf("CreateUser = (%q, %v)", id, err)
	}
	f.mu.Lock()
	meta := f.lastMeta
	f.mu.Unlock()
	if meta["phone_number"] != "13800138000" {
		t.Fatalf("metadata not sent: %v", meta)
	}

	s, err := a.SignIn(ctx, "13800138000@phone.login", "pw-1")
	if err != nil || s.AccessToken != "at-"+id || s.RefreshToken != "rt-"+id || s.ExpiresIn != 3600 || s.User == nil || s.User.ID != id {
		t.Fatalf("SignIn = (%+v, %v)", s, err)
	}

	if err := a.UpdatePassword(ctx, id, "pw-2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := a.SignIn(ctx, "13800138000@phone.login", "pw-1"); err == nil {
		t.Fatal("old password should stop working")
	}
	if _, err := a.SignIn(ctx, "13800138000@phone.login", "pw-2"); err != nil {
		t.Fatalf("new password: %v", err)
	}
}

func TestAdminClient_Errors(t *testing.T) {
	_, srv := newFakeGoTrue(t)
	ctx := context.Background()
	a := NewAdminClient(AdminConfig{URL: srv.URL, AnonKey: "anon", ServiceRoleKey: "service"}, srv.Client())

	if _, err := a.CreateUser(ctx, "dup@phone.login", "x", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name    string
		call    func() error
		status  int
		message string
	}{
		{"duplicate email", func() error { _, err := a.CreateUser(ctx, "dup@phone.login", "x", nil); return err },
			http.StatusUnprocessableEntity, "A user with this email address has already been registered"},
		{"bad credentials", func() error { _, err := a.SignIn(ctx, "dup@phone.login", "wrong"); return err },
			http.StatusBadRequest, "Invalid login credentials"},
		{"unknown user", func() error { return a.UpdatePassword(ctx, "ghost", "x") },
			http.StatusNotFound, "User not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var apiErr *APIError
			if err := tc.call(); !errors.As(err, &apiErr) || apiErr.Status != tc.status || apiErr.Message != tc.message {
				t.Fatalf("err = %v; want APIError %d %q", err, tc.status, tc.message)
			}
		})
	}

	wrongKey := NewAdminClient(AdminConfig{URL: srv.URL, ServiceRoleKey: "nope"}, srv.Client())
	var apiErr *APIError
	if _, err := wrongKey.CreateUser(ctx, "a@phone.login", "x", nil); !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("wrong service key: %v", err)
	}
	if NewAdminClient(AdminConfig{URL: srv.URL}, nil).Configured() {
		t.Fatal("client without service key must not be configured")
	}
}
