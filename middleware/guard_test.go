package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	gorefresh "github.com/averix07/goRefresh"
)

type staticProvider struct{}

func (staticProvider) Authenticate(_ context.Context, identifier, password string) (gorefresh.UserRecord, error) {
	if identifier != "alice" || password != "correct-password-123" {
		return gorefresh.UserRecord{}, gorefresh.ErrInvalidCredentials
	}
	return gorefresh.UserRecord{UserID: "user-1", Identifier: identifier}, nil
}

func newGuardedEngine(t *testing.T) (*gorefresh.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		mr.Close()
		t.Fatalf("generate ed25519 key: %v", err)
	}

	cfg := gorefresh.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	engine, err := gorefresh.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(staticProvider{}).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func TestGuardRejectsMissingHeader(t *testing.T) {
	engine, cleanup := newGuardedEngine(t)
	defer cleanup()

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardRejectsMalformedAuthorization(t *testing.T) {
	engine, cleanup := newGuardedEngine(t)
	defer cleanup()

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run without credentials")
	}))

	for _, value := range []string{"Bearer", "Bearer ", "Basic abc", "token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", value)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Authorization %q: status = %d, want 401", value, rec.Code)
		}
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	engine, cleanup := newGuardedEngine(t)
	defer cleanup()

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run for an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardInjectsAuthResult(t *testing.T) {
	engine, cleanup := newGuardedEngine(t)
	defer cleanup()

	pair, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var got *gorefresh.AuthResult
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Fatal("AuthResult missing from request context")
		}
		got = res
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != "user-1" {
		t.Fatalf("AuthResult = %+v, want UserID user-1", got)
	}
	if got.FamilyID == "" {
		t.Fatal("AuthResult.FamilyID is empty")
	}
}
