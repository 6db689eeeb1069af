package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tendant/social-idm/pkg/auth"
)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(auth.TokenConfig{JWTSecret: []byte("middleware-test-secret")}, nil)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestAuth(t *testing.T) {
	tokens := newTokenService(t)
	pair, err := tokens.IssueForUser(t.Context(), 42)
	if err != nil {
		t.Fatalf("IssueForUser: %v", err)
	}

	var gotID int64
	handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetAccountID(r.Context())
		if !ok {
			t.Error("account id missing from context")
		}
		if _, ok := GetClaims(r.Context()); !ok {
			t.Error("claims missing from context")
		}
		gotID = id
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.AccessToken) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "lowercase scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer "+pair.AccessToken) },
			wantStatus: http.StatusOK,
		},
		{
			name: "cookie fallback",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: pair.AccessToken})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "refresh token is not an access token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.RefreshToken) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic "+pair.AccessToken) },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID = 0
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotID != 42 {
				t.Errorf("account id = %d, want 42", gotID)
			}
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	svc, err := auth.NewTokenService(auth.TokenConfig{
		JWTSecret:      []byte("middleware-test-secret"),
		AccessTokenTTL: time.Nanosecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	pair, err := svc.IssueForUser(t.Context(), 1)
	if err != nil {
		t.Fatalf("IssueForUser: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	handler := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an expired token")
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGetAccountID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := GetAccountID(req.Context()); ok {
		t.Error("expected no account id")
	}
}
