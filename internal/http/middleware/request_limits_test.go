package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/social-idm/internal/httputil"
)

// loginLike decodes a small JSON body the way the login handler does.
func loginLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		IDToken  string `json:"id_token"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		if httputil.IsBodyTooLarge(err) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestRequestSizeLimit(t *testing.T) {
	small := `{"provider":"google","id_token":"abc"}`
	large := `{"provider":"google","id_token":"` + string(bytes.Repeat([]byte("x"), 256)) + `"}`

	tests := []struct {
		name       string
		maxBytes   int64
		body       string
		wantStatus int
	}{
		{name: "within limit", maxBytes: 128, body: small, wantStatus: http.StatusOK},
		{name: "exact limit", maxBytes: int64(len(small)), body: small, wantStatus: http.StatusOK},
		{name: "over limit", maxBytes: 128, body: large, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "limit disabled", maxBytes: 0, body: large, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequestSizeLimit(tt.maxBytes)(http.HandlerFunc(loginLike))
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/social/login", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
