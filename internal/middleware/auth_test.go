package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/fleet"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := auth.NewService("test-secret", 0)
	middleware := NewAuthMiddleware(authService)

	// Test successful authentication
	t.Run("valid token", func(t *testing.T) {
		token, _ := authService.GenerateToken("u-7", "Night Shift")

		req := httptest.NewRequest("POST", "/api/jobcards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetActorFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "u-7", claims.Subject)
			assert.Equal(t, "Night Shift", fleet.ActorFrom(r.Context()))
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	// Missing header means anonymous
	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/vehicles", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			_, ok := GetActorFromContext(r.Context())
			assert.False(t, ok)
			assert.Empty(t, fleet.ActorFrom(r.Context()))
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	for name, header := range map[string]string{
		"invalid token":  "Bearer invalid-token",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"foreign secret": "Bearer " + mustToken(t, auth.NewService("other-secret", 0)),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/vehicles", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.False(t, handlerCalled)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	// Test skipped paths
	t.Run("health ignores bad tokens", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func mustToken(t *testing.T, s *auth.Service) string {
	t.Helper()
	token, err := s.GenerateToken("intruder", "")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:80", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:80", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
