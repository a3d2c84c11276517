package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityEcho writes the resolved user id, or fails the test if none is attached.
func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok, "identity missing from context")
		_, _ = w.Write([]byte(id.UserID))
	})
}

func TestMiddleware_BearerHeader(t *testing.T) {
	iss := newTestIssuer(t)
	tok, _, err := iss.Issue("alice-id")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	Middleware(iss)(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice-id", rec.Body.String())
}

func TestMiddleware_CookieFallback(t *testing.T) {
	iss := newTestIssuer(t)
	tok, _, err := iss.Issue("bob-id")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: tok})
	rec := httptest.NewRecorder()

	Middleware(iss)(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob-id", rec.Body.String())
}

func TestMiddleware_CookieUsedWhenHeaderIsNotBearer(t *testing.T) {
	iss := newTestIssuer(t)
	tok, _, err := iss.Issue("dave-id")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: tok})
	rec := httptest.NewRecorder()

	Middleware(iss)(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dave-id", rec.Body.String())
}

func TestMiddleware_Rejections(t *testing.T) {
	iss := newTestIssuer(t)
	expired, _, err := iss.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Issue("carol-id")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing", "", apperr.CodeMissingToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", apperr.CodeMissingToken},
		{"empty bearer", "Bearer ", apperr.CodeMissingToken},
		{"garbage", "Bearer garbage", apperr.CodeInvalidToken},
		{"expired", "Bearer " + expired, apperr.CodeExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/diary/history", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("protected handler must not run")
			})
			Middleware(iss)(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithIdentity(req.Context(), Identity{})
	_, ok = IdentityFromContext(ctx)
	assert.False(t, ok, "blank identity must not count as authenticated")
}
