package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(secret, "u1", RoleVendor, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleVendor, claims.Role)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	tok, err := GenerateToken(secret, "u1", RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken([]byte("other-secret"), tok)
	assert.Error(t, err)

	_, err = ValidateToken(secret, "not.a.token")
	assert.Error(t, err)

	expired, err := GenerateToken(secret, "u1", RoleUser, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.Error(t, err)
}

func TestAuthenticateMiddleware(t *testing.T) {
	g := &Guard{Secret: secret}

	var got Actor
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// no header
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// malformed scheme
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token lands the actor in context
	tok, err := GenerateToken(secret, "u1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Actor{ID: "u1", Role: RoleAdmin}, got)
	assert.True(t, got.IsAdmin())
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(RoleAdmin, RoleVendor)(next)

	serve := func(actor *Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(WithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&Actor{ID: "u1", Role: RoleUser}))
	assert.Equal(t, http.StatusNoContent, serve(&Actor{ID: "v1", Role: RoleVendor}))
	assert.Equal(t, http.StatusNoContent, serve(&Actor{ID: "a1", Role: RoleAdmin}))
}
