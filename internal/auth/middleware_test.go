package auth

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type whoamiOutput struct {
	Body struct {
		Subject string `json:"subject"`
		Role    Role   `json:"role"`
	}
}

func newTestAPI(t *testing.T, issuer *Issuer) humatest.TestAPI {
	_, api := humatest.New(t)
	api.UseMiddleware(Middleware(api, issuer))

	handler := func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		out := &whoamiOutput{}
		if id, ok := IdentityFrom(ctx); ok {
			out.Body.Subject = id.Subject
			out.Body.Role = id.Role
		}
		return out, nil
	}
	huma.Get(api, "/public", handler)
	huma.Get(api, "/me", handler, Protected())
	huma.Get(api, "/admin", handler, Protected(RoleAdmin))
	return api
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer("test-secret")
	api := newTestAPI(t, issuer)

	patient, err := issuer.Issue(Identity{Subject: "p1", Role: RolePatient})
	require.NoError(t, err)

	t.Run("public needs no token", func(t *testing.T) {
		resp := api.Get("/public")
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := api.Get("/me")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := api.Get("/me", "Authorization: Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		resp := api.Get("/me", "Authorization: Bearer "+patient)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"subject":"p1"`)
		assert.Empty(t, resp.Header().Get("Set-Cookie"))
	})

	t.Run("cookie token", func(t *testing.T) {
		resp := api.Get("/me", "Cookie: "+CookieName+"="+patient)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, resp.Header().Get("Set-Cookie"), "fresh session is not refreshed")
	})

	t.Run("role required", func(t *testing.T) {
		resp := api.Get("/admin", "Authorization: Bearer "+patient)
		assert.Equal(t, http.StatusForbidden, resp.Code)

		admin, err := issuer.Issue(Identity{Subject: "a1", Role: RoleAdmin})
		require.NoError(t, err)
		resp = api.Get("/admin", "Authorization: Bearer "+admin)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestSlidingSession(t *testing.T) {
	issuer := NewIssuer("test-secret")
	api := newTestAPI(t, issuer)

	// Token issued 13 hours ago has less than half its lifetime left.
	old := NewIssuer("test-secret")
	old.now = func() time.Time { return time.Now().Add(-13 * time.Hour) }
	token, err := old.Issue(Identity{Subject: "p1", Role: RolePatient})
	require.NoError(t, err)

	resp := api.Get("/me", "Cookie: "+CookieName+"="+token)
	require.Equal(t, http.StatusOK, resp.Code)

	setCookie := resp.Header().Get("Set-Cookie")
	require.NotEmpty(t, setCookie, "expected refreshed auth_token cookie")
	assert.True(t, strings.HasPrefix(setCookie, CookieName+"="))
	assert.Contains(t, setCookie, "HttpOnly")

	cookie, err := http.ParseSetCookie(setCookie)
	require.NoError(t, err)
	claims, err := issuer.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.Subject)
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(20*time.Hour)))
}
