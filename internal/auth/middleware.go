package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name operations use to require a token.
const SecurityScheme = "bearerAuth"

// rolesKey holds []Role in an operation's Metadata.
const rolesKey = "roles"

// Protected marks an operation as requiring a token, optionally restricted
// to roles.
func Protected(roles ...Role) func(o *huma.Operation) {
	return func(o *huma.Operation) {
		o.Security = []map[string][]string{{SecurityScheme: {}}, {"cookieAuth": {}}}
		if len(roles) > 0 {
			if o.Metadata == nil {
				o.Metadata = map[string]any{}
			}
			o.Metadata[rolesKey] = roles
		}
	}
}

func tokenFrom(ctx huma.Context) (token string, fromCookie bool) {
	if h := ctx.Header("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), false
	}
	if c, err := huma.ReadCookie(ctx, CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// Middleware authenticates operations marked with Protected. Cookie sessions
// past half their lifetime get a fresh cookie.
func Middleware(api huma.API, issuer *Issuer) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || len(op.Security) == 0 {
			next(ctx)
			return
		}

		token, fromCookie := tokenFrom(ctx)
		if token == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: No token found")
			return
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}
		id := Identity{Subject: claims.Subject, Role: claims.Role, Email: claims.Email, CenterID: claims.Center}

		if roles, ok := op.Metadata[rolesKey].([]Role); ok && !slices.Contains(roles, id.Role) {
			huma.WriteErr(api, ctx, http.StatusForbidden, "Forbidden: insufficient role")
			return
		}

		if fromCookie && claims.ExpiresAt != nil {
			if remaining := claims.ExpiresAt.Sub(issuer.now()); remaining < issuer.ttl/2 {
				if fresh, err := issuer.Issue(id); err == nil {
					cookie := &http.Cookie{
						Name:     CookieName,
						Value:    fresh,
						Expires:  issuer.now().Add(issuer.ttl),
						HttpOnly: true,
						Path:     "/",
					}
					ctx.AppendHeader("Set-Cookie", cookie.String())
				}
			}
		}

		next(huma.WithValue(ctx, identityKey, id))
	}
}
