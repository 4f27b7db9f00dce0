package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicPaths skip session validation. Logout stays public because it must
// accept expired tokens in order to clear them.
var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/logout",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/login",
	"/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withSession validates the session token on every non-public request and
// attaches the resolved identity to the context. Handlers never see a request
// without one.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := a.sessionToken(r)
		if token == "" {
			obs.ObserveSessionValidation("missing")
			a.unauthenticated(w, r)
			return
		}

		identity, err := a.auth.Validate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrStoreFault):
				obs.ObserveSessionValidation("error")
				writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
			case errors.Is(err, auth.ErrScopeIntegrity):
				obs.ObserveSessionValidation("error")
				writeError(w, r, http.StatusInternalServerError, "account scope misconfigured")
			default:
				obs.ObserveSessionValidation("denied")
				a.unauthenticated(w, r)
			}
			return
		}

		obs.ObserveSessionValidation("ok")
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	})
}

// sessionToken prefers the session cookie and falls back to a bearer header.
func (a *API) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

// unauthenticated answers 401 JSON for API clients and redirects browsers to
// the login page.
func (a *API) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="iskolar"`)
	writeError(w, r, http.StatusUnauthorized, "authentication required")
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// identity pulls the validated identity the protector attached. A miss means
// a handler was wired onto a public path by mistake.
func (a *API) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		a.unauthenticated(w, r)
	}
	return identity, ok
}

// authorize runs the policy and writes the refusal itself when the answer is
// no. Callers use the returned decision's scope to bound reads.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, identity auth.Identity, action auth.Action, target *auth.Target) (auth.Decision, bool) {
	decision, err := auth.Authorize(identity, action, target)
	if err != nil {
		handleAuthError(w, r, err)
		return auth.Decision{}, false
	}
	if !decision.Allowed {
		writeDenied(w, r, decision)
		return decision, false
	}
	return decision, true
}
