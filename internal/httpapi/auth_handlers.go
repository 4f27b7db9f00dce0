package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/obs"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	Account   auth.AccountView `json:"account"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// handleLogin verifies credentials and sets the session cookie. Every
// credential failure produces the same answer; callers cannot tell an unknown
// email from a wrong password.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	req, fromForm, err := readLoginRequest(w, r)
	if err != nil {
		if fromForm {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput),
			errors.Is(err, auth.ErrAccountNotFound),
			errors.Is(err, auth.ErrBadPassword):
			obs.ObserveLogin("denied")
			if fromForm {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrStoreFault):
			obs.ObserveLogin("error")
			writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
		default:
			obs.ObserveLogin("error")
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	obs.ObserveLogin("ok")
	a.setSessionCookie(w, res.Token, res.Session)
	a.record(r.Context(), "auth.login", map[string]any{
		"account_id": res.Account.ID,
		"role":       string(res.Account.Role),
		"remember":   res.Session.Remember,
	})

	if fromForm {
		http.Redirect(w, r, "/v1/auth/me", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Account:   res.Account,
		ExpiresAt: res.Session.ExpiresAt,
	})
}

// handleLogout revokes the presented session, if any, and clears the cookie.
// It succeeds no matter what was presented.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if token := a.sessionToken(r); token != "" {
		if err := a.auth.Logout(r.Context(), token); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		a.record(r.Context(), "auth.logout", nil)
	}
	a.clearSessionCookie(w)

	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the sanitized account behind the current session.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	account, err := a.auth.GetAccount(r.Context(), identity.AccountID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Account: account.View(),
		Scope:   scopeView(identity.Scope),
	})
}

type meResponse struct {
	Account auth.AccountView `json:"account"`
	Scope   scopePayload     `json:"scope"`
}

type scopePayload struct {
	All      bool   `json:"all"`
	Barangay string `json:"barangay,omitempty"`
}

func scopeView(s auth.Scope) scopePayload {
	return scopePayload{All: s.All, Barangay: s.Barangay}
}

// readLoginRequest accepts the JSON body the console frontend sends and the
// urlencoded body the built-in login page posts. The second return value
// reports which one arrived so failures can answer in kind.
func readLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, bool, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, true, errors.New("malformed form body")
		}
		return loginRequest{
			Email:      r.PostFormValue("email"),
			Password:   r.PostFormValue("password"),
			RememberMe: parseCheckbox(r.PostFormValue("remember_me")),
		}, true, nil
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return loginRequest{}, false, err
	}
	return req, false, nil
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// setSessionCookie installs the token as an HTTP-only cookie. Persistent
// cookies are only set for remembered sessions; otherwise the cookie dies
// with the browser while the server-side row still enforces the real horizon.
func (a *API) setSessionCookie(w http.ResponseWriter, token string, sess auth.Session) {
	c := &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if sess.Remember {
		c.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, c)
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}
