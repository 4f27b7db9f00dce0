package httpapi

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"iskolar.org/internal/audit"
	"iskolar.org/internal/auth"
	"iskolar.org/internal/obs"
	"iskolar.org/internal/stream"
	"iskolar.org/internal/student"
)

// ReadyProbe reports whether the backing store can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config tunes the HTTP layer. Zero values fall back to defaults fit for
// local development.
type Config struct {
	Version      string
	CookieName   string
	CookieSecure bool
	RateBurst    int
	RatePerSec   float64
}

// Login attempts get a tighter per-IP bucket than the general limiter.
const (
	loginRateBurst  = 8
	loginRatePerSec = 0.5
)

// API is the HTTP layer of the console.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	students student.Service
	probe    ReadyProbe
	log      zerolog.Logger
	audit    *audit.Recorder
	stream   *stream.Stream

	version      string
	cookieName   string
	cookieSecure bool
	rateBurst    int
	ratePerSec   float64
}

// New wires every route. The audit recorder and activity stream may be nil.
func New(cfg Config, authSvc *auth.Service, students student.Service, probe ReadyProbe, log zerolog.Logger, rec *audit.Recorder, st *stream.Stream) *API {
	a := &API{
		mux:          http.NewServeMux(),
		auth:         authSvc,
		students:     students,
		probe:        probe,
		log:          log,
		audit:        rec,
		stream:       st,
		version:      cfg.Version,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		rateBurst:    cfg.RateBurst,
		ratePerSec:   cfg.RatePerSec,
	}
	if a.version == "" {
		a.version = "dev"
	}
	if a.cookieName == "" {
		a.cookieName = "iskolar_session"
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.readyz)
	a.mux.HandleFunc("/v1/info", a.info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// browser login page
	a.mux.HandleFunc("/login", a.loginPage)

	// sessions
	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), loginRateBurst, loginRatePerSec))
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// console accounts
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)

	// scholar records
	a.mux.HandleFunc("/v1/students", a.handleStudentsCollection)
	a.mux.HandleFunc("/v1/students/", a.handleStudentResource)

	// live activity feed
	a.mux.HandleFunc("/v1/events", a.handleEvents)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withSession(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = a.requestLogger(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "iskolar-api",
		"version": a.version,
	})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "iskolar-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) loginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, loginPageHTML)
}

// record forwards to the audit recorder when one is wired.
func (a *API) record(ctx context.Context, event string, fields map[string]any) {
	if a.audit != nil {
		a.audit.Record(ctx, event, fields)
	}
}

// loginPageHTML is a dependency-free sign-in form. The real console frontend
// is deployed separately; this page keeps the API usable on its own.
const loginPageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Iskolar Admin Console</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; justify-content: center; padding-top: 10vh; background: #f4f6f8; }
form { background: #fff; padding: 2rem; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.15); width: 20rem; }
label { display: block; margin-bottom: .75rem; font-size: .9rem; }
input[type=email], input[type=password] { width: 100%; padding: .5rem; margin-top: .25rem; box-sizing: border-box; }
button { width: 100%; padding: .6rem; margin-top: .5rem; }
</style>
</head>
<body>
<form method="post" action="/v1/auth/login">
<h1>Iskolar sign in</h1>
<label>Email<input type="email" name="email" autocomplete="username" required></label>
<label>Password<input type="password" name="password" autocomplete="current-password" required></label>
<label><input type="checkbox" name="remember_me" value="true"> Remember me</label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`
