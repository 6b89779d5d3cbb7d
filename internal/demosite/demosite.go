// Package demosite serves target pages with known audit characteristics.
// It backs the cmd/demosite binary for manual walkthroughs and doubles as
// an httptest fixture source in end-to-end style tests.
package demosite

import (
	"fmt"
	"net/http"
)

// Config tunes the standalone demo server.
type Config struct {
	Port int
}

// DefaultConfig returns the standard demo port.
func DefaultConfig() Config {
	return Config{Port: 9797}
}

// Handler returns the demo site router. Paths:
//
//	/good    well-formed page that should score high on every criterion
//	/bad     page violating most checks
//	/cookie  page setting cookies with and without flags
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", indexHandler)
	mux.HandleFunc("/good", pageHandler(GoodPage, true))
	mux.HandleFunc("/bad", pageHandler(BadPage, false))
	mux.HandleFunc("/cookie", cookieHandler)
	return mux
}

// Serve runs the demo site until the listener fails.
func Serve(cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Demo site listening on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, Handler())
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, IndexPage)
}

func pageHandler(body string, hardened bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if hardened {
			setSecurityHeaders(w.Header())
		}
		writeHTML(w, body)
	}
}

func cookieHandler(w http.ResponseWriter, _ *http.Request) {
	setSecurityHeaders(w.Header())
	w.Header().Add("Set-Cookie", "session=demo; Secure; HttpOnly; SameSite=Lax")
	w.Header().Add("Set-Cookie", "prefs=compact")
	writeHTML(w, CookiePage)
}

func setSecurityHeaders(h http.Header) {
	h.Set("Strict-Transport-Security", "max-age=63072000")
	h.Set("Content-Security-Policy", "default-src 'self'")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Permissions-Policy", "geolocation=()")
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
