package api

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// Protect guards every unsafe method with a CSRF token. The forms embed
// the token through csrf.TemplateField. Without secure, requests are
// marked plaintext so the HTTPS referer check does not reject them.
func Protect(next http.Handler, key []byte, secure bool) http.Handler {
	h := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)(next)
	if secure {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
