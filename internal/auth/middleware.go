package auth

import (
	"net/http"

	"github.com/fomet/fomet/internal/shared"
)

// RequireLogin redirects anonymous requests to the login page. JSON clients
// get 401 instead.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if wantsJSON(r) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// PrincipalFromRequest returns the logged-in principal of r.
func PrincipalFromRequest(r *http.Request) (shared.Principal, bool) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		return shared.Principal{}, false
	}
	return *p, true
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || r.Header.Get("Content-Type") == "application/json"
}
