package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// HostSecretHeader carries the host capability token on privileged calls.
// The hostSecret query parameter is accepted as well, for EventSource and
// WebSocket clients that cannot set headers.
const HostSecretHeader = "X-Session-Host-Secret"

// HostValidator checks a host secret against a session. A false return does
// not distinguish an unknown room from a wrong secret.
type HostValidator interface {
	ValidateHost(ctx context.Context, sessionID, hostSecret string) bool
}

// Auth guards host-privileged routes.
type Auth struct {
	sessions HostValidator
}

// NewAuth creates the middleware.
func NewAuth(sessions HostValidator) *Auth {
	return &Auth{sessions: sessions}
}

// HostSecret extracts the host secret from header or query.
func HostSecret(r *http.Request) string {
	if secret := r.Header.Get(HostSecretHeader); secret != "" {
		return secret
	}
	return r.URL.Query().Get("hostSecret")
}

// RequireHost rejects requests whose secret does not validate against the
// session named in the route. The response never reveals whether the room
// exists.
func (m *Auth) RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["sessionID"]
		if !m.sessions.ValidateHost(r.Context(), sessionID, HostSecret(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
