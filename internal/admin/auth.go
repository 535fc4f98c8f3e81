package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vkart/vkart-bot/internal/fulfillment"
)

// Auth guards the admin routes with a single shared bearer token. The
// comparison is constant time so the token length is the only thing a timing
// probe can learn.
type Auth struct {
	token string
}

func NewAuth(token string) *Auth {
	return &Auth{token: token}
}

func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" || !a.validBearer(r.Header.Get("Authorization")) {
			respondError(w, http.StatusUnauthorized, fulfillment.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) validBearer(header string) bool {
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1
}
