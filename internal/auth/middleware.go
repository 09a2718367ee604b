package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const sessionCookieName = "session_token"

// Middleware resolves the session cookie against the store and puts the
// user's id into the request context. Requests without a valid, unexpired
// session get 401.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil {
				respondUnauthorized(w)
				return
			}

			token, err := uuid.FromString(cookie.Value)
			if err != nil {
				respondUnauthorized(w)
				return
			}

			session, err := store.GetByToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					log.Error().Err(err).Msg("auth: failed to look up session")
				}
				respondUnauthorized(w)
				return
			}

			if session.Expired(time.Now()) {
				respondUnauthorized(w)
				return
			}

			ctx := WithUserID(r.Context(), session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
