package middleware

import (
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie identifying an anonymous browser session.
const SessionCookieName = "colloquy_session"

// sessionCookieMaxAge keeps the browser session for thirty days.
const sessionCookieMaxAge = 30 * 24 * 60 * 60

// SessionKey ensures every request carries an anonymous session key. The key
// is read from the session cookie, or generated and set on the response when
// the cookie is missing or malformed.
func SessionKey(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if c, err := r.Cookie(SessionCookieName); err == nil {
				if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
					key = c.Value
				}
			}

			if key == "" {
				key = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    key,
					Path:     "/",
					MaxAge:   sessionCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(shared.WithSessionKey(r.Context(), key)))
		})
	}
}
