package middleware

import (
	"net/http"
	"time"

	"notesapp/internal/auth"
	"notesapp/internal/store"
)

// RequireAuth resolves the session cookie to a user id, stores it in the
// request context and redirects unauthenticated browsers to the login page.
func RequireAuth(s store.Store, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sess, err := s.GetSession(cookie.Value)
		if err != nil || sess.ExpiresAt.Before(time.Now()) {
			auth.ClearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(auth.WithUserID(r.Context(), sess.UserID)))
	}
}
