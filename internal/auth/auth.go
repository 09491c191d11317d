package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Context key for user ID
type contextKey string

const UserIDKey contextKey = "userID"

const SessionCookieName = "session_id"

// Session lifetimes. Remembered sessions get a persistent cookie, others a
// browser-session cookie backed by a 24h row.
const (
	SessionTTL         = 24 * time.Hour
	RememberSessionTTL = 30 * 24 * time.Hour
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

// WithUserID returns a context carrying the authenticated user's id.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// SetSessionCookie sets the session cookie. A remembered session survives
// browser restarts; otherwise the cookie is scoped to the browser session.
func SetSessionCookie(w http.ResponseWriter, sessionID string, remember bool) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		c.MaxAge = int(RememberSessionTTL / time.Second)
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
