package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

// HeaderUserID carries the opaque identity of the caller.
const HeaderUserID = "X-User-ID"

const maxUserIDLen = 128

type userKey struct{}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// requireUser rejects requests without a usable X-User-ID and stores the id
// in the request context.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(HeaderUserID))
		if userID == "" || len(userID) > maxUserIDLen {
			UnauthorizedError("missing or invalid " + HeaderUserID + " header").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the id set by requireUser.
func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// today is the calendar date of now in UTC.
func today(now func() time.Time) core.Date {
	y, m, d := now().UTC().Date()
	return core.NewDate(y, int(m), d)
}
