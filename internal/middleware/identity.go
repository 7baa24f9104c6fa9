package middleware

// identity.go defines helpers shared across middleware files and handlers
// for reading the authenticated caller that JWTAuth stored in the context.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" when the request did not
// pass through JWTAuth.
func UserID(c echo.Context) string {
	v, _ := c.Get(CtxUserID).(string)
	return v
}

// limiterIdentity is the user part of rate-limit and cache keys.  It returns
// "guest" when no user is authenticated.
func limiterIdentity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "guest"
}
