package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
)

// RegisterMovies registers the catalog endpoints under /movies.  Every
// route requires a valid access token, which runs first so the remaining
// middleware (body limit, rate limit, cache) keys on the caller.  Any extra
// middleware is applied in the given order after authentication.
func RegisterMovies(e *echo.Echo, m *handler.MovieHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	g := e.Group("/movies", append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mws...)...)

	g.POST("", m.Create)
	g.GET("", m.List)
	g.GET("/:id", m.Get)
	g.PUT("/:id", m.Update)
	g.DELETE("/:id", m.Delete)
}
