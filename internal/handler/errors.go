package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/service"
)

// Error codes of the {"error": code, "message": msg} envelope.
const (
	codeBadRequest    = "bad_request"
	codeUnauthorized  = "unauthorized"
	codeNotFound      = "not_found"
	codeConflict      = "conflict"
	codeTooLarge      = "payload_too_large"
	codeUpstream      = "upstream_unavailable"
	codeInternalError = "internal_error"
)

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

// respond maps a service error to its HTTP status.  Errors of no known kind
// are logged and reported as a bare 500 so causes never reach the client.
func respond(c echo.Context, log *zap.Logger, err error) error {
	msg := service.Message(err)
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, msg)
	case errors.Is(err, service.ErrUnauthorized):
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, msg)
	case errors.Is(err, service.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, codeNotFound, msg)
	case errors.Is(err, service.ErrConflict):
		return errorJSON(c, http.StatusConflict, codeConflict, msg)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		log.Warn("upstream failure", zap.String("route", c.Path()), zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, codeUpstream, msg)
	}
	log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	return errorJSON(c, http.StatusInternalServerError, codeInternalError, "internal server error")
}

// HTTPErrorHandler renders errors raised outside the handlers (unknown
// routes, body limit, binding) with the same envelope.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		} else {
			log.Error("unhandled error", zap.String("route", c.Path()), zap.Error(err))
		}

		code := codeInternalError
		switch status {
		case http.StatusBadRequest:
			code = codeBadRequest
		case http.StatusUnauthorized:
			code = codeUnauthorized
		case http.StatusNotFound:
			code = codeNotFound
		case http.StatusRequestEntityTooLarge:
			code = codeTooLarge
		default:
			if status < 500 {
				code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = errorJSON(c, status, code, msg)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
