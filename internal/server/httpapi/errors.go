package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/labstack/echo/v4"
)

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

// statusFor maps every error kind to its HTTP status.
func statusFor(e *common.Error) int {
	switch e.Kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindConflict:
		return http.StatusConflict
	case common.KindAuthentication:
		return http.StatusUnauthorized
	case common.KindAuthorization:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindDependency:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// fromHTTPError classifies errors raised by echo itself: unknown routes,
// wrong methods and undecodable bodies.
func fromHTTPError(he *echo.HTTPError) *common.Error {
	switch he.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return &common.Error{Kind: common.KindNotFound, Message: "route not found", Err: he}
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return &common.Error{Kind: common.KindValidation, Message: "malformed request", Err: he}
	}
	return common.Dependency(he, false)
}

// handleError writes exactly one JSON error body per failed request.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	var e *common.Error
	switch {
	case errors.As(err, &e):
	case errors.As(err, &he):
		e = fromHTTPError(he)
	default:
		e = common.AsError(err)
	}

	status := statusFor(e)
	body := errorBody{Error: errorPayload{
		Kind:    e.Kind.String(),
		Message: e.Message,
		Field:   e.Field,
	}}
	if e.Kind == common.KindDependency && !s.production && e.Err != nil {
		body.Error.Detail = e.Err.Error()
	}
	if e.Kind == common.KindDependency {
		s.logger.Error(c.Request().Context(), "request failed", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err)
	}
}
