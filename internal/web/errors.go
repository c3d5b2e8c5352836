package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pathwayhr/pathway/internal/fault"
)

// statusByKind maps the engine's error taxonomy onto HTTP statuses.
var statusByKind = map[fault.Kind]int{
	fault.KindUnauthorized: http.StatusUnauthorized,
	fault.KindForbidden:    http.StatusForbidden,
	fault.KindNotFound:     http.StatusNotFound,
	fault.KindConflict:     http.StatusConflict,
	fault.KindValidation:   http.StatusBadRequest,
	fault.KindRateLimited:  http.StatusTooManyRequests,
}

// httpError converts an engine error into an echo HTTP error. Classified
// errors are reported verbatim; anything else is a 500 with a generic
// message so internals don't leak.
func httpError(err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return echo.NewHTTPError(statusByKind[fe.Kind], fe.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
