package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
)

const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusFor maps a failure kind onto an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NullReference:
		return http.StatusBadRequest
	case apperr.OutOfRange:
		return http.StatusUnprocessableEntity
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}.  Storage failures are
// reported without their cause; the service has already logged it.
func writeError(c echo.Context, err error) error {
	status := statusFor(apperr.KindOf(err))
	msg := "internal error"
	var ae *apperr.Error
	if status != http.StatusInternalServerError && errors.As(err, &ae) {
		msg = ae.Msg
	}
	return c.JSON(status, echo.Map{"error": msg})
}
