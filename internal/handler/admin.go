package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// AdminHandler flips seat state without selling tickets.
type AdminHandler struct {
	svc BookingService
}

func NewAdminHandler(svc BookingService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Occupy handles POST /v1/admin/seats/:code/occupy.
func (h *AdminHandler) Occupy(c echo.Context) error {
	return h.transition(c, h.svc.OccupySeat)
}

// Release handles POST /v1/admin/seats/:code/release.
func (h *AdminHandler) Release(c echo.Context) error {
	return h.transition(c, h.svc.ReleaseSeat)
}

func (h *AdminHandler) transition(c echo.Context, apply func(context.Context, *model.Seat) (bool, error)) error {
	seat, err := model.ParseSeatCode(c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	changed, err := apply(ctx, seat)
	if err != nil {
		return writeError(c, err)
	}
	got, err := h.svc.Seat(ctx, seat)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": toSeatResp(*got), "changed": changed})
}
