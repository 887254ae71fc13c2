package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// TicketHandler sells and looks up tickets.
type TicketHandler struct {
	svc BookingService
}

func NewTicketHandler(svc BookingService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// purchaseReq accepts JSON or form bodies.  Missing or malformed values
// are left to the booking layer so they map to the usual error kinds;
// the tags only bound lengths to what the schema stores.
type purchaseReq struct {
	Place string `json:"place" form:"place" validate:"max=8"`
	Name  string `json:"name" form:"name" validate:"max=255"`
	Phone string `json:"phone" form:"phone" validate:"max=64"`
}

// Purchase handles POST /v1/tickets.
func (h *TicketHandler) Purchase(c echo.Context) error {
	var req purchaseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	seat, err := model.ParseSeatCode(req.Place)
	if err != nil {
		return writeError(c, err)
	}
	account := &model.Account{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	ticket, err := h.svc.Purchase(ctx, seat, account)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/tickets/"+ticket.Code)
	return c.JSON(http.StatusCreated, ticket)
}

// Get handles GET /v1/tickets/:code.
func (h *TicketHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	ticket, err := h.svc.Ticket(ctx, strings.TrimSpace(c.Param("code")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}
