package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// BookingService is the subset of booking.Service used over HTTP.
type BookingService interface {
	ListSeats(ctx context.Context) ([]model.Seat, error)
	ListFree(ctx context.Context) ([]model.Seat, error)
	ListOccupied(ctx context.Context) ([]model.Seat, error)
	Layout(ctx context.Context) (model.HallLayout, error)
	Seat(ctx context.Context, seat *model.Seat) (*model.Seat, error)
	GetPrice(ctx context.Context, seat *model.Seat) (int, error)
	OccupySeat(ctx context.Context, seat *model.Seat) (bool, error)
	ReleaseSeat(ctx context.Context, seat *model.Seat) (bool, error)
	Purchase(ctx context.Context, seat *model.Seat, account *model.Account) (*model.Ticket, error)
	Ticket(ctx context.Context, code string) (*model.Ticket, error)
}

// SeatHandler serves the read-only seating chart.
type SeatHandler struct {
	svc BookingService
}

func NewSeatHandler(svc BookingService) *SeatHandler {
	return &SeatHandler{svc: svc}
}

type seatResp struct {
	Code     string `json:"code"`
	Row      int    `json:"row"`
	Number   int    `json:"number"`
	Occupied bool   `json:"occupied"`
	Price    int    `json:"price"`
}

func toSeatResp(s model.Seat) seatResp {
	return seatResp{Code: s.Code(), Row: s.Row, Number: s.Number, Occupied: s.Occupied, Price: s.Price}
}

func toSeatList(seats []model.Seat) []seatResp {
	out := make([]seatResp, 0, len(seats))
	for _, s := range seats {
		out = append(out, toSeatResp(s))
	}
	return out
}

// List handles GET /v1/seats.
func (h *SeatHandler) List(c echo.Context) error {
	return h.list(c, h.svc.ListSeats)
}

// ListFree handles GET /v1/seats/free.
func (h *SeatHandler) ListFree(c echo.Context) error {
	return h.list(c, h.svc.ListFree)
}

// ListOccupied handles GET /v1/seats/occupied.
func (h *SeatHandler) ListOccupied(c echo.Context) error {
	return h.list(c, h.svc.ListOccupied)
}

func (h *SeatHandler) list(c echo.Context, fetch func(context.Context) ([]model.Seat, error)) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	seats, err := fetch(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": toSeatList(seats)})
}

// Hall handles GET /v1/hall and returns the stored extent of the hall.
func (h *SeatHandler) Hall(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	layout, err := h.svc.Layout(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, layout)
}

// Get handles GET /v1/seats/:code with the seat state and price.
func (h *SeatHandler) Get(c echo.Context) error {
	seat, err := model.ParseSeatCode(c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	got, err := h.svc.Seat(ctx, seat)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSeatResp(*got))
}

// Price handles GET /v1/seats/:code/price.
func (h *SeatHandler) Price(c echo.Context) error {
	seat, err := model.ParseSeatCode(c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	price, err := h.svc.GetPrice(ctx, seat)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"code": seat.Code(), "price": price})
}
