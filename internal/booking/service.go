// Package booking exposes the seat and ticket operations used by the HTTP
// layer.  Every operation validates its arguments before touching
// storage and reports failures as apperr kinds.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
	"github.com/iliyamo/cinema-hall-booking/internal/metrics"
	"github.com/iliyamo/cinema-hall-booking/internal/model"
	"github.com/iliyamo/cinema-hall-booking/internal/queue"
	"github.com/iliyamo/cinema-hall-booking/internal/repository"
	"github.com/iliyamo/cinema-hall-booking/internal/validate"
)

// SeatStore is the seat directory.
type SeatStore interface {
	ListAll(ctx context.Context) ([]model.Seat, error)
	ListByOccupied(ctx context.Context, occupied bool) ([]model.Seat, error)
	Get(ctx context.Context, row, number int) (*model.Seat, error)
	Price(ctx context.Context, row, number int) (int, error)
	SetOccupied(ctx context.Context, row, number int, occupied bool) (bool, error)
	Layout(ctx context.Context) (model.HallLayout, error)
}

// Ledger runs the purchase transaction.
type Ledger interface {
	Purchase(ctx context.Context, seat model.Seat, account model.Account, code string) (*model.Ticket, error)
}

// TicketFinder looks tickets up by code.
type TicketFinder interface {
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
}

// Publisher delivers purchase events to the broker.
type Publisher interface {
	PublishTicketPurchased(ctx context.Context, ev queue.TicketPurchasedEvent) error
}

// CacheInvalidator drops cached seat listings after a seat changes state.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Option configures optional collaborators of the Service.
type Option func(*Service)

// WithPublisher publishes a TicketPurchasedEvent after each purchase.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithCacheInvalidator drops cached listings after every seat change.
func WithCacheInvalidator(c CacheInvalidator) Option { return func(s *Service) { s.cache = c } }

// WithCodeGenerator replaces the UUID ticket code generator.
func WithCodeGenerator(gen func() string) Option { return func(s *Service) { s.newCode = gen } }

const sideEffectTimeout = 5 * time.Second

// Service implements the booking operations on top of the seat directory
// and the purchase ledger.
type Service struct {
	seats     SeatStore
	ledger    Ledger
	tickets   TicketFinder
	validator *validate.Validator
	log       logrus.FieldLogger
	events    Publisher
	cache     CacheInvalidator
	newCode   func() string
}

// New builds a Service.  seats, ledger, tickets, validator and log are
// required.
func New(seats SeatStore, ledger Ledger, tickets TicketFinder, validator *validate.Validator, log logrus.FieldLogger, opts ...Option) *Service {
	if seats == nil || ledger == nil || tickets == nil || validator == nil || log == nil {
		panic("nil dependency passed to booking.New")
	}
	s := &Service{
		seats:     seats,
		ledger:    ledger,
		tickets:   tickets,
		validator: validator,
		log:       log,
		newCode:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSeats returns every seat ordered by row then number.  An empty hall
// is reported as NotFound rather than an empty slice.
func (s *Service) ListSeats(ctx context.Context) ([]model.Seat, error) {
	seats, err := s.seats.ListAll(ctx)
	if err != nil {
		return nil, s.fail("list seats", err)
	}
	if len(seats) == 0 {
		return nil, apperr.New(apperr.NotFound, "there are no seats in the hall")
	}
	return seats, nil
}

// ListFree returns the free seats, NotFound when none are left.
func (s *Service) ListFree(ctx context.Context) ([]model.Seat, error) {
	seats, err := s.seats.ListByOccupied(ctx, false)
	if err != nil {
		return nil, s.fail("list free seats", err)
	}
	if len(seats) == 0 {
		return nil, apperr.New(apperr.NotFound, "there are no free seats")
	}
	return seats, nil
}

// ListOccupied returns the occupied seats, NotFound when none are taken.
func (s *Service) ListOccupied(ctx context.Context) ([]model.Seat, error) {
	seats, err := s.seats.ListByOccupied(ctx, true)
	if err != nil {
		return nil, s.fail("list occupied seats", err)
	}
	if len(seats) == 0 {
		return nil, apperr.New(apperr.NotFound, "there are no occupied seats")
	}
	return seats, nil
}

// Layout returns the stored extent of the hall.
func (s *Service) Layout(ctx context.Context) (model.HallLayout, error) {
	l, err := s.seats.Layout(ctx)
	if err != nil {
		return model.HallLayout{}, s.fail("hall layout", err)
	}
	if l.Rows == 0 {
		return model.HallLayout{}, apperr.New(apperr.NotFound, "there are no seats in the hall")
	}
	return l, nil
}

// Seat returns the current state and price of a seat.
func (s *Service) Seat(ctx context.Context, seat *model.Seat) (*model.Seat, error) {
	if err := s.validator.CheckSeat(ctx, seat); err != nil {
		return nil, s.fail("check seat", err)
	}
	got, err := s.seats.Get(ctx, seat.Row, seat.Number)
	if err != nil {
		return nil, s.fail("get seat", seatErr(err, seat))
	}
	return got, nil
}

// IsSeatFree reports whether the seat can still be bought.
func (s *Service) IsSeatFree(ctx context.Context, seat *model.Seat) (bool, error) {
	got, err := s.Seat(ctx, seat)
	if err != nil {
		return false, err
	}
	return !got.Occupied, nil
}

// GetPrice returns the current price of a seat.
func (s *Service) GetPrice(ctx context.Context, seat *model.Seat) (int, error) {
	if err := s.validator.CheckSeat(ctx, seat); err != nil {
		return 0, s.fail("check seat", err)
	}
	price, err := s.seats.Price(ctx, seat.Row, seat.Number)
	if err != nil {
		return 0, s.fail("get price", seatErr(err, seat))
	}
	return price, nil
}

// OccupySeat marks a seat occupied without selling a ticket.  It returns
// false when the seat was already occupied; nothing is written then.
func (s *Service) OccupySeat(ctx context.Context, seat *model.Seat) (bool, error) {
	return s.setOccupied(ctx, seat, true)
}

// ReleaseSeat marks a seat free again.  It returns false when the seat
// was already free.  Tickets already sold for the seat are kept.
func (s *Service) ReleaseSeat(ctx context.Context, seat *model.Seat) (bool, error) {
	return s.setOccupied(ctx, seat, false)
}

func (s *Service) setOccupied(ctx context.Context, seat *model.Seat, occupied bool) (bool, error) {
	transition := "release"
	if occupied {
		transition = "occupy"
	}
	if err := s.validator.CheckSeat(ctx, seat); err != nil {
		return false, s.fail("check seat", err)
	}
	changed, err := s.seats.SetOccupied(ctx, seat.Row, seat.Number, occupied)
	if err != nil {
		return false, s.fail(transition+" seat", err)
	}
	metrics.SeatTransitions.WithLabelValues(transition, strconv.FormatBool(changed)).Inc()
	entry := s.log.WithFields(logrus.Fields{"seat": seat.Code(), "transition": transition})
	if !changed {
		entry.Debug("seat already in requested state")
		return false, nil
	}
	entry.Info("seat state changed")
	s.invalidate(ctx)
	return true, nil
}

// Purchase sells seat to account.  Both arguments are validated first;
// the seat is then occupied, the account created or its phone updated,
// and the ticket recorded in one transaction.  A seat that is already
// occupied fails with Unavailable and creates nothing.
func (s *Service) Purchase(ctx context.Context, seat *model.Seat, account *model.Account) (*model.Ticket, error) {
	if err := s.validator.CheckAccount(account); err != nil {
		metrics.Purchases.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if err := s.validator.CheckSeat(ctx, seat); err != nil {
		metrics.Purchases.WithLabelValues("invalid").Inc()
		return nil, s.fail("check seat", err)
	}

	ticket, err := s.ledger.Purchase(ctx, *seat, *account, s.newCode())
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.Unavailable:
			metrics.Purchases.WithLabelValues("unavailable").Inc()
		case apperr.SystemFailure:
			metrics.Purchases.WithLabelValues("failed").Inc()
		default:
			metrics.Purchases.WithLabelValues("invalid").Inc()
		}
		return nil, s.fail("purchase", err)
	}
	metrics.Purchases.WithLabelValues("ok").Inc()
	s.log.WithFields(logrus.Fields{
		"seat":   seat.Code(),
		"ticket": ticket.Code,
		"name":   account.Name,
		"price":  ticket.Price,
	}).Info("ticket purchased")

	s.invalidate(ctx)
	s.publish(ctx, ticket, account)
	return ticket, nil
}

// Ticket looks a ticket up by its code.
func (s *Service) Ticket(ctx context.Context, code string) (*model.Ticket, error) {
	if code == "" {
		return nil, apperr.New(apperr.NullReference, "ticket code is required")
	}
	t, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, fmt.Sprintf("ticket %s", code))
		}
		return nil, s.fail("get ticket", err)
	}
	return t, nil
}

// fail classifies err, logging it when it is a storage failure.
func (s *Service) fail(op string, err error) error {
	err = apperr.System(err, op)
	if apperr.KindOf(err) == apperr.SystemFailure {
		s.log.WithError(err).WithField("op", op).Error("storage failure")
	}
	return err
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate seat cache")
	}
}

func (s *Service) publish(ctx context.Context, t *model.Ticket, account *model.Account) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	ev := queue.TicketPurchasedEvent{
		TicketCode:  t.Code,
		Row:         t.Row,
		Number:      t.Number,
		Name:        account.Name,
		Phone:       account.Phone,
		Price:       t.Price,
		PurchasedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishTicketPurchased(ctx, ev); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.WithError(err).WithField("ticket", t.Code).Warn("failed to publish ticket event")
	}
}

// seatErr maps a missing seat to OutOfRange; validation normally catches
// this first, but the seat may disappear between the two queries.
func seatErr(err error, seat *model.Seat) error {
	if errors.Is(err, repository.ErrSeatNotFound) {
		return apperr.Wrap(apperr.OutOfRange, err, fmt.Sprintf("seat %s", seat.Code()))
	}
	return err
}
