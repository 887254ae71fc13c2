package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
	"github.com/iliyamo/cinema-hall-booking/internal/model"
	"github.com/iliyamo/cinema-hall-booking/internal/queue"
	"github.com/iliyamo/cinema-hall-booking/internal/repository"
	"github.com/iliyamo/cinema-hall-booking/internal/validate"
)

// memHall is an in-memory hall.  A single mutex stands in for the row
// lock the MySQL ledger takes.
type memHall struct {
	mu       sync.Mutex
	seats    map[[2]int]*model.Seat
	accounts map[string]string
	tickets  []model.Ticket
	failNext error
}

func newMemHall(rows, numbers, price int) *memHall {
	h := &memHall{seats: map[[2]int]*model.Seat{}, accounts: map[string]string{}}
	for r := 1; r <= rows; r++ {
		for n := 1; n <= numbers; n++ {
			h.seats[[2]int{r, n}] = &model.Seat{Row: r, Number: n, Price: price}
		}
	}
	return h
}

func (h *memHall) list(filter func(model.Seat) bool) []model.Seat {
	out := make([]model.Seat, 0)
	for r := 1; r <= 9; r++ {
		for n := 1; n <= 9; n++ {
			if s, ok := h.seats[[2]int{r, n}]; ok && filter(*s) {
				out = append(out, *s)
			}
		}
	}
	return out
}

func (h *memHall) ListAll(context.Context) ([]model.Seat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list(func(model.Seat) bool { return true }), nil
}

func (h *memHall) ListByOccupied(_ context.Context, occupied bool) ([]model.Seat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list(func(s model.Seat) bool { return s.Occupied == occupied }), nil
}

func (h *memHall) Get(_ context.Context, row, number int) (*model.Seat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.seats[[2]int{row, number}]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *s
	return &cp, nil
}

func (h *memHall) Exists(_ context.Context, row, number int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seats[[2]int{row, number}]
	return ok, nil
}

func (h *memHall) Price(ctx context.Context, row, number int) (int, error) {
	s, err := h.Get(ctx, row, number)
	if err != nil {
		return 0, err
	}
	return s.Price, nil
}

func (h *memHall) SetOccupied(_ context.Context, row, number int, occupied bool) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.seats[[2]int{row, number}]
	if !ok || s.Occupied == occupied {
		return false, nil
	}
	s.Occupied = occupied
	return true, nil
}

func (h *memHall) Layout(context.Context) (model.HallLayout, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var l model.HallLayout
	for k := range h.seats {
		l.Rows = max(l.Rows, k[0])
		l.Seats = max(l.Seats, k[1])
	}
	return l, nil
}

func (h *memHall) Purchase(_ context.Context, seat model.Seat, account model.Account, code string) (*model.Ticket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failNext != nil {
		err := h.failNext
		h.failNext = nil
		return nil, err
	}
	s, ok := h.seats[[2]int{seat.Row, seat.Number}]
	if !ok {
		return nil, apperr.New(apperr.OutOfRange, "not in hall")
	}
	if s.Occupied {
		return nil, apperr.New(apperr.Unavailable, "already occupied")
	}
	// widen the window for concurrent callers
	time.Sleep(time.Millisecond)
	s.Occupied = true
	h.accounts[account.Name] = account.Phone
	t := model.Ticket{
		ID: uint64(len(h.tickets) + 1), Code: code, Row: s.Row, Number: s.Number,
		AccountName: account.Name, Price: s.Price, CreatedAt: time.Now().UTC(),
	}
	h.tickets = append(h.tickets, t)
	return &t, nil
}

func (h *memHall) GetByCode(_ context.Context, code string) (*model.Ticket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.tickets {
		if t.Code == code {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (h *memHall) ticketsFor(row, number int) []model.Ticket {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.Ticket
	for _, t := range h.tickets {
		if t.Row == row && t.Number == number {
			out = append(out, t)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketPurchasedEvent
	err    error
}

func (p *recordingPublisher) PublishTicketPurchased(_ context.Context, ev queue.TicketPurchasedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type countingCache struct{ n atomic.Int32 }

func (c *countingCache) Invalidate(context.Context) error {
	c.n.Add(1)
	return nil
}

func newService(t *testing.T, h *memHall, opts ...Option) (*Service, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	codes := atomic.Int32{}
	opts = append([]Option{WithCodeGenerator(func() string {
		return fmt.Sprintf("ticket-%d", codes.Add(1))
	})}, opts...)
	return New(h, h, h, validate.New(h), log, opts...), hook
}

func TestService_OccupyReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	svc, _ := newService(t, h)

	for r := 1; r <= 3; r++ {
		for n := 1; n <= 3; n++ {
			seat := &model.Seat{Row: r, Number: n}

			changed, err := svc.OccupySeat(ctx, seat)
			require.NoError(t, err)
			assert.True(t, changed)
			free, err := svc.IsSeatFree(ctx, seat)
			require.NoError(t, err)
			assert.False(t, free)

			changed, err = svc.ReleaseSeat(ctx, seat)
			require.NoError(t, err)
			assert.True(t, changed)
			free, err = svc.IsSeatFree(ctx, seat)
			require.NoError(t, err)
			assert.True(t, free)
		}
	}
}

func TestService_OccupySeat_idempotent(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	cache := &countingCache{}
	svc, _ := newService(t, h, WithCacheInvalidator(cache))
	seat := &model.Seat{Row: 2, Number: 2}

	changed, err := svc.OccupySeat(ctx, seat)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.OccupySeat(ctx, seat)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Empty(t, h.ticketsFor(2, 2))
	assert.Equal(t, int32(1), cache.n.Load())
}

func TestService_Purchase(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	pub := &recordingPublisher{}
	cache := &countingCache{}
	svc, hook := newService(t, h, WithPublisher(pub), WithCacheInvalidator(cache))
	seat := &model.Seat{Row: 1, Number: 1}

	price, err := svc.GetPrice(ctx, seat)
	require.NoError(t, err)
	assert.Equal(t, 500, price)

	ticket, err := svc.Purchase(ctx, seat, &model.Account{Name: "Alice", Phone: "555-0100"})
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", ticket.Code)
	assert.Equal(t, 500, ticket.Price)

	free, err := svc.IsSeatFree(ctx, seat)
	require.NoError(t, err)
	assert.False(t, free)

	_, err = svc.Purchase(ctx, seat, &model.Account{Name: "Bob", Phone: "555-0111"})
	assert.True(t, apperr.Is(err, apperr.Unavailable))

	tickets := h.ticketsFor(1, 1)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Alice", tickets[0].AccountName)
	_, bobExists := h.accounts["Bob"]
	assert.False(t, bobExists)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "Alice", pub.events[0].Name)
	assert.Equal(t, "555-0100", pub.events[0].Phone)
	assert.Equal(t, int32(1), cache.n.Load())

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "ticket purchased" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestService_Purchase_updatesPhoneOnRepeatBuyer(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	svc, _ := newService(t, h)

	_, err := svc.Purchase(ctx, &model.Seat{Row: 1, Number: 1}, &model.Account{Name: "Alice", Phone: "555-0100"})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, &model.Seat{Row: 1, Number: 2}, &model.Account{Name: "Alice", Phone: "555-0199"})
	require.NoError(t, err)

	assert.Equal(t, "555-0199", h.accounts["Alice"])
	assert.Len(t, h.accounts, 1)
}

func TestService_Purchase_concurrentSameSeat(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	svc, _ := newService(t, h)
	seat := model.Seat{Row: 3, Number: 3}

	const buyers = 8
	var (
		wg          sync.WaitGroup
		ok          atomic.Int32
		unavailable atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := seat
			_, err := svc.Purchase(ctx, &s, &model.Account{Name: fmt.Sprintf("buyer-%d", i), Phone: "555"})
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.Is(err, apperr.Unavailable):
				unavailable.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(buyers-1), unavailable.Load())
	assert.Len(t, h.ticketsFor(3, 3), 1)
}

func TestService_Purchase_validation(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(3, 3, 500)
	svc, _ := newService(t, h)

	_, err := svc.Purchase(ctx, nil, &model.Account{Name: "Alice"})
	assert.True(t, apperr.Is(err, apperr.NullReference))

	_, err = svc.Purchase(ctx, &model.Seat{Row: 1, Number: 1}, nil)
	assert.True(t, apperr.Is(err, apperr.NullReference))

	_, err = svc.Purchase(ctx, &model.Seat{Row: 99, Number: 1}, &model.Account{Name: "Alice"})
	assert.True(t, apperr.Is(err, apperr.OutOfRange))

	assert.Empty(t, h.tickets)
	all, err := svc.ListSeats(ctx)
	require.NoError(t, err)
	for _, s := range all {
		assert.False(t, s.Occupied)
	}
}

func TestService_Purchase_systemFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(1, 1, 500)
	boom := errors.New("deadlock found")
	h.failNext = boom
	pub := &recordingPublisher{}
	svc, hook := newService(t, h, WithPublisher(pub))

	_, err := svc.Purchase(ctx, &model.Seat{Row: 1, Number: 1}, &model.Account{Name: "Alice"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SystemFailure))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.events)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "purchase", last.Data["op"])
}

func TestService_Purchase_publishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(1, 1, 500)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newService(t, h, WithPublisher(pub))

	ticket, err := svc.Purchase(ctx, &model.Seat{Row: 1, Number: 1}, &model.Account{Name: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.Code)
}

func TestService_Listings(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(2, 2, 500)
	svc, _ := newService(t, h)

	_, err := svc.ListOccupied(ctx)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = svc.OccupySeat(ctx, &model.Seat{Row: 1, Number: 2})
	require.NoError(t, err)

	occupied, err := svc.ListOccupied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Seat{{Row: 1, Number: 2, Occupied: true, Price: 500}}, occupied)

	free, err := svc.ListFree(ctx)
	require.NoError(t, err)
	require.Len(t, free, 3)
	assert.Equal(t, model.Seat{Row: 1, Number: 1, Price: 500}, free[0])
	assert.Equal(t, model.Seat{Row: 2, Number: 2, Price: 500}, free[2])

	layout, err := svc.Layout(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.HallLayout{Rows: 2, Seats: 2}, layout)

	empty := newMemHall(0, 0, 0)
	svc, _ = newService(t, empty)
	_, err = svc.ListSeats(ctx)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = svc.ListFree(ctx)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = svc.Layout(ctx)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestService_Ticket(t *testing.T) {
	ctx := context.Background()
	h := newMemHall(1, 1, 500)
	svc, _ := newService(t, h)

	bought, err := svc.Purchase(ctx, &model.Seat{Row: 1, Number: 1}, &model.Account{Name: "Alice", Phone: "1"})
	require.NoError(t, err)

	got, err := svc.Ticket(ctx, bought.Code)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.AccountName)

	_, err = svc.Ticket(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = svc.Ticket(ctx, "")
	assert.True(t, apperr.Is(err, apperr.NullReference))
}
