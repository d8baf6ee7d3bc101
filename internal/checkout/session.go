// Package checkout drives a point-of-sale checkout from cart to stored sale.
//
// A Session moves Idle -> AwaitingConfirmation -> Processing -> Completed and
// back to Idle. Confirmation freezes the cart and discount, hands the cashier
// a payment reference and stores the sale once the simulated payment delay
// has elapsed. A Session is safe for concurrent use.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/money"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

const DefaultPaymentDelay = 3 * time.Second

// SaleStore persists confirmed sales.
type SaleStore interface {
	Save(ctx context.Context, s sales.NewSale) (sales.Sale, error)
}

// SaleListener is told about every stored sale. It must not block for long.
type SaleListener interface {
	SaleCompleted(ctx context.Context, s sales.Sale)
}

// AfterFunc schedules f after d and returns a function that stops it,
// reporting whether f was prevented from running.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Config struct {
	PaymentDelay     time.Duration
	ReferenceBaseURL string
}

type Deps struct {
	Store    SaleStore
	Listener SaleListener
	Logger   *zap.Logger
	Config   Config

	AfterFunc    AfterFunc
	NewReference func() string
	Now          func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config.PaymentDelay <= 0 {
		d.Config.PaymentDelay = DefaultPaymentDelay
	}
	if d.AfterFunc == nil {
		d.AfterFunc = timeAfterFunc
	}
	if d.NewReference == nil {
		base := d.Config.ReferenceBaseURL
		d.NewReference = func() string {
			if base == "" {
				return uuid.NewString()
			}
			return base + "?ref=" + uuid.NewString()
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type payment struct {
	snapshot  sales.NewSale
	reference string
	stop      func() bool
	cancel    context.CancelFunc
	// fired is set once the delay elapsed and the store call has started.
	fired bool
}

type Session struct {
	id      string
	ownerID string
	deps    Deps
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cart      *cart.Cart
	discount  string
	state     State
	pending   *payment
	reference string
	lastSale  *sales.Sale
	lastErr   error
	updatedAt time.Time
	lastSeen  time.Time
	closed    bool
	subs      map[int]chan Event
	nextSub   int
}

func NewSession(id, ownerID string, deps Deps) *Session {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		ownerID:   ownerID,
		deps:      deps,
		logger:    deps.Logger.With(zap.String("session_id", id), zap.String("owner_id", ownerID)),
		ctx:       ctx,
		cancel:    cancel,
		cart:      cart.New(),
		state:     StateIdle,
		updatedAt: deps.Now(),
		lastSeen:  deps.Now(),
		subs:      map[int]chan Event{},
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) OwnerID() string { return s.ownerID }

func (s *Session) AddToCart(p catalog.Product) error {
	return s.mutateCart(func(c *cart.Cart) { c.Add(p) })
}

func (s *Session) SetQuantity(productID string, qty int) error {
	return s.mutateCart(func(c *cart.Cart) { c.SetQuantity(productID, qty) })
}

// SetQuantityInput applies a raw quantity typed by the cashier.
func (s *Session) SetQuantityInput(productID, raw string) error {
	return s.mutateCart(func(c *cart.Cart) { c.SetQuantityInput(productID, raw) })
}

func (s *Session) RemoveLine(productID string) error {
	return s.mutateCart(func(c *cart.Cart) { c.Remove(productID) })
}

func (s *Session) mutateCart(fn func(*cart.Cart)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateProcessing {
		return ErrPaymentInProgress
	}
	if s.state == StateCompleted {
		s.resetLocked()
	}
	fn(s.cart)
	s.emitLocked(EventCartChanged)
	return nil
}

// ClearCart empties the cart. A pending payment that has not started
// storing the sale is abandoned.
func (s *Session) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateProcessing {
		if err := s.abandonLocked(); err != nil {
			return err
		}
		s.state = StateIdle
		s.reference = ""
	}
	if s.state == StateCompleted {
		s.resetLocked()
	}
	s.cart.Clear()
	s.emitLocked(EventCartChanged)
	return nil
}

// SetDiscount stores the raw discount input. It is accepted in every state
// but never changes a sale that is already being processed.
func (s *Session) SetDiscount(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.discount = raw
	s.emitLocked(EventCartChanged)
	return nil
}

// Begin opens the confirmation step.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StateProcessing:
		return ErrPaymentInProgress
	case StateAwaitingConfirmation:
		return nil
	case StateCompleted:
		s.resetLocked()
	}
	if q := s.quoteLocked(); q.Blocked {
		return q.BlockReason.Err()
	}
	s.state = StateAwaitingConfirmation
	s.lastErr = nil
	s.emitLocked(EventStateChanged)
	return nil
}

// Confirm accepts the current cart and discount and starts the payment
// delay. It returns the payment reference shown to the customer. While a
// payment is in flight further calls fail with ErrPaymentInProgress and
// have no effect.
func (s *Session) Confirm(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}
	if s.state == StateProcessing {
		return "", ErrPaymentInProgress
	}
	if s.ownerID == "" {
		return "", ErrOwnerRequired
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	q := s.quoteLocked()
	if q.Blocked {
		return "", q.BlockReason.Err()
	}

	items := make([]sales.Item, 0, s.cart.UnitCount())
	for _, p := range s.cart.Units() {
		items = append(items, sales.Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Category:  p.Category,
			Image:     p.Image,
		})
	}

	pctx, cancel := context.WithCancel(s.ctx)
	p := &payment{
		snapshot: sales.NewSale{
			OwnerID:  s.ownerID,
			Items:    items,
			Total:    q.Total,
			Discount: q.Discount,
		},
		reference: s.deps.NewReference(),
		cancel:    cancel,
	}
	s.pending = p
	s.state = StateProcessing
	s.reference = p.reference
	s.lastErr = nil
	p.stop = s.deps.AfterFunc(s.deps.Config.PaymentDelay, func() { s.complete(pctx, p) })

	s.logger.Info("checkout confirmed",
		zap.String("reference", p.reference),
		zap.String("total", money.Format(q.Total)),
		zap.Int("items", len(items)),
	)
	s.emitLocked(EventStateChanged)
	return p.reference, nil
}

func (s *Session) complete(ctx context.Context, p *payment) {
	s.mu.Lock()
	if s.pending != p {
		s.mu.Unlock()
		return
	}
	p.fired = true
	s.mu.Unlock()

	stored, err := s.deps.Store.Save(ctx, p.snapshot)

	s.mu.Lock()
	if s.pending != p {
		s.mu.Unlock()
		if err == nil {
			s.logger.Warn("sale stored after session was closed", zap.String("sale_id", stored.ID))
		}
		return
	}
	s.pending = nil
	p.cancel()

	if err != nil {
		s.state = StateAwaitingConfirmation
		s.reference = ""
		s.lastErr = &PersistError{Err: err}
		s.logger.Error("store sale failed", zap.Error(err))
		s.emitLocked(EventSaleFailed)
		s.mu.Unlock()
		return
	}

	s.cart.Clear()
	s.discount = ""
	s.state = StateCompleted
	s.lastSale = &stored
	s.logger.Info("sale completed", zap.String("sale_id", stored.ID))
	s.emitLocked(EventSaleCompleted)
	s.mu.Unlock()

	if s.deps.Listener != nil {
		s.deps.Listener.SaleCompleted(context.WithoutCancel(ctx), stored)
	}
}

// Cancel backs out of the current step. A pending payment returns to
// AwaitingConfirmation with the cart intact; AwaitingConfirmation returns to
// Idle. Once the sale is being stored it can no longer be cancelled.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StateProcessing:
		if err := s.abandonLocked(); err != nil {
			return err
		}
		s.state = StateAwaitingConfirmation
		s.reference = ""
	case StateAwaitingConfirmation:
		s.state = StateIdle
	default:
		return nil
	}
	s.emitLocked(EventStateChanged)
	return nil
}

// Finish acknowledges a completed sale and returns to Idle.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateCompleted {
		return nil
	}
	s.resetLocked()
	s.emitLocked(EventStateChanged)
	return nil
}

// Close tears the session down. Any pending payment is stopped and an
// in-flight store call has its context cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if p := s.pending; p != nil {
		p.stop()
		p.cancel()
		s.pending = nil
	}
	s.cancel()
	s.closed = true
	s.emitLocked(EventClosed)
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// RefreshProduct updates the product snapshot held by the cart.
func (s *Session) RefreshProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.cart.Refresh(p) {
		s.emitLocked(EventCartChanged)
	}
}

// DropProduct removes a deleted product from the cart.
func (s *Session) DropProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateProcessing {
		return
	}
	before := s.cart.UnitCount()
	s.cart.Remove(productID)
	if s.cart.UnitCount() != before {
		s.emitLocked(EventCartChanged)
	}
}

func (s *Session) Quote() Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// LastError returns the most recent store failure, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe returns a channel of session events and a function to stop
// receiving them. Slow subscribers miss events rather than block the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *Session) abandonLocked() error {
	p := s.pending
	if p == nil {
		return nil
	}
	if p.fired {
		return ErrPaymentInProgress
	}
	p.stop()
	p.cancel()
	s.pending = nil
	s.logger.Info("payment abandoned", zap.String("reference", p.reference))
	return nil
}

func (s *Session) resetLocked() {
	s.state = StateIdle
	s.reference = ""
	s.lastErr = nil
}

func (s *Session) quoteLocked() Quote {
	subtotal := s.cart.Subtotal()
	discount := money.ParseDiscount(s.discount)
	q := Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    money.Total(subtotal, discount),
	}
	switch {
	case s.cart.IsEmpty():
		q.BlockReason = BlockEmptyCart
	case s.cart.UnitCount() > cart.MaxUnits:
		q.BlockReason = BlockTooManyUnits
	case !q.Total.IsPositive():
		q.BlockReason = BlockInvalidTotal
	}
	q.Blocked = q.BlockReason != NotBlocked
	return q
}

func (s *Session) viewLocked() View {
	v := View{
		ID:            s.id,
		State:         s.state,
		Lines:         s.cart.Lines(),
		DiscountInput: s.discount,
		Quote:         s.quoteLocked(),
		Reference:     s.reference,
		UpdatedAt:     s.updatedAt,
	}
	if s.lastSale != nil {
		sale := *s.lastSale
		v.LastSale = &sale
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	return v
}

func (s *Session) emitLocked(t EventType) {
	s.updatedAt = s.deps.Now()
	s.lastSeen = s.updatedAt
	ev := Event{Type: t, View: s.viewLocked()}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// touch records client activity that does not change the session.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()
}

// expired reports whether the session has seen no activity for ttl. A session
// with a payment in flight or a live subscriber never expires.
func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil || len(s.subs) > 0 {
		return false
	}
	return now.Sub(s.lastSeen) >= ttl
}

// IsPersistError reports whether err came from storing a sale.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
