package services

import (
	"context"
	"log"
	"sync"

	"restaurant-order/models"

	"github.com/google/uuid"
)

const (
	StateBrowsing   = "browsing"
	StateCheckout   = "checkout"
	StateSubmitting = "submitting"
)

// ValidStateTransition reports whether the checkout flow may move from one state to another.
func ValidStateTransition(from, to string) bool {
	switch from {
	case StateBrowsing:
		return to == StateCheckout
	case StateCheckout:
		return to == StateBrowsing || to == StateSubmitting
	case StateSubmitting:
		return to == StateBrowsing || to == StateCheckout
	}
	return false
}

// OrderNotifier is told about orders the webhook accepted.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, order models.SubmittedOrder) error
}

// Deps wires a session to its collaborators.
type Deps struct {
	Menu      MenuSource
	Submitter OrderSubmitter
	Notifier  OrderNotifier // optional
	Policy    CartPolicy
	// Record logs accepted orders; nil means RecordSubmittedOrder.
	Record func(ctx context.Context, o models.SubmittedOrder) error
}

// Session is one customer's ordering context: the current menu snapshot,
// the cart built against it and the checkout state. Methods are safe for
// concurrent use; each runs to completion under the session lock except the
// network calls.
type Session struct {
	ID string

	deps Deps

	mu      sync.Mutex
	menu    *Menu
	menuErr error
	cart    *Cart
	state   string
}

func NewSession(deps Deps) *Session {
	if deps.Record == nil {
		deps.Record = RecordSubmittedOrder
	}
	return &Session{
		ID:    uuid.NewString(),
		deps:  deps,
		menu:  NewMenu(nil),
		cart:  NewCart(NewMenu(nil), deps.Policy),
		state: StateBrowsing,
	}
}

// Init loads the first menu snapshot. A load failure is kept and reported by
// MenuError; the session stays usable with an empty menu.
func (s *Session) Init(ctx context.Context) error {
	return s.ReloadMenu(ctx)
}

// ReloadMenu replaces the menu snapshot. On failure the previous one stays.
func (s *Session) ReloadMenu(ctx context.Context) error {
	menu, err := s.deps.Menu.LoadMenu(ctx)
	if err != nil {
		log.Printf("session %s: menu load: %v", s.ID, err)
	}
	return s.applyMenu(menu, err)
}

// applyMenu installs a loaded snapshot. A nil menu keeps the current one.
func (s *Session) applyMenu(menu *Menu, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menuErr = err
	if menu != nil {
		s.menu = menu
		s.cart.SetMenu(menu)
	}
	return err
}

func (s *Session) Menu() *Menu {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menu
}

// MenuError returns the error of the latest load attempt, if any.
func (s *Session) MenuError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuErr
}

func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AdjustQuantity changes the cart while browsing. It reports whether the
// cart changed; outside browsing it returns ErrCheckoutOpen or
// ErrSubmissionInFlight and leaves the cart alone.
func (s *Session) AdjustQuantity(itemName string, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCheckout:
		return false, ErrCheckoutOpen
	case StateSubmitting:
		return false, ErrSubmissionInFlight
	}
	return s.cart.AdjustQuantity(itemName, delta), nil
}

// CartSnapshot is a consistent read of the cart.
type CartSnapshot struct {
	Lines []models.CartLine
	Total float64
	State string
}

func (s *Session) Cart() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() CartSnapshot {
	return CartSnapshot{Lines: s.cart.Lines(), Total: s.cart.Total(), State: s.state}
}

// BeginCheckout re-validates the cart against the latest menu and moves to
// checkout. It refuses an empty cart, including one emptied by re-validation.
func (s *Session) BeginCheckout() ([]LineChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCheckout:
		return nil, nil
	case StateSubmitting:
		return nil, ErrSubmissionInFlight
	}
	changes := s.cart.Reconcile()
	if s.cart.IsEmpty() {
		return changes, ErrEmptyCart
	}
	s.transitionLocked(StateCheckout)
	return changes, nil
}

// Back returns from checkout to browsing, keeping the cart.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateBrowsing:
		return nil
	case StateSubmitting:
		return ErrSubmissionInFlight
	}
	s.transitionLocked(StateBrowsing)
	return nil
}

func (s *Session) transitionLocked(to string) {
	if !ValidStateTransition(s.state, to) {
		log.Printf("session %s: invalid transition %s -> %s", s.ID, s.state, to)
		return
	}
	s.state = to
}

// SubmitResult describes an accepted order.
type SubmitResult struct {
	Reference string
	Payload   models.OrderPayload
	Total     float64
}

// Submit validates the customer, posts the order and, on success, clears the
// cart and returns to browsing. On failure the session stays in checkout
// with the cart intact. If the menu changed the cart since checkout began,
// nothing is sent and a *CartChangedError lists the changes; submitting
// again sends the updated cart.
func (s *Session) Submit(ctx context.Context, customer models.Customer) (*SubmitResult, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateBrowsing:
		s.mu.Unlock()
		return nil, ErrNotInCheckout
	}
	if err := ValidateCustomer(customer); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	changes := s.cart.Reconcile()
	if s.cart.IsEmpty() {
		s.transitionLocked(StateBrowsing)
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if len(changes) > 0 {
		// Stay in checkout until the updated cart is confirmed.
		s.mu.Unlock()
		return nil, &CartChangedError{Changes: changes}
	}
	lines := s.cart.Lines()
	result := &SubmitResult{
		Reference: uuid.NewString(),
		Payload:   models.NewOrderPayload(customer, lines),
		Total:     s.cart.Total(),
	}
	s.transitionLocked(StateSubmitting)
	s.mu.Unlock()

	err := s.deps.Submitter.SubmitOrder(ctx, result.Payload)

	s.mu.Lock()
	if err != nil {
		s.transitionLocked(StateCheckout)
		s.mu.Unlock()
		log.Printf("session %s: submit order: %v", s.ID, err)
		return nil, err
	}
	s.cart.Clear()
	s.transitionLocked(StateBrowsing)
	s.mu.Unlock()

	order := models.SubmittedOrder{Reference: result.Reference, Payload: result.Payload, Total: result.Total}
	if err := s.deps.Record(ctx, order); err != nil {
		log.Printf("session %s: record order %s: %v", s.ID, result.Reference, err)
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyOrder(ctx, order); err != nil {
			log.Printf("session %s: notify order %s: %v", s.ID, result.Reference, err)
		}
	}
	return result, nil
}
