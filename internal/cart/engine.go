package cart

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
)

// ErrInvalidCoupon is the cause attached to INVALID_COUPON errors.
var ErrInvalidCoupon = errors.New("unknown coupon code")

// CouponBook resolves a normalized code to its percentage.
type CouponBook interface {
	Lookup(ctx context.Context, code string) (percentOff int, found bool, err error)
}

// Mutation operation names reported to subscribers.
const (
	OpAddItem      = "add_item"
	OpIncrement    = "increment"
	OpDecrement    = "decrement"
	OpSetQuantity  = "set_quantity"
	OpRemoveItem   = "remove_item"
	OpClear        = "clear"
	OpApplyCoupon  = "apply_coupon"
	OpRemoveCoupon = "remove_coupon"
)

// Event is delivered to subscribers after a mutation has been persisted.
type Event struct {
	Op    string
	State State
}

// LineInput describes an item being added. Quantity below 1 counts as 1.
type LineInput struct {
	ProductID       string
	Title           string
	UnitPrice       decimal.Decimal
	Image           *string
	Quantity        int
	MaxQuantity     int
	SelectedOptions Options
}

type Option func(*Engine)

// WithDefaultMaxQuantity overrides the cap applied to lines without their own limit.
func WithDefaultMaxQuantity(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.defaultMax = max
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(e *Engine) {
		if logg != nil {
			e.logg = logg
		}
	}
}

// Engine owns one cart's state for the duration of a request. It is not safe
// for concurrent use.
type Engine struct {
	state       State
	storage     Storage
	coupons     CouponBook
	defaultMax  int
	logg        *logger.Logger
	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func(Event)
}

// Open hydrates an engine from storage. Missing or unreadable state yields an
// empty cart; a storage transport failure is returned.
func Open(ctx context.Context, storage Storage, coupons CouponBook, opts ...Option) (*Engine, error) {
	if storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart storage required")
	}
	e := &Engine{
		storage:     storage,
		coupons:     coupons,
		defaultMax:  DefaultMaxQuantity,
		logg:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	raw, err := storage.Load(ctx)
	switch {
	case errors.Is(err, ErrStateNotFound):
		return e, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart state")
	}

	var stored State
	if err := json.Unmarshal(raw, &stored); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "reason", err.Error()), "discarding unreadable cart state")
		return e, nil
	}
	e.state = sanitize(stored, e.defaultMax)
	return e, nil
}

// State returns a deep copy of the current cart.
func (e *Engine) State() State {
	return e.state.clone()
}

// ComputeTotals derives subtotal, discount and total from the current state.
func (e *Engine) ComputeTotals() Totals {
	return computeTotals(e.state)
}

// Subscribe registers fn for change notifications and returns its cancel func.
// Subscribers are notified in registration order.
func (e *Engine) Subscribe(fn func(Event)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	id := e.nextSubID
	e.nextSubID++
	e.subscribers = append(e.subscribers, subscriber{id: id, fn: fn})
	return func() {
		e.subscribers = slices.DeleteFunc(e.subscribers, func(s subscriber) bool { return s.id == id })
	}
}

// AddItem merges into the line with the same product and options, or appends a new one.
func (e *Engine) AddItem(ctx context.Context, in LineInput) error {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]string{"product_id": "is required"})
	}
	if in.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").
			WithDetails(map[string]string{"unit_price": "must not be negative"})
	}
	amount := in.Quantity
	if amount < 1 {
		amount = 1
	}
	lineMax := in.MaxQuantity
	if lineMax < 0 {
		lineMax = 0
	}
	opts := in.SelectedOptions.clone()

	return e.mutate(ctx, OpAddItem, func(s *State) {
		idx := slices.IndexFunc(s.Lines, func(l Line) bool { return l.matches(productID, opts) })
		if idx >= 0 {
			line := &s.Lines[idx]
			line.Quantity = addQuantity(line.Quantity, amount, effectiveMax(line.MaxQuantity, e.defaultMax))
			return
		}
		var image *string
		if in.Image != nil {
			img := *in.Image
			image = &img
		}
		s.Lines = append(s.Lines, Line{
			ProductID:       productID,
			Title:           in.Title,
			UnitPrice:       in.UnitPrice,
			Image:           image,
			Quantity:        clampQuantity(amount, effectiveMax(lineMax, e.defaultMax)),
			MaxQuantity:     lineMax,
			SelectedOptions: opts,
		})
	})
}

// IncrementQuantity adds one to every line of productID, up to each line's cap.
func (e *Engine) IncrementQuantity(ctx context.Context, productID string) error {
	return e.mutate(ctx, OpIncrement, e.adjust(productID, func(l Line, max int) int {
		return clampQuantity(l.Quantity+1, max)
	}))
}

// DecrementQuantity removes one from every line of productID; a line at 1 stays at 1.
func (e *Engine) DecrementQuantity(ctx context.Context, productID string) error {
	return e.mutate(ctx, OpDecrement, e.adjust(productID, func(l Line, max int) int {
		return clampQuantity(l.Quantity-1, max)
	}))
}

// SetQuantity sets every line of productID to qty clamped to [1, cap].
func (e *Engine) SetQuantity(ctx context.Context, productID string, qty int) error {
	return e.mutate(ctx, OpSetQuantity, e.adjust(productID, func(_ Line, max int) int {
		return clampQuantity(qty, max)
	}))
}

func (e *Engine) adjust(productID string, next func(Line, int) int) func(*State) {
	productID = strings.TrimSpace(productID)
	return func(s *State) {
		for i := range s.Lines {
			if s.Lines[i].ProductID != productID {
				continue
			}
			s.Lines[i].Quantity = next(s.Lines[i], effectiveMax(s.Lines[i].MaxQuantity, e.defaultMax))
		}
	}
}

// RemoveItem drops every line of productID regardless of quantity or options.
func (e *Engine) RemoveItem(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	return e.mutate(ctx, OpRemoveItem, func(s *State) {
		s.Lines = slices.DeleteFunc(s.Lines, func(l Line) bool { return l.ProductID == productID })
	})
}

// ClearCart empties the lines and drops the coupon.
func (e *Engine) ClearCart(ctx context.Context) error {
	return e.mutate(ctx, OpClear, func(s *State) {
		s.Lines = nil
		s.AppliedCoupon = nil
	})
}

// ApplyCoupon replaces the applied coupon. Unknown codes leave state untouched.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) error {
	normalized := NormalizeCouponCode(code)
	if normalized == "" || e.coupons == nil {
		return invalidCoupon()
	}
	pct, found, err := e.coupons.Lookup(ctx, normalized)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if !found || pct < 0 || pct > 100 {
		return invalidCoupon()
	}
	return e.mutate(ctx, OpApplyCoupon, func(s *State) {
		s.AppliedCoupon = &Coupon{Code: normalized, PercentOff: pct}
	})
}

// RemoveCoupon clears any applied coupon.
func (e *Engine) RemoveCoupon(ctx context.Context) error {
	return e.mutate(ctx, OpRemoveCoupon, func(s *State) {
		s.AppliedCoupon = nil
	})
}

func invalidCoupon() error {
	return pkgerrors.Wrap(pkgerrors.CodeInvalidCoupon, ErrInvalidCoupon, "invalid coupon code")
}

// mutate applies fn to a copy, persists it and only then swaps it in.
func (e *Engine) mutate(ctx context.Context, op string, fn func(*State)) error {
	next := e.state.clone()
	fn(&next)

	raw, err := json.Marshal(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart state")
	}
	if err := e.storage.Save(ctx, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart state")
	}

	e.state = next
	e.publish(Event{Op: op, State: next.clone()})
	return nil
}

func (e *Engine) publish(ev Event) {
	for _, sub := range slices.Clone(e.subscribers) {
		sub.fn(ev)
	}
}
