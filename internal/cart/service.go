package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"github.com/tsiki-shop/storefront-backend/pkg/metrics"
)

type productLoader interface {
	GetActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service runs cart operations for a visitor identified by their cart id.
type Service interface {
	Get(ctx context.Context, cartID string) (*View, error)
	AddItem(ctx context.Context, cartID string, input AddItemInput) (*View, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*View, error)
	Increment(ctx context.Context, cartID, productID string) (*View, error)
	Decrement(ctx context.Context, cartID, productID string) (*View, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*View, error)
	Clear(ctx context.Context, cartID string) (*View, error)
	ApplyCoupon(ctx context.Context, cartID, code string) (*View, error)
	RemoveCoupon(ctx context.Context, cartID string) (*View, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Storage            StorageFactory
	Coupons            CouponBook
	Products           productLoader
	Metrics            *metrics.CartMetrics
	Logger             *logger.Logger
	DefaultMaxQuantity int
}

type service struct {
	storage    StorageFactory
	coupons    CouponBook
	products   productLoader
	metrics    *metrics.CartMetrics
	logg       *logger.Logger
	defaultMax int
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage factory required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon book required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	defaultMax := params.DefaultMaxQuantity
	if defaultMax <= 0 {
		defaultMax = DefaultMaxQuantity
	}
	return &service{
		storage:    params.Storage,
		coupons:    params.Coupons,
		products:   params.Products,
		metrics:    params.Metrics,
		logg:       logg,
		defaultMax: defaultMax,
	}, nil
}

// AddItemInput is the add-to-cart request. Title, price, image and cap come
// from the catalog, never from the client.
type AddItemInput struct {
	ProductID uuid.UUID         `json:"product_id" validate:"required"`
	Quantity  int               `json:"quantity" validate:"omitempty,gte=1,lte=10000"`
	Options   map[string]string `json:"options"`
}

// View is the cart as returned to clients.
type View struct {
	Lines         []ViewLine `json:"lines"`
	AppliedCoupon *Coupon    `json:"applied_coupon"`
	Totals        Totals     `json:"totals"`
	ItemCount     int        `json:"item_count"`
}

type ViewLine struct {
	Line
	LineTotal decimal.Decimal `json:"line_total"`
}

func newView(e *Engine) *View {
	state := e.State()
	view := &View{
		Lines:         make([]ViewLine, 0, len(state.Lines)),
		AppliedCoupon: state.AppliedCoupon,
		Totals:        e.ComputeTotals(),
	}
	for _, line := range state.Lines {
		view.Lines = append(view.Lines, ViewLine{
			Line:      line,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		})
		view.ItemCount += line.Quantity
	}
	return view
}

func (s *service) open(ctx context.Context, cartID string) (*Engine, func(), error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	storage := s.storage(cartID)
	if s.metrics != nil {
		storage = instrumentedStorage{Storage: storage, observer: s.metrics}
	}
	engine, err := Open(ctx, storage, s.coupons,
		WithDefaultMaxQuantity(s.defaultMax),
		WithLogger(s.logg),
	)
	if err != nil {
		return nil, nil, err
	}
	cancel := engine.Subscribe(func(ev Event) {
		s.metrics.IncMutation(ev.Op)
	})
	return engine, cancel, nil
}

func (s *service) run(ctx context.Context, cartID string, op func(*Engine) error) (*View, error) {
	ctx = s.logg.WithCartID(ctx, cartID)
	engine, cancel, err := s.open(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := op(engine); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			s.logg.Error(ctx, "cart operation failed", err)
		}
		return nil, err
	}
	return newView(engine), nil
}

func (s *service) Get(ctx context.Context, cartID string) (*View, error) {
	return s.run(ctx, cartID, func(*Engine) error { return nil })
}

func (s *service) AddItem(ctx context.Context, cartID string, input AddItemInput) (*View, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"product_id": "is required"})
	}
	product, err := s.products.GetActive(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	opts, err := resolveOptions(product, input.Options)
	if err != nil {
		return nil, err
	}

	line := LineInput{
		ProductID:       product.ID.String(),
		Title:           product.Title,
		UnitPrice:       product.Price,
		Image:           product.ImageURL,
		Quantity:        input.Quantity,
		SelectedOptions: opts,
	}
	if product.MaxQty != nil {
		line.MaxQuantity = *product.MaxQty
	}
	return s.run(ctx, cartID, func(e *Engine) error { return e.AddItem(ctx, line) })
}

// resolveOptions keeps only non-blank selections and requires each to be one
// of the values the product offers.
func resolveOptions(product *models.Product, requested map[string]string) (Options, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	details := map[string]string{}
	opts := Options{}
	for name, value := range requested {
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		if _, offered := product.Options[name]; !offered {
			details["options."+name] = "is not offered for this product; offered: " + strings.Join(product.Options.Names(), ", ")
			continue
		}
		if !product.Options.Allows(name, value) {
			details["options."+name] = fmt.Sprintf("%q is not an allowed value", value)
			continue
		}
		opts[name] = value
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	if len(opts) == 0 {
		return nil, nil
	}
	return opts, nil
}

func (s *service) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.SetQuantity(ctx, productID, quantity) })
}

func (s *service) Increment(ctx context.Context, cartID, productID string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.IncrementQuantity(ctx, productID) })
}

func (s *service) Decrement(ctx context.Context, cartID, productID string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.DecrementQuantity(ctx, productID) })
}

func (s *service) RemoveItem(ctx context.Context, cartID, productID string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.RemoveItem(ctx, productID) })
}

func (s *service) Clear(ctx context.Context, cartID string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.ClearCart(ctx) })
}

func (s *service) ApplyCoupon(ctx context.Context, cartID, code string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error {
		err := e.ApplyCoupon(ctx, code)
		switch {
		case err == nil:
			s.metrics.IncCoupon("applied")
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidCoupon):
			s.metrics.IncCoupon("rejected")
		}
		return err
	})
}

func (s *service) RemoveCoupon(ctx context.Context, cartID string) (*View, error) {
	return s.run(ctx, cartID, func(e *Engine) error { return e.RemoveCoupon(ctx) })
}

