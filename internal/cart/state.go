package cart

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity caps a line when neither the product nor the engine sets a limit.
const DefaultMaxQuantity = 99

// Options maps an option name to the chosen value. Nil and empty compare equal.
type Options map[string]string

func (o Options) equal(other Options) bool {
	return maps.Equal(o, other)
}

func (o Options) clone() Options {
	if len(o) == 0 {
		return nil
	}
	return maps.Clone(o)
}

// Line is one product/options combination in the cart.
type Line struct {
	ProductID       string          `json:"product_id"`
	Title           string          `json:"title"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Image           *string         `json:"image,omitempty"`
	Quantity        int             `json:"quantity"`
	MaxQuantity     int             `json:"max_quantity,omitempty"`
	SelectedOptions Options         `json:"selected_options,omitempty"`
}

func (l Line) matches(productID string, opts Options) bool {
	return l.ProductID == productID && l.SelectedOptions.equal(opts)
}

func (l Line) clone() Line {
	out := l
	if l.Image != nil {
		img := *l.Image
		out.Image = &img
	}
	out.SelectedOptions = l.SelectedOptions.clone()
	return out
}

// Coupon is an applied percentage discount.
type Coupon struct {
	Code       string `json:"code"`
	PercentOff int    `json:"percent_off"`
}

// State is the persisted cart: lines in insertion order plus at most one coupon.
type State struct {
	Lines         []Line  `json:"lines"`
	AppliedCoupon *Coupon `json:"applied_coupon,omitempty"`
}

func (s State) clone() State {
	out := State{Lines: make([]Line, 0, len(s.Lines))}
	for _, line := range s.Lines {
		out.Lines = append(out.Lines, line.clone())
	}
	if s.AppliedCoupon != nil {
		c := *s.AppliedCoupon
		out.AppliedCoupon = &c
	}
	return out
}

// Totals are derived from State on demand and never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

func computeTotals(s State) Totals {
	subtotal := decimal.Zero
	for _, line := range s.Lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	if s.AppliedCoupon != nil && s.AppliedCoupon.PercentOff > 0 {
		discount = subtotal.Mul(decimal.NewFromInt(int64(s.AppliedCoupon.PercentOff))).Div(hundred).Round(2)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{Subtotal: subtotal, Discount: discount, Total: total}
}

// NormalizeCouponCode trims and upper-cases a user supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func clampQuantity(qty, max int) int {
	if qty < 1 {
		return 1
	}
	if qty > max {
		return max
	}
	return qty
}

// addQuantity merges amount into current, saturating at max.
func addQuantity(current, amount, max int) int {
	current = clampQuantity(current, max)
	amount = clampQuantity(amount, max)
	if amount > max-current {
		return max
	}
	return current + amount
}

// sanitize repairs state read back from storage: drops unusable lines,
// clamps quantities and folds duplicate keys into the first occurrence.
func sanitize(s State, defaultMax int) State {
	out := State{Lines: make([]Line, 0, len(s.Lines))}
	for _, line := range s.Lines {
		if strings.TrimSpace(line.ProductID) == "" || line.UnitPrice.IsNegative() {
			continue
		}
		if line.MaxQuantity < 0 {
			line.MaxQuantity = 0
		}
		line.SelectedOptions = line.SelectedOptions.clone()
		max := effectiveMax(line.MaxQuantity, defaultMax)
		idx := slices.IndexFunc(out.Lines, func(existing Line) bool {
			return existing.matches(line.ProductID, line.SelectedOptions)
		})
		if idx >= 0 {
			out.Lines[idx].Quantity = addQuantity(out.Lines[idx].Quantity, line.Quantity, max)
			continue
		}
		line.Quantity = clampQuantity(line.Quantity, max)
		out.Lines = append(out.Lines, line)
	}
	if c := s.AppliedCoupon; c != nil && c.Code != "" && c.PercentOff >= 0 && c.PercentOff <= 100 {
		out.AppliedCoupon = &Coupon{Code: NormalizeCouponCode(c.Code), PercentOff: c.PercentOff}
	}
	return out
}

func effectiveMax(lineMax, defaultMax int) int {
	if lineMax > 0 {
		return lineMax
	}
	return defaultMax
}
