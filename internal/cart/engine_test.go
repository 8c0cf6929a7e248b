package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
)

type couponMap map[string]int

func (c couponMap) Lookup(_ context.Context, code string) (int, bool, error) {
	pct, ok := c[code]
	return pct, ok, nil
}

var welcome = couponMap{"WELCOME10": 10}

type failingStorage struct {
	loadErr error
	saveErr error
	raw     []byte
}

func (f *failingStorage) Load(context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.raw == nil {
		return nil, ErrStateNotFound
	}
	return f.raw, nil
}

func (f *failingStorage) Save(_ context.Context, raw []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.raw = raw
	return nil
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	e, err := Open(context.Background(), storage, welcome, opts...)
	require.NoError(t, err)
	return e, storage
}

func shirt(qty int, size string) LineInput {
	in := LineInput{ProductID: "shirt", Title: "Shirt", UnitPrice: price("25.00"), Quantity: qty}
	if size != "" {
		in.SelectedOptions = Options{"size": size}
	}
	return in
}

func TestAddItemMergesSameProductAndOptions(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	for _, qty := range []int{1, 2, 3} {
		require.NoError(t, e.AddItem(ctx, shirt(qty, "M")))
	}

	state := e.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 6, state.Lines[0].Quantity)
}

func TestAddItemKeepsDistinctOptionsApart(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.AddItem(ctx, shirt(1, "M")))
	require.NoError(t, e.AddItem(ctx, shirt(1, "L")))
	require.NoError(t, e.AddItem(ctx, shirt(1, "")))

	state := e.State()
	require.Len(t, state.Lines, 3)
	assert.Equal(t, "M", state.Lines[0].SelectedOptions["size"])
	assert.Equal(t, "L", state.Lines[1].SelectedOptions["size"])
	assert.Empty(t, state.Lines[2].SelectedOptions)
}

func TestAddItemTreatsNilAndEmptyOptionsAsEqual(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "mug", UnitPrice: price("5"), SelectedOptions: nil}))
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "mug", UnitPrice: price("5"), SelectedOptions: Options{}}))

	state := e.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

func TestAddItemClampsToLineMaxAndDefault(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "limited", UnitPrice: price("1"), Quantity: 3, MaxQuantity: 5}))
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "limited", UnitPrice: price("1"), Quantity: 4, MaxQuantity: 5}))
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "bulk", UnitPrice: price("1"), Quantity: 250}))

	state := e.State()
	assert.Equal(t, 5, state.Lines[0].Quantity)
	assert.Equal(t, DefaultMaxQuantity, state.Lines[1].Quantity)
}

func TestAddItemSaturatesHugeAmountsAtCap(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.AddItem(ctx, shirt(5, "")))
	require.NoError(t, e.AddItem(ctx, shirt(math.MaxInt, "")))
	assert.Equal(t, DefaultMaxQuantity, e.State().Lines[0].Quantity)

	require.NoError(t, e.AddItem(ctx, shirt(math.MaxInt, "")))
	assert.Equal(t, DefaultMaxQuantity, e.State().Lines[0].Quantity)
}

func TestAddQuantity(t *testing.T) {
	assert.Equal(t, 7, addQuantity(5, 2, 99))
	assert.Equal(t, 99, addQuantity(98, 1, 99))
	assert.Equal(t, 99, addQuantity(5, math.MaxInt, 99))
	assert.Equal(t, 99, addQuantity(math.MaxInt, math.MaxInt, 99))
	assert.Equal(t, 2, addQuantity(-3, 0, 99))
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "mug", UnitPrice: price("5"), Quantity: 0}))
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "cup", UnitPrice: price("5"), Quantity: -4}))

	for _, line := range e.State().Lines {
		assert.Equal(t, 1, line.Quantity, line.ProductID)
	}
}

func TestAddItemRejectsBlankProduct(t *testing.T) {
	e, storage := newEngine(t)
	err := e.AddItem(context.Background(), LineInput{ProductID: "  ", UnitPrice: price("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, loadErr := storage.Load(context.Background())
	assert.ErrorIs(t, loadErr, ErrStateNotFound)
}

func TestWithDefaultMaxQuantity(t *testing.T) {
	e, _ := newEngine(t, WithDefaultMaxQuantity(10))
	require.NoError(t, e.AddItem(context.Background(), LineInput{ProductID: "p", UnitPrice: price("1"), Quantity: 50}))
	assert.Equal(t, 10, e.State().Lines[0].Quantity)
}

func TestIncrementAndDecrementStayWithinBounds(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "p", UnitPrice: price("2"), Quantity: 1, MaxQuantity: 2}))

	require.NoError(t, e.IncrementQuantity(ctx, "p"))
	require.NoError(t, e.IncrementQuantity(ctx, "p"))
	assert.Equal(t, 2, e.State().Lines[0].Quantity)

	require.NoError(t, e.DecrementQuantity(ctx, "p"))
	require.NoError(t, e.DecrementQuantity(ctx, "p"))
	require.NoError(t, e.DecrementQuantity(ctx, "p"))
	state := e.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 1, state.Lines[0].Quantity)
}

func TestQuantityChangesApplyToEveryLineOfProduct(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, shirt(1, "M")))
	require.NoError(t, e.AddItem(ctx, shirt(3, "L")))

	require.NoError(t, e.IncrementQuantity(ctx, "shirt"))
	state := e.State()
	assert.Equal(t, 2, state.Lines[0].Quantity)
	assert.Equal(t, 4, state.Lines[1].Quantity)

	require.NoError(t, e.SetQuantity(ctx, "shirt", 500))
	for _, line := range e.State().Lines {
		assert.Equal(t, DefaultMaxQuantity, line.Quantity)
	}

	require.NoError(t, e.SetQuantity(ctx, "shirt", 0))
	for _, line := range e.State().Lines {
		assert.Equal(t, 1, line.Quantity)
	}
}

func TestRemoveItemThenAddStartsFresh(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, shirt(7, "M")))
	require.NoError(t, e.AddItem(ctx, shirt(1, "L")))

	require.NoError(t, e.RemoveItem(ctx, "shirt"))
	assert.Empty(t, e.State().Lines)

	require.NoError(t, e.AddItem(ctx, shirt(2, "M")))
	state := e.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

func TestRemoveUnknownItemIsNoop(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, shirt(1, "")))
	require.NoError(t, e.RemoveItem(ctx, "ghost"))
	assert.Len(t, e.State().Lines, 1)
}

func TestClearCartDropsLinesAndCoupon(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, shirt(1, "")))
	require.NoError(t, e.ApplyCoupon(ctx, "welcome10"))

	require.NoError(t, e.ClearCart(ctx))
	state := e.State()
	assert.Empty(t, state.Lines)
	assert.Nil(t, state.AppliedCoupon)
	assert.True(t, e.ComputeTotals().Total.IsZero())
}

func TestComputeTotalsIsIdempotentAndZeroDiscountWithoutCoupon(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("19.99"), Quantity: 3}))
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "b", UnitPrice: price("0.01"), Quantity: 1}))

	first := e.ComputeTotals()
	second := e.ComputeTotals()
	assert.Equal(t, first, second)
	assert.Equal(t, "59.98", first.Subtotal.StringFixed(2))
	assert.True(t, first.Discount.IsZero())
	assert.True(t, first.Total.Equal(first.Subtotal))
}

func TestWelcomeCouponOnHundred(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("25.00"), Quantity: 4}))

	require.NoError(t, e.ApplyCoupon(ctx, " welcome10 "))
	totals := e.ComputeTotals()
	assert.Equal(t, "100.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "90.00", totals.Total.StringFixed(2))
	assert.Equal(t, &Coupon{Code: "WELCOME10", PercentOff: 10}, e.State().AppliedCoupon)
}

func TestUnknownCouponLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("100.00"), Quantity: 1}))
	before := e.ComputeTotals()

	err := e.ApplyCoupon(ctx, "BADCODE")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCoupon))
	assert.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Equal(t, before, e.ComputeTotals())
	assert.Nil(t, e.State().AppliedCoupon)

	require.NoError(t, e.ApplyCoupon(ctx, "WELCOME10"))
	require.Error(t, e.ApplyCoupon(ctx, "BADCODE"))
	assert.Equal(t, "WELCOME10", e.State().AppliedCoupon.Code)
}

func TestApplyCouponReplacesAndRemoveCouponClears(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	e, err := Open(ctx, storage, couponMap{"WELCOME10": 10, "HALF": 50}, WithDefaultMaxQuantity(99))
	require.NoError(t, err)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("10.00"), Quantity: 1}))

	require.NoError(t, e.ApplyCoupon(ctx, "WELCOME10"))
	require.NoError(t, e.ApplyCoupon(ctx, "half"))
	assert.Equal(t, "HALF", e.State().AppliedCoupon.Code)
	assert.Equal(t, "5.00", e.ComputeTotals().Total.StringFixed(2))

	require.NoError(t, e.RemoveCoupon(ctx))
	require.NoError(t, e.RemoveCoupon(ctx))
	assert.Nil(t, e.State().AppliedCoupon)
}

func TestDiscountRoundsToCents(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, NewMemoryStorage(), couponMap{"THIRD": 33})
	require.NoError(t, err)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("9.99"), Quantity: 1}))
	require.NoError(t, e.ApplyCoupon(ctx, "THIRD"))

	totals := e.ComputeTotals()
	assert.Equal(t, "3.30", totals.Discount.StringFixed(2))
	assert.Equal(t, "6.69", totals.Total.StringFixed(2))
}

func TestFullDiscountNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, NewMemoryStorage(), couponMap{"FREE": 100})
	require.NoError(t, err)
	require.NoError(t, e.AddItem(ctx, LineInput{ProductID: "a", UnitPrice: price("0.05"), Quantity: 3}))
	require.NoError(t, e.ApplyCoupon(ctx, "FREE"))
	assert.True(t, e.ComputeTotals().Total.IsZero())
}

func TestStatePersistsAcrossEngines(t *testing.T) {
	ctx := context.Background()
	e, storage := newEngine(t)
	img := "https://cdn.example/shirt.png"
	in := shirt(2, "M")
	in.Image = &img
	require.NoError(t, e.AddItem(ctx, in))
	require.NoError(t, e.ApplyCoupon(ctx, "WELCOME10"))

	reopened, err := Open(ctx, storage, welcome)
	require.NoError(t, err)
	state := reopened.State()
	require.Len(t, state.Lines, 1)
	line := state.Lines[0]
	assert.Equal(t, "shirt", line.ProductID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(price("25")))
	assert.Equal(t, Options{"size": "M"}, line.SelectedOptions)
	require.NotNil(t, line.Image)
	assert.Equal(t, img, *line.Image)
	assert.Equal(t, e.State().AppliedCoupon, state.AppliedCoupon)
	assert.True(t, e.ComputeTotals().Total.Equal(reopened.ComputeTotals().Total))

	var raw map[string]any
	data, err := storage.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "lines")
	assert.Contains(t, raw, "applied_coupon")
}

func TestOpenRecoversFromCorruptState(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(context.Background(), []byte("{not json")))

	e, err := Open(context.Background(), storage, welcome)
	require.NoError(t, err)
	assert.Empty(t, e.State().Lines)
}

func TestOpenSanitizesStoredLines(t *testing.T) {
	storage := NewMemoryStorage()
	stored := `{"lines":[
		{"product_id":"a","title":"A","unit_price":"1.00","quantity":0},
		{"product_id":"","title":"ghost","unit_price":"1.00","quantity":2},
		{"product_id":"a","title":"A","unit_price":"1.00","quantity":500},
		{"product_id":"b","title":"B","unit_price":"1.00","quantity":4,"max_quantity":2}
	],"applied_coupon":{"code":"welcome10","percent_off":10}}`
	require.NoError(t, storage.Save(context.Background(), []byte(stored)))

	e, err := Open(context.Background(), storage, welcome)
	require.NoError(t, err)

	state := e.State()
	require.Len(t, state.Lines, 2)
	assert.Equal(t, DefaultMaxQuantity, state.Lines[0].Quantity)
	assert.Equal(t, 2, state.Lines[1].Quantity)
	assert.Equal(t, "WELCOME10", state.AppliedCoupon.Code)
}

func TestOpenFoldsHugeDuplicateQuantitiesToCap(t *testing.T) {
	storage := NewMemoryStorage()
	stored := fmt.Sprintf(`{"lines":[
		{"product_id":"a","title":"A","unit_price":"1.00","quantity":40},
		{"product_id":"a","title":"A","unit_price":"1.00","quantity":%d}
	]}`, math.MaxInt)
	require.NoError(t, storage.Save(context.Background(), []byte(stored)))

	e, err := Open(context.Background(), storage, welcome)
	require.NoError(t, err)

	state := e.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, DefaultMaxQuantity, state.Lines[0].Quantity)
}

func TestOpenSurfacesTransportFailure(t *testing.T) {
	_, err := Open(context.Background(), &failingStorage{loadErr: errors.New("connection refused")}, welcome)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSaveFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{}
	e, err := Open(ctx, storage, welcome)
	require.NoError(t, err)
	require.NoError(t, e.AddItem(ctx, shirt(1, "")))

	storage.saveErr = errors.New("read-only replica")
	err = e.AddItem(ctx, shirt(1, ""))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 1, e.State().Lines[0].Quantity)
}

func TestStateReturnsDeepCopy(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.AddItem(ctx, shirt(1, "M")))

	snapshot := e.State()
	snapshot.Lines[0].Quantity = 42
	snapshot.Lines[0].SelectedOptions["size"] = "XL"

	state := e.State()
	assert.Equal(t, 1, state.Lines[0].Quantity)
	assert.Equal(t, "M", state.Lines[0].SelectedOptions["size"])
}

func TestSubscribeReceivesEventsUntilCancelled(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	var ops []string
	cancel := e.Subscribe(func(ev Event) {
		ops = append(ops, ev.Op)
	})
	require.NoError(t, e.AddItem(ctx, shirt(1, "")))
	require.NoError(t, e.IncrementQuantity(ctx, "shirt"))
	_ = e.ApplyCoupon(ctx, "BADCODE")

	cancel()
	require.NoError(t, e.ClearCart(ctx))

	assert.Equal(t, []string{OpAddItem, OpIncrement}, ops)
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	var order []int
	for i := range 5 {
		e.Subscribe(func(Event) { order = append(order, i) })
	}
	cancel := e.Subscribe(func(Event) { order = append(order, 99) })
	cancel()

	require.NoError(t, e.AddItem(ctx, shirt(1, "")))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubscribeNotifiedOnlyAfterSave(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{saveErr: errors.New("down")}
	e, err := Open(ctx, storage, welcome)
	require.NoError(t, err)

	called := false
	e.Subscribe(func(Event) { called = true })
	require.Error(t, e.AddItem(ctx, shirt(1, "")))
	assert.False(t, called)
}
