package types_test

import (
	"testing"

	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceComparison(t *testing.T) {
	t.Run("Cross multiplied, equal ratios compare equal", testPriceEqualRatios)
	t.Run("Strictly ordered ratios", testPriceOrdering)
	t.Run("Mismatched orientation is an error", testPriceMismatch)
}

func testPriceEqualRatios(t *testing.T) {
	// 1/2 and 50/100 are the same rate
	a := types.NewPrice("USD", 1, "ZEN", 2)
	b := types.NewPrice("USD", 50, "ZEN", 100)

	lt, err := a.LessThan(b)
	require.NoError(t, err)
	assert.False(t, lt)

	ge, err := a.GreaterOrEqual(b)
	require.NoError(t, err)
	assert.True(t, ge)
}

func testPriceOrdering(t *testing.T) {
	low := types.NewPrice("USD", 1, "ZEN", 3)
	high := types.NewPrice("USD", 1, "ZEN", 2)

	lt, err := low.LessThan(high)
	require.NoError(t, err)
	assert.True(t, lt)

	ge, err := low.GreaterOrEqual(high)
	require.NoError(t, err)
	assert.False(t, ge)
}

func testPriceMismatch(t *testing.T) {
	a := types.NewPrice("USD", 1, "ZEN", 2)
	b := types.NewPrice("ZEN", 2, "USD", 1)

	_, err := a.LessThan(b)
	assert.ErrorIs(t, err, types.ErrPriceAssetMismatch)

	// inverting one side fixes the orientation
	lt, err := a.LessThan(b.Invert())
	require.NoError(t, err)
	assert.False(t, lt)
}

func TestPriceInvert(t *testing.T) {
	p := types.NewPrice("USD", 3, "ZEN", 7)
	inv := p.Invert()

	assert.Equal(t, "ZEN", inv.Base.Asset)
	assert.Equal(t, "USD", inv.Quote.Asset)
	assert.True(t, inv.Base.Amount.EQ(num.NewUint(7)))
	assert.True(t, inv.Quote.Amount.EQ(num.NewUint(3)))
}

func TestCallPrice(t *testing.T) {
	// 1000 ZEN collateral against 500 USD debt at a 2:1 maintenance
	// ratio: call_price = 1000*1000 : 500*2000, i.e. exactly 1 ZEN
	// per USD.
	debt := types.NewAssetAmount("USD", 500)
	collateral := types.NewAssetAmount("ZEN", 1000)

	cp := types.CallPrice(debt, collateral, 2000)
	assert.Equal(t, "ZEN", cp.Base.Asset)
	assert.Equal(t, "USD", cp.Quote.Asset)
	assert.True(t, cp.Base.Amount.EQ(num.NewUint(1_000_000)))
	assert.True(t, cp.Quote.Amount.EQ(num.NewUint(1_000_000)))

	unit := types.NewPrice("ZEN", 1, "USD", 1)
	ge, err := cp.GreaterOrEqual(unit)
	require.NoError(t, err)
	assert.True(t, ge)

	// more collateral on the same debt moves the call price up
	safer := types.CallPrice(debt, types.NewAssetAmount("ZEN", 1500), 2000)
	lt, err := cp.LessThan(safer)
	require.NoError(t, err)
	assert.True(t, lt)
}

func TestLimitOrderAmounts(t *testing.T) {
	order := &types.LimitOrder{
		ID:          1,
		Seller:      "alice",
		ForSale:     num.NewUint(10),
		SellPrice:   types.NewPrice("ZEN", 100, "USD", 33),
		DeferredFee: num.UintZero(),
	}

	assert.Equal(t, "ZEN", order.SellAsset())
	assert.Equal(t, "USD", order.ReceiveAsset())

	// 10 * 33/100 = 3.3: the ask rounds up so the seller never
	// undercuts their own rate, the receivable rounds down
	assert.True(t, order.WantedToBuy().EQ(num.NewUint(4)))
	assert.True(t, order.Receivable().EQ(num.NewUint(3)))

	// a remainder too small to buy a single unit still asks for one,
	// but is worth nothing: dust
	order.ForSale = num.NewUint(1)
	assert.True(t, order.WantedToBuy().EQ(num.NewUint(1)))
	assert.True(t, order.Receivable().IsZero())

	order.ForSale = num.UintZero()
	assert.True(t, order.WantedToBuy().IsZero())
}

func TestCloneIsDeep(t *testing.T) {
	order := &types.LimitOrder{
		ID:          7,
		Seller:      "bob",
		ForSale:     num.NewUint(100),
		SellPrice:   types.NewPrice("USD", 100, "ZEN", 50),
		DeferredFee: num.NewUint(2),
	}
	cpy := order.Clone()
	cpy.ForSale.SetUint64(1)
	cpy.SellPrice.Base.Amount.SetUint64(1)
	assert.True(t, order.ForSale.EQ(num.NewUint(100)))
	assert.True(t, order.SellPrice.Base.Amount.EQ(num.NewUint(100)))

	call := &types.CallOrder{
		ID:           9,
		Borrower:     "carol",
		Collateral:   num.NewUint(1000),
		Debt:         num.NewUint(400),
		DebtAsset:    "USD",
		BackingAsset: "ZEN",
		CallPrice:    types.CallPrice(types.NewAssetAmount("USD", 400), types.NewAssetAmount("ZEN", 1000), 2000),
	}
	ccpy := call.Clone()
	ccpy.Debt.SetUint64(1)
	assert.True(t, call.Debt.EQ(num.NewUint(400)))
}
