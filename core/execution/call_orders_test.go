package execution_test

import (
	"testing"

	"code.zenithprotocol.io/zenith/core/execution"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callUpdate(account string, deltaCollateral, deltaDebt int64) *types.CallOrderUpdate {
	return &types.CallOrderUpdate{
		FundingAccount:  account,
		DeltaCollateral: types.NewDelta(types.CoreSymbol, deltaCollateral),
		DeltaDebt:       types.NewDelta("USD", deltaDebt),
	}
}

func TestUpdateCallOrder(t *testing.T) {
	t.Run("Opening a position mints debt against collateral", testCallOpen)
	t.Run("Opening at the exact maintenance ratio is rejected", testCallOpenAtRatio)
	t.Run("Repaying debt burns supply", testCallRepay)
	t.Run("Closing completely releases all collateral", testCallClose)
	t.Run("Prediction market positions are one to one", testCallPredictionMarket)
}

func TestUpdateCallOrderRejections(t *testing.T) {
	t.Run("Plain asset cannot be borrowed", testCallPlainAsset)
	t.Run("Settled asset cannot be borrowed", testCallSettledAsset)
	t.Run("Collateral must be the backing asset", testCallWrongBacking)
	t.Run("Prediction market ratio mismatch", testCallPredictionRatio)
	t.Run("No feed, no borrowing", testCallNoFeed)
	t.Run("Repaying more than held", testCallCannotCover)
	t.Run("Pledging more than held", testCallCannotCollateralize)
	t.Run("New position needs positive deltas", testCallInvalidNewPosition)
	t.Run("Closing must release all collateral", testCallPartialCloseInvalid)
	t.Run("Withdrawing more collateral than pledged", testCallOverWithdraw)
}

func TestUpdateCallOrderMarginCalls(t *testing.T) {
	t.Run("Update liquidated in full by the sweep succeeds", testCallSweepLiquidates)
	t.Run("Update leaving an unfillable margin call rolls back", testCallSweepUnfilled)
}

func testCallOpen(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)

	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	assert.True(t, e.balance("bob", types.CoreSymbol).IsZero())
	assert.True(t, e.balance("bob", "USD").EQ(num.NewUint(400)))
	assert.True(t, e.store.Supply("USD").EQ(num.NewUint(400)))
	assert.True(t, e.store.TotalCoreInOrders("bob").EQ(num.NewUint(1000)))

	call, ok := e.store.CallOrderBy("bob", "USD")
	require.True(t, ok)
	assert.True(t, call.Collateral.EQ(num.NewUint(1000)))
	assert.True(t, call.Debt.EQ(num.NewUint(400)))
	// call_price = 1000*1000 : 400*2000
	assert.True(t, call.CallPrice.Base.Amount.EQ(num.NewUint(1_000_000)))
	assert.True(t, call.CallPrice.Quote.Amount.EQ(num.NewUint(800_000)))
}

func testCallOpenAtRatio(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)

	// 1000 collateral against 500 debt sits exactly at the 2:1
	// maintenance ratio: already in margin-call territory, and with an
	// empty book the call cannot fill
	err := e.UpdateCallOrder(callUpdate("bob", 1000, 500))
	assert.ErrorIs(t, err, execution.ErrUnfilledMarginCall)

	// nothing happened
	assert.True(t, e.balance("bob", types.CoreSymbol).EQ(num.NewUint(1000)))
	assert.True(t, e.balance("bob", "USD").IsZero())
	assert.True(t, e.store.Supply("USD").IsZero())
	assert.True(t, e.store.TotalCoreInOrders("bob").IsZero())
	_, ok := e.store.CallOrderBy("bob", "USD")
	assert.False(t, ok)
}

func testCallRepay(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 0, -200)))

	assert.True(t, e.balance("bob", "USD").EQ(num.NewUint(200)))
	assert.True(t, e.store.Supply("USD").EQ(num.NewUint(200)))
	call, ok := e.store.CallOrderBy("bob", "USD")
	require.True(t, ok)
	assert.True(t, call.Debt.EQ(num.NewUint(200)))
	assert.True(t, call.Collateral.EQ(num.NewUint(1000)))
}

func testCallClose(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", -1000, -400)))

	assert.True(t, e.balance("bob", types.CoreSymbol).EQ(num.NewUint(1000)))
	assert.True(t, e.balance("bob", "USD").IsZero())
	assert.True(t, e.store.Supply("USD").IsZero())
	assert.True(t, e.store.TotalCoreInOrders("bob").IsZero())
	_, ok := e.store.CallOrderBy("bob", "USD")
	assert.False(t, ok)
}

func testCallPredictionMarket(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	yes := types.NewAsset("YES")
	yes.BitAsset = &types.BitAssetData{
		ShortBackingAsset:  types.CoreSymbol,
		IsPredictionMarket: true,
	}
	require.NoError(t, e.assets.Register(yes))
	e.fund("bob", types.CoreSymbol, 100)

	// no feed needed, collateral covers the debt one to one
	err := e.UpdateCallOrder(&types.CallOrderUpdate{
		FundingAccount:  "bob",
		DeltaCollateral: types.NewDelta(types.CoreSymbol, 100),
		DeltaDebt:       types.NewDelta("YES", 100),
	})
	require.NoError(t, err)

	assert.True(t, e.balance("bob", "YES").EQ(num.NewUint(100)))
	call, ok := e.store.CallOrderBy("bob", "YES")
	require.True(t, ok)
	assert.True(t, call.Collateral.EQ(call.Debt))
}

func testCallPlainAsset(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()

	err := e.UpdateCallOrder(&types.CallOrderUpdate{
		FundingAccount:  "bob",
		DeltaCollateral: types.NewDelta(types.CoreSymbol, 100),
		DeltaDebt:       types.NewDelta("EUR", 100),
	})
	assert.ErrorIs(t, err, execution.ErrNotCollateralizedAsset)
}

func testCallSettledAsset(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	bad, err := e.assets.BitAssetData("USD")
	require.NoError(t, err)
	bad.HasSettlement = true
	e.fund("bob", types.CoreSymbol, 1000)

	err = e.UpdateCallOrder(callUpdate("bob", 1000, 400))
	assert.ErrorIs(t, err, execution.ErrAssetSettled)
}

func testCallWrongBacking(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)

	err := e.UpdateCallOrder(&types.CallOrderUpdate{
		FundingAccount:  "bob",
		DeltaCollateral: types.NewDelta("EUR", 1000),
		DeltaDebt:       types.NewDelta("USD", 400),
	})
	assert.ErrorIs(t, err, execution.ErrWrongBackingAsset)
}

func testCallPredictionRatio(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	yes := types.NewAsset("YES")
	yes.BitAsset = &types.BitAssetData{
		ShortBackingAsset:  types.CoreSymbol,
		IsPredictionMarket: true,
	}
	require.NoError(t, e.assets.Register(yes))

	err := e.UpdateCallOrder(&types.CallOrderUpdate{
		FundingAccount:  "bob",
		DeltaCollateral: types.NewDelta(types.CoreSymbol, 100),
		DeltaDebt:       types.NewDelta("YES", 99),
	})
	assert.ErrorIs(t, err, execution.ErrPredictionMarketRatioMismatch)
}

func testCallNoFeed(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.fund("bob", types.CoreSymbol, 1000)

	err := e.UpdateCallOrder(callUpdate("bob", 1000, 400))
	assert.ErrorIs(t, err, execution.ErrInsufficientFeed)
}

func testCallCannotCover(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	// bob gives his borrowed USD away, then tries to repay it
	require.NoError(t, e.store.Debit("bob", "USD", num.NewUint(300)))
	err := e.UpdateCallOrder(callUpdate("bob", 0, -400))
	assert.ErrorIs(t, err, execution.ErrInsufficientBalanceToCover)
}

func testCallCannotCollateralize(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 999)

	err := e.UpdateCallOrder(callUpdate("bob", 1000, 400))
	assert.ErrorIs(t, err, execution.ErrInsufficientBalanceToCollateralize)
}

func testCallInvalidNewPosition(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	// held USD must be circulating supply, it was borrowed by someone
	e.fund("bob", "USD", 100)
	require.NoError(t, e.store.AdjustSupply("USD", num.NewInt(100)))

	err := e.UpdateCallOrder(callUpdate("bob", 1000, -100))
	assert.ErrorIs(t, err, execution.ErrInvalidNewPosition)

	// the rejected operation left no trace
	assert.True(t, e.balance("bob", types.CoreSymbol).EQ(num.NewUint(1000)))
	assert.True(t, e.balance("bob", "USD").EQ(num.NewUint(100)))
	assert.True(t, e.store.Supply("USD").EQ(num.NewUint(100)))
	assert.True(t, e.store.TotalCoreInOrders("bob").IsZero())
}

func testCallPartialCloseInvalid(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	// repaying all debt while only withdrawing half the collateral
	err := e.UpdateCallOrder(callUpdate("bob", -500, -400))
	assert.ErrorIs(t, err, execution.ErrPartialCloseInvalid)

	call, ok := e.store.CallOrderBy("bob", "USD")
	require.True(t, ok)
	assert.True(t, call.Debt.EQ(num.NewUint(400)))
	assert.True(t, call.Collateral.EQ(num.NewUint(1000)))
}

func testCallOverWithdraw(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 1000)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 1000, 400)))

	err := e.UpdateCallOrder(callUpdate("bob", -1500, 0))
	assert.ErrorIs(t, err, execution.ErrInvariantViolation)
}

func testCallSweepLiquidates(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 2000)
	e.fund("alice", "USD", 500)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 2000, 500)))

	// alice rests 500 USD at one core unit each
	_, err := e.SubmitLimitOrder(e.sell("alice", "USD", 500, types.CoreSymbol, 500))
	require.NoError(t, err)

	// withdrawing half the collateral puts bob at the maintenance
	// ratio; the sweep buys the whole debt back from alice and closes
	// the position, so the update stands
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", -1000, 0)))

	_, ok := e.store.CallOrderBy("bob", "USD")
	assert.False(t, ok)
	assert.True(t, e.store.Supply("USD").IsZero())
	// withdrawn collateral plus what the liquidation left over
	assert.True(t, e.balance("bob", types.CoreSymbol).EQ(num.NewUint(1500)))
	assert.True(t, e.balance("alice", types.CoreSymbol).EQ(num.NewUint(500)))
	assert.True(t, e.store.TotalCoreInOrders("bob").IsZero())
}

func testCallSweepUnfilled(t *testing.T) {
	e := getTestEngine(t)
	defer e.Finish()
	e.publishFeed(t, 2000)
	e.fund("bob", types.CoreSymbol, 2000)
	e.fund("alice", "USD", 200)
	require.NoError(t, e.UpdateCallOrder(callUpdate("bob", 2000, 500)))

	order, err := e.SubmitLimitOrder(e.sell("alice", "USD", 200, types.CoreSymbol, 200))
	require.NoError(t, err)

	// only 200 of the 500 debt can fill: the margin call cannot
	// complete and the whole update rolls back
	err = e.UpdateCallOrder(callUpdate("bob", -1000, 0))
	assert.ErrorIs(t, err, execution.ErrUnfilledMarginCall)

	call, ok := e.store.CallOrderBy("bob", "USD")
	require.True(t, ok)
	assert.True(t, call.Collateral.EQ(num.NewUint(2000)))
	assert.True(t, call.Debt.EQ(num.NewUint(500)))
	assert.True(t, e.balance("bob", types.CoreSymbol).IsZero())
	assert.True(t, e.store.TotalCoreInOrders("bob").EQ(num.NewUint(2000)))

	// alice's liquidity is restored untouched
	got, ok := e.store.LimitOrderByID(order.ID)
	require.True(t, ok)
	assert.True(t, got.ForSale.EQ(num.NewUint(200)))
}
