package execution_test

import (
	"testing"
	"time"

	"code.zenithprotocol.io/zenith/core/assets"
	"code.zenithprotocol.io/zenith/core/execution"
	"code.zenithprotocol.io/zenith/core/execution/mocks"
	"code.zenithprotocol.io/zenith/core/ledger"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
	"code.zenithprotocol.io/zenith/logging"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type testEngine struct {
	*execution.Engine
	ctrl    *gomock.Controller
	store   *ledger.Store
	assets  *assets.Service
	timeSvc *mocks.MockTimeService
	broker  *mocks.MockBroker
	now     time.Time
}

// getTestEngine builds an engine over three registered assets: the
// core asset, a plain EUR and a market-issued USD backed by the core
// asset.
func getTestEngine(t *testing.T) *testEngine {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logging.NewTestLogger()

	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	timeSvc := mocks.NewMockTimeService(ctrl)
	timeSvc.EXPECT().GetTimeNow().Return(now).AnyTimes()
	broker := mocks.NewMockBroker(ctrl)
	broker.EXPECT().Send(gomock.Any()).AnyTimes()

	svc := assets.New(log, assets.NewDefaultConfig())
	require.NoError(t, svc.Register(types.NewAsset(types.CoreSymbol)))
	require.NoError(t, svc.Register(types.NewAsset("EUR")))
	usd := types.NewAsset("USD")
	usd.BitAsset = &types.BitAssetData{
		ShortBackingAsset: types.CoreSymbol,
	}
	require.NoError(t, svc.Register(usd))

	store := ledger.New(log, ledger.NewDefaultConfig(), svc, broker)
	store.SetNow(now)

	engine := execution.New(log, execution.NewDefaultConfig(), store, svc, timeSvc, broker)
	return &testEngine{
		Engine:  engine,
		ctrl:    ctrl,
		store:   store,
		assets:  svc,
		timeSvc: timeSvc,
		broker:  broker,
		now:     now,
	}
}

func (te *testEngine) Finish() {
	te.ctrl.Finish()
}

func (te *testEngine) fund(account, asset string, amount uint64) {
	te.store.Credit(account, asset, num.NewUint(amount))
}

func (te *testEngine) publishFeed(t *testing.T, mcr uint32) {
	t.Helper()
	require.NoError(t, te.assets.PublishFeed("USD", &types.PriceFeed{
		SettlementPrice:            types.NewPrice("USD", 1, types.CoreSymbol, 1),
		MaintenanceCollateralRatio: mcr,
	}))
}

// sell builds a plain limit order submission expiring in an hour.
func (te *testEngine) sell(seller, sellAsset string, sellAmount uint64, receiveAsset string, receiveAmount uint64) *types.LimitOrderSubmission {
	return &types.LimitOrderSubmission{
		Seller:       seller,
		AmountToSell: types.NewAssetAmount(sellAsset, sellAmount),
		MinToReceive: types.NewAssetAmount(receiveAsset, receiveAmount),
		Expiration:   te.now.Add(time.Hour),
	}
}

func (te *testEngine) balance(account, asset string) *num.Uint {
	return te.store.GetBalance(account, asset)
}
