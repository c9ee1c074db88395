package types

import (
	"github.com/emirpasic/gods/sets/treeset"
)

const (
	// CoreSymbol is the symbol of the network's core asset. Balances in
	// open orders and pledged collateral denominated in it are tracked in
	// the per-account TotalCoreInOrders statistic.
	CoreSymbol = "ZEN"

	// RatioDenom is the denominator used to express collateral ratios as
	// integers, e.g. a maintenance collateral ratio of 2:1 is 2000.
	RatioDenom = 1000
)

// PriceFeed is the latest published feed for a market-issued asset.
// The settlement price is quoted debt-asset per backing-asset.
type PriceFeed struct {
	SettlementPrice            Price
	MaintenanceCollateralRatio uint32
}

// BitAssetData holds the market-issued (synthetic) metadata of an asset.
type BitAssetData struct {
	// CurrentFeed may be nil when no feed has been published yet.
	CurrentFeed *PriceFeed

	// ShortBackingAsset is the only asset accepted as collateral for
	// margin positions in this asset.
	ShortBackingAsset string

	IsPredictionMarket bool

	// HasSettlement is set once the asset has been globally settled
	// (black swan). No new or adjusted margin positions are accepted
	// after that point.
	HasSettlement bool

	// SettlementPrice and SettlementFund record the terms of a global
	// settlement once HasSettlement is set.
	SettlementPrice Price
	SettlementFund  AssetAmount
}

// Asset is the metadata record of a tradable asset.
type Asset struct {
	Symbol string

	// WhitelistMarkets / BlacklistMarkets restrict which assets this one
	// may trade against. Empty whitelist means unrestricted.
	WhitelistMarkets *treeset.Set
	BlacklistMarkets *treeset.Set

	// BitAsset is nil for plain assets.
	BitAsset *BitAssetData
}

// NewAsset returns a plain asset with empty market restriction sets.
func NewAsset(symbol string) *Asset {
	return &Asset{
		Symbol:           symbol,
		WhitelistMarkets: treeset.NewWithStringComparator(),
		BlacklistMarkets: treeset.NewWithStringComparator(),
	}
}

// IsMarketIssued returns true if the asset is a collateral-backed
// synthetic.
func (a *Asset) IsMarketIssued() bool {
	return a.BitAsset != nil
}
