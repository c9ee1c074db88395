package types

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"code.zenithprotocol.io/zenith/libs/num"
)

var (
	// ErrPriceAssetMismatch signals a comparison between prices quoted on
	// different asset pairs or with different orientations.
	ErrPriceAssetMismatch = errors.New("prices are not quoted on the same asset pair")
)

// AssetAmount is an amount of a given asset.
type AssetAmount struct {
	Asset  string
	Amount *num.Uint
}

func NewAssetAmount(asset string, amount uint64) AssetAmount {
	return AssetAmount{
		Asset:  asset,
		Amount: num.NewUint(amount),
	}
}

func (a AssetAmount) Clone() AssetAmount {
	return AssetAmount{
		Asset:  a.Asset,
		Amount: a.Amount.Clone(),
	}
}

func (a AssetAmount) String() string {
	return fmt.Sprintf("%s %s", a.Amount.String(), a.Asset)
}

// Delta is a signed amount of a given asset, used by the call order
// updater to express collateral and debt adjustments.
type Delta struct {
	Asset  string
	Amount *num.Int
}

func NewDelta(asset string, amount int64) Delta {
	return Delta{
		Asset:  asset,
		Amount: num.NewInt(amount),
	}
}

func (d Delta) String() string {
	return fmt.Sprintf("%s %s", d.Amount.String(), d.Asset)
}

// Price is a rational exchange rate between two assets, expressed as a
// ratio of two amounts: Base.Amount units of Base.Asset are worth
// Quote.Amount units of Quote.Asset. Its numeric value is quoted
// base-asset per quote-asset. All comparisons cross-multiply through
// big.Int, no division and no floating point ever happens.
type Price struct {
	Base  AssetAmount
	Quote AssetAmount
}

func NewPrice(baseAsset string, baseAmount uint64, quoteAsset string, quoteAmount uint64) Price {
	return Price{
		Base:  NewAssetAmount(baseAsset, baseAmount),
		Quote: NewAssetAmount(quoteAsset, quoteAmount),
	}
}

// IsNil returns true for the zero value, used for unset feed prices.
func (p Price) IsNil() bool {
	return p.Base.Amount == nil || p.Quote.Amount == nil
}

func (p Price) Clone() Price {
	if p.IsNil() {
		return Price{}
	}
	return Price{
		Base:  p.Base.Clone(),
		Quote: p.Quote.Clone(),
	}
}

// Invert flips the orientation of the price.
func (p Price) Invert() Price {
	return Price{
		Base:  p.Quote,
		Quote: p.Base,
	}
}

func (p Price) String() string {
	if p.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("%s / %s", p.Base.String(), p.Quote.String())
}

// ToDecimal returns the numeric value of the price for display. Never
// use the result in a consensus decision.
func (p Price) ToDecimal() num.Decimal {
	if p.IsNil() || p.Quote.Amount.IsZero() {
		return num.DecimalZero()
	}
	return p.Base.Amount.ToDecimal().Div(p.Quote.Amount.ToDecimal())
}

func (p Price) sameOrientation(o Price) bool {
	return p.Base.Asset == o.Base.Asset && p.Quote.Asset == o.Quote.Asset
}

func (p Price) cross(o Price) (*big.Int, *big.Int) {
	l := big.NewInt(0).Mul(p.Base.Amount.BigInt(), o.Quote.Amount.BigInt())
	r := big.NewInt(0).Mul(o.Base.Amount.BigInt(), p.Quote.Amount.BigInt())
	return l, r
}

// LessThan reports p < o. Both prices must be quoted on the same asset
// pair with the same orientation.
func (p Price) LessThan(o Price) (bool, error) {
	if !p.sameOrientation(o) {
		return false, ErrPriceAssetMismatch
	}
	l, r := p.cross(o)
	return l.Cmp(r) < 0, nil
}

// GreaterOrEqual reports p >= o. Both prices must be quoted on the same
// asset pair with the same orientation.
func (p Price) GreaterOrEqual(o Price) (bool, error) {
	lt, err := p.LessThan(o)
	if err != nil {
		return false, err
	}
	return !lt, nil
}

// CallPrice computes the price at which a margin position's
// collateral-to-debt ratio equals the maintenance collateral ratio. It
// is quoted backing-asset per debt-asset:
//
//	call_price = collateral * RatioDenom : debt * MCR
//
// where MCR is expressed over RatioDenom (2000 = 2:1).
func CallPrice(debt, collateral AssetAmount, maintenanceRatio uint32) Price {
	base := num.UintZero().Mul(collateral.Amount, num.NewUint(RatioDenom))
	quote := num.UintZero().Mul(debt.Amount, num.NewUint(uint64(maintenanceRatio)))
	return Price{
		Base:  AssetAmount{Asset: collateral.Asset, Amount: base},
		Quote: AssetAmount{Asset: debt.Asset, Amount: quote},
	}
}

// LimitOrder is a resting offer to sell a fixed amount of one asset for
// at least a given rate in another.
type LimitOrder struct {
	ID     uint64
	Seller string

	// ForSale is the unsold remainder, denominated in the sell asset.
	ForSale   *num.Uint
	SellPrice Price

	Expiration  time.Time
	DeferredFee *num.Uint
}

// SellAsset returns the asset the order is selling.
func (o *LimitOrder) SellAsset() string {
	return o.SellPrice.Base.Asset
}

// ReceiveAsset returns the asset the order wants in return.
func (o *LimitOrder) ReceiveAsset() string {
	return o.SellPrice.Quote.Asset
}

// AmountForSale returns the unsold remainder as an asset amount.
func (o *LimitOrder) AmountForSale() AssetAmount {
	return AssetAmount{
		Asset:  o.SellAsset(),
		Amount: o.ForSale.Clone(),
	}
}

// WantedToBuy returns the receive-asset amount the remainder still asks
// for, rounded up so the seller never gets below their rate.
func (o *LimitOrder) WantedToBuy() *num.Uint {
	return num.MulDivUp(o.ForSale, o.SellPrice.Quote.Amount, o.SellPrice.Base.Amount)
}

// Receivable returns what the remainder is worth at the order's own
// rate, rounded down. A positive remainder with a zero receivable is
// dust that can never trade.
func (o *LimitOrder) Receivable() *num.Uint {
	return num.MulDivDown(o.ForSale, o.SellPrice.Quote.Amount, o.SellPrice.Base.Amount)
}

func (o *LimitOrder) Clone() *LimitOrder {
	cpy := *o
	cpy.ForSale = o.ForSale.Clone()
	cpy.SellPrice = o.SellPrice.Clone()
	cpy.DeferredFee = o.DeferredFee.Clone()
	return &cpy
}

// CallOrder is a margin position: debt borrowed against pledged
// collateral. A call order only exists while both collateral and debt
// are strictly positive, and there is at most one per
// (borrower, debt asset) pair.
type CallOrder struct {
	ID       uint64
	Borrower string

	// Collateral is denominated in the debt asset's backing asset,
	// Debt in the debt asset itself.
	Collateral *num.Uint
	Debt       *num.Uint

	DebtAsset    string
	BackingAsset string

	// CallPrice is the margin-call threshold, quoted backing-asset per
	// debt-asset. The position is in margin-call territory once the
	// inverted call price reaches the feed's settlement price.
	CallPrice Price
}

// DebtAmount returns the debt as an asset amount.
func (c *CallOrder) DebtAmount() AssetAmount {
	return AssetAmount{Asset: c.DebtAsset, Amount: c.Debt.Clone()}
}

// CollateralAmount returns the collateral as an asset amount.
func (c *CallOrder) CollateralAmount() AssetAmount {
	return AssetAmount{Asset: c.BackingAsset, Amount: c.Collateral.Clone()}
}

func (c *CallOrder) Clone() *CallOrder {
	cpy := *c
	cpy.Collateral = c.Collateral.Clone()
	cpy.Debt = c.Debt.Clone()
	cpy.CallPrice = c.CallPrice.Clone()
	return &cpy
}
