package events

import (
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
)

// Type is the type of an event emitted by the market core.
type Type int

const (
	LimitOrderCreatedType Type = iota
	LimitOrderCancelledType
	TradeType
	CallOrderUpdatedType
	CallOrderClosedType
	MarginCallType
	AssetSettledType
)

// Event is implemented by everything the market core publishes through
// a broker. Events are purely informational, consensus never depends
// on whether anyone listens.
type Event interface {
	Type() Type
}

type LimitOrderCreated struct {
	Order types.LimitOrder
}

func (LimitOrderCreated) Type() Type { return LimitOrderCreatedType }

type LimitOrderCancelled struct {
	Order types.LimitOrder
	// Refunded is the unsold remainder returned to the seller.
	Refunded types.AssetAmount
}

func (LimitOrderCancelled) Type() Type { return LimitOrderCancelledType }

// Trade is a fill between a taker and a resting maker order, priced at
// the maker's rate.
type Trade struct {
	TakerOrder uint64
	MakerOrder uint64
	Sold       types.AssetAmount
	Bought     types.AssetAmount
}

func (Trade) Type() Type { return TradeType }

type CallOrderUpdated struct {
	Order types.CallOrder
}

func (CallOrderUpdated) Type() Type { return CallOrderUpdatedType }

type CallOrderClosed struct {
	Borrower  string
	DebtAsset string
}

func (CallOrderClosed) Type() Type { return CallOrderClosedType }

// MarginCall is a forced fill of an under-collateralized position
// against resting liquidity.
type MarginCall struct {
	CallOrder  uint64
	LimitOrder uint64
	DebtFilled *num.Uint
	Collateral *num.Uint
}

func (MarginCall) Type() Type { return MarginCallType }

// AssetSettled signals a global settlement (black swan) of a
// market-issued asset.
type AssetSettled struct {
	Asset           string
	SettlementPrice types.Price
}

func (AssetSettled) Type() Type { return AssetSettledType }
