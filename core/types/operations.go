package types

import (
	"time"

	"code.zenithprotocol.io/zenith/libs/num"
)

// LimitOrderSubmission opens a resting sell order.
type LimitOrderSubmission struct {
	Seller       string
	AmountToSell AssetAmount
	MinToReceive AssetAmount
	Expiration   time.Time

	// FillOrKill rejects the whole operation unless the order is fully
	// matched immediately.
	FillOrKill bool

	// DeferredFee is carried on the order; fee computation itself
	// happens outside this core.
	DeferredFee *num.Uint
}

// Price returns the order's sell price, amount-to-sell per
// min-to-receive.
func (s *LimitOrderSubmission) Price() Price {
	return Price{
		Base:  s.AmountToSell.Clone(),
		Quote: s.MinToReceive.Clone(),
	}
}

// LimitOrderCancellation removes a resting order and refunds the unsold
// remainder.
type LimitOrderCancellation struct {
	Owner   string
	OrderID uint64
}

// CallOrderUpdate opens, adjusts or closes a margin position through a
// pair of signed deltas. Positive debt borrows more, negative repays;
// positive collateral pledges more, negative withdraws.
type CallOrderUpdate struct {
	FundingAccount  string
	DeltaCollateral Delta
	DeltaDebt       Delta
}
