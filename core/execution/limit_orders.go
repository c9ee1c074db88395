package execution

import (
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
	"code.zenithprotocol.io/zenith/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	opLimitOrderCreate = "limit_order_create"
	opLimitOrderCancel = "limit_order_cancel"
)

// SubmitLimitOrder opens a resting sell order: the seller's funds are
// reserved and the order is immediately submitted for matching. The
// returned order carries the state after matching; a completely filled
// order no longer rests on the book.
func (e *Engine) SubmitLimitOrder(sub *types.LimitOrderSubmission) (*types.LimitOrder, error) {
	if err := e.validateSubmission(sub); err != nil {
		metrics.OperationRejected(opLimitOrderCreate)
		return nil, err
	}

	snap := e.store.Snapshot()
	order, err := e.applySubmission(sub)
	if err != nil {
		e.store.Restore(snap)
		metrics.OperationRejected(opLimitOrderCreate)
		if e.log.IsDebug() {
			e.log.Debug("limit order rejected",
				zap.String("seller", sub.Seller),
				zap.Error(err),
			)
		}
		return nil, err
	}
	metrics.OperationAccepted(opLimitOrderCreate)
	return order, nil
}

func (e *Engine) validateSubmission(sub *types.LimitOrderSubmission) error {
	if sub.Expiration.Before(e.timeSvc.GetTimeNow()) {
		return errors.Wrapf(ErrOrderExpirationInPast,
			"expiration %s, ledger time %s", sub.Expiration, e.timeSvc.GetTimeNow())
	}

	sellAsset, err := e.assets.Get(sub.AmountToSell.Asset)
	if err != nil {
		return err
	}
	receiveAsset, err := e.assets.Get(sub.MinToReceive.Asset)
	if err != nil {
		return err
	}
	if err := validateMarketPair(sellAsset, receiveAsset); err != nil {
		return err
	}
	if err := validateMarketPair(receiveAsset, sellAsset); err != nil {
		return err
	}

	if !e.store.IsAuthorizedAsset(sub.Seller, sellAsset.Symbol) ||
		!e.store.IsAuthorizedAsset(sub.Seller, receiveAsset.Symbol) {
		return ErrAccountNotAuthorized
	}

	balance := e.store.GetBalance(sub.Seller, sellAsset.Symbol)
	if balance.LT(sub.AmountToSell.Amount) {
		return errors.Wrapf(ErrInsufficientBalance,
			"balance %s, amount to sell %s", balance, sub.AmountToSell)
	}
	return nil
}

// validateMarketPair checks one side's market restrictions against the
// counterpart asset.
func validateMarketPair(a, counterpart *types.Asset) error {
	if a.WhitelistMarkets.Size() > 0 && !a.WhitelistMarkets.Contains(counterpart.Symbol) {
		return errors.Wrapf(ErrMarketNotWhitelisted,
			"%s does not whitelist %s", a.Symbol, counterpart.Symbol)
	}
	if a.BlacklistMarkets.Size() > 0 && a.BlacklistMarkets.Contains(counterpart.Symbol) {
		return errors.Wrapf(ErrMarketBlacklisted,
			"%s blacklists %s", a.Symbol, counterpart.Symbol)
	}
	return nil
}

func (e *Engine) applySubmission(sub *types.LimitOrderSubmission) (*types.LimitOrder, error) {
	seller := sub.Seller
	sellAmount := sub.AmountToSell.Amount

	// selling core locks liquidity that counts towards fee and vote
	// weight accounting elsewhere.
	if sub.AmountToSell.Asset == types.CoreSymbol {
		if err := e.store.AdjustCoreInOrders(seller, num.IntFromUint(sellAmount, true)); err != nil {
			return nil, err
		}
	}
	if err := e.store.Debit(seller, sub.AmountToSell.Asset, sellAmount); err != nil {
		return nil, errors.Wrap(ErrInsufficientBalance, err.Error())
	}

	// the deferred fee is collected up front in the core asset and only
	// returned if the order is cancelled before filling.
	deferredFee := sub.DeferredFee
	if deferredFee == nil {
		deferredFee = num.UintZero()
	}
	if !deferredFee.IsZero() {
		if err := e.store.Debit(seller, types.CoreSymbol, deferredFee); err != nil {
			return nil, errors.Wrap(ErrInsufficientBalance, err.Error())
		}
	}
	order := e.store.CreateLimitOrder(seller, sub.Price(), sub.Expiration, deferredFee)
	if e.broker != nil {
		e.broker.Send(events.LimitOrderCreated{Order: *order.Clone()})
	}

	filled, err := e.store.ApplyOrder(order)
	if err != nil {
		return nil, err
	}
	if sub.FillOrKill && !filled {
		return nil, ErrFillOrKillUnfilled
	}
	return order, nil
}

// CancelLimitOrder removes a resting order, refunding the unsold
// remainder, then re-runs the margin-call sweep for both assets of the
// freed pair: removing resting liquidity can change whether
// previously blocked margin calls can now fill.
func (e *Engine) CancelLimitOrder(op *types.LimitOrderCancellation) (types.AssetAmount, error) {
	order, ok := e.store.LimitOrderByID(op.OrderID)
	if !ok {
		metrics.OperationRejected(opLimitOrderCancel)
		return types.AssetAmount{}, errors.Wrapf(ErrOrderNotFound, "order %d", op.OrderID)
	}
	if order.Seller != op.Owner {
		metrics.OperationRejected(opLimitOrderCancel)
		return types.AssetAmount{}, errors.Wrapf(ErrNotOrderOwner,
			"order %d belongs to %s", order.ID, order.Seller)
	}

	snap := e.store.Snapshot()
	refunded, err := e.applyCancellation(order)
	if err != nil {
		e.store.Restore(snap)
		metrics.OperationRejected(opLimitOrderCancel)
		return types.AssetAmount{}, err
	}
	metrics.OperationAccepted(opLimitOrderCancel)
	return refunded, nil
}

func (e *Engine) applyCancellation(order *types.LimitOrder) (types.AssetAmount, error) {
	base := order.SellAsset()
	quote := order.ReceiveAsset()
	refunded := order.AmountForSale()

	// the explicit cancellation is itself visible in the ledger
	// history, no virtual operation needed.
	if err := e.store.CancelOrder(order, false); err != nil {
		return types.AssetAmount{}, err
	}
	if e.broker != nil {
		e.broker.Send(events.LimitOrderCancelled{
			Order:    *order.Clone(),
			Refunded: refunded.Clone(),
		})
	}

	// the freed liquidity may unblock margin calls on either side of
	// the pair, so both are re-checked.
	if _, err := e.store.CheckCallOrders(base, true); err != nil {
		return types.AssetAmount{}, err
	}
	if _, err := e.store.CheckCallOrders(quote, true); err != nil {
		return types.AssetAmount{}, err
	}
	return refunded, nil
}
