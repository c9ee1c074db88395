package execution

import (
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const opCallOrderUpdate = "call_order_update"

// UpdateCallOrder atomically opens, adjusts or closes one margin
// position through a pair of signed deltas, then re-validates the
// position against the margin-call sweep. An update that would leave
// an under-collateralized or partially liquidated position is rejected
// as a whole; the ledger is left untouched.
func (e *Engine) UpdateCallOrder(op *types.CallOrderUpdate) error {
	debtAsset, err := e.validateCallOrderUpdate(op)
	if err != nil {
		metrics.OperationRejected(opCallOrderUpdate)
		return err
	}

	snap := e.store.Snapshot()
	if err := e.applyCallOrderUpdate(op, debtAsset); err != nil {
		e.store.Restore(snap)
		metrics.OperationRejected(opCallOrderUpdate)
		if e.log.IsDebug() {
			e.log.Debug("call order update rejected",
				zap.String("account", op.FundingAccount),
				zap.String("delta-collateral", op.DeltaCollateral.String()),
				zap.String("delta-debt", op.DeltaDebt.String()),
				zap.Error(err),
			)
		}
		return err
	}
	metrics.OperationAccepted(opCallOrderUpdate)
	return nil
}

func (e *Engine) validateCallOrderUpdate(op *types.CallOrderUpdate) (*types.Asset, error) {
	debtAsset, err := e.assets.Get(op.DeltaDebt.Asset)
	if err != nil {
		return nil, err
	}
	if !debtAsset.IsMarketIssued() {
		return nil, errors.Wrapf(ErrNotCollateralizedAsset,
			"unable to cover %s", debtAsset.Symbol)
	}
	bad := debtAsset.BitAsset

	// once an asset has been globally settled all margin positions are
	// already closed; no further positions may be taken.
	if bad.HasSettlement {
		return nil, errors.Wrapf(ErrAssetSettled, "asset %s", debtAsset.Symbol)
	}

	if op.DeltaCollateral.Asset != bad.ShortBackingAsset {
		return nil, errors.Wrapf(ErrWrongBackingAsset,
			"%s is backed by %s, got %s",
			debtAsset.Symbol, bad.ShortBackingAsset, op.DeltaCollateral.Asset)
	}

	if bad.IsPredictionMarket {
		if !op.DeltaCollateral.Amount.EQ(op.DeltaDebt.Amount) {
			return nil, errors.Wrapf(ErrPredictionMarketRatioMismatch,
				"collateral %s, debt %s", op.DeltaCollateral, op.DeltaDebt)
		}
	} else if bad.CurrentFeed == nil {
		return nil, errors.Wrapf(ErrInsufficientFeed, "asset %s", debtAsset.Symbol)
	}

	if op.DeltaDebt.Amount.IsNegative() {
		balance := e.store.GetBalance(op.FundingAccount, debtAsset.Symbol)
		if balance.LT(op.DeltaDebt.Amount.U) {
			return nil, errors.Wrapf(ErrInsufficientBalanceToCover,
				"cannot cover %s when payer only has %s", op.DeltaDebt, balance)
		}
	}

	if op.DeltaCollateral.Amount.IsPositive() {
		balance := e.store.GetBalance(op.FundingAccount, bad.ShortBackingAsset)
		if balance.LT(op.DeltaCollateral.Amount.U) {
			return nil, errors.Wrapf(ErrInsufficientBalanceToCollateralize,
				"cannot increase collateral by %s when payer only has %s",
				op.DeltaCollateral, balance)
		}
	}
	return debtAsset, nil
}

func (e *Engine) applyCallOrderUpdate(op *types.CallOrderUpdate, debtAsset *types.Asset) error {
	payer := op.FundingAccount
	bad := debtAsset.BitAsset

	// borrowing credits the payer and mints supply, repaying debits
	// and burns.
	if !op.DeltaDebt.Amount.IsZero() {
		if err := e.store.AdjustBalance(payer, debtAsset.Symbol, op.DeltaDebt.Amount); err != nil {
			return errors.Wrap(ErrInsufficientBalanceToCover, err.Error())
		}
		if err := e.store.AdjustSupply(debtAsset.Symbol, op.DeltaDebt.Amount); err != nil {
			return err
		}
	}

	if !op.DeltaCollateral.Amount.IsZero() {
		if err := e.store.AdjustBalance(payer, bad.ShortBackingAsset, op.DeltaCollateral.Amount.Neg()); err != nil {
			return errors.Wrap(ErrInsufficientBalanceToCollateralize, err.Error())
		}
	}

	call, err := e.upsertCallOrder(op, debtAsset)
	if err != nil {
		return err
	}

	// pledged core counts towards the locked-liquidity statistic, in
	// either direction.
	if !op.DeltaCollateral.Amount.IsZero() && bad.ShortBackingAsset == types.CoreSymbol {
		if err := e.store.AdjustCoreInOrders(payer, op.DeltaCollateral.Amount); err != nil {
			return errors.Wrap(ErrInvariantViolation, err.Error())
		}
	}

	if call.Debt.IsZero() {
		if !call.Collateral.IsZero() {
			return errors.Wrapf(ErrPartialCloseInvalid,
				"collateral %s left on a zero debt position", call.Collateral)
		}
		e.store.RemoveCallOrder(call)
		if e.broker != nil {
			e.broker.Send(events.CallOrderClosed{
				Borrower:  call.Borrower,
				DebtAsset: call.DebtAsset,
			})
		}
		// a fully closed position cannot be margin called, no re-check
		// needed.
		return nil
	}

	if call.Collateral.IsZero() {
		return errors.Wrap(ErrInvariantViolation, "collateral is zero with debt outstanding")
	}
	if e.broker != nil {
		e.broker.Send(events.CallOrderUpdated{Order: *call.Clone()})
	}

	if bad.IsPredictionMarket {
		return nil
	}
	return e.recheckMarginCall(call.ID, debtAsset)
}

// upsertCallOrder locates the payer's position for the debt asset and
// applies the deltas, creating the position when none exists. At most
// one position per (account, debt asset) ever exists.
func (e *Engine) upsertCallOrder(op *types.CallOrderUpdate, debtAsset *types.Asset) (*types.CallOrder, error) {
	bad := debtAsset.BitAsset
	mcr := uint32(types.RatioDenom)
	if bad.CurrentFeed != nil {
		mcr = bad.CurrentFeed.MaintenanceCollateralRatio
	}

	call, ok := e.store.CallOrderBy(op.FundingAccount, debtAsset.Symbol)
	if !ok {
		if !op.DeltaCollateral.Amount.IsPositive() || !op.DeltaDebt.Amount.IsPositive() {
			return nil, errors.Wrapf(ErrInvalidNewPosition,
				"collateral %s, debt %s", op.DeltaCollateral, op.DeltaDebt)
		}
		debt := types.AssetAmount{Asset: debtAsset.Symbol, Amount: op.DeltaDebt.Amount.U.Clone()}
		collateral := types.AssetAmount{Asset: bad.ShortBackingAsset, Amount: op.DeltaCollateral.Amount.U.Clone()}
		return e.store.CreateCallOrder(
			op.FundingAccount,
			debtAsset.Symbol,
			bad.ShortBackingAsset,
			collateral.Amount,
			debt.Amount,
			types.CallPrice(debt, collateral, mcr),
		)
	}

	newCollateral, ok := op.DeltaCollateral.Amount.AddUint(call.Collateral)
	if !ok {
		return nil, errors.Wrapf(ErrInvariantViolation,
			"cannot withdraw %s from %s collateral", op.DeltaCollateral, call.Collateral)
	}
	newDebt, ok := op.DeltaDebt.Amount.AddUint(call.Debt)
	if !ok {
		return nil, errors.Wrapf(ErrInvariantViolation,
			"cannot cover %s of %s debt", op.DeltaDebt, call.Debt)
	}

	e.store.ModifyCallOrder(call, func(c *types.CallOrder) {
		c.Collateral = newCollateral
		c.Debt = newDebt
		if !c.Debt.IsZero() {
			c.CallPrice = types.CallPrice(c.DebtAmount(), c.CollateralAmount(), mcr)
		}
	})
	return call, nil
}

// recheckMarginCall runs the margin-call sweep with black swans
// disallowed and validates the outcome: either the sweep fully
// liquidated the position, or it touched nothing and the position must
// genuinely be outside margin-call territory.
func (e *Engine) recheckMarginCall(callID uint64, debtAsset *types.Asset) error {
	bad := debtAsset.BitAsset

	marginCalled, err := e.store.CheckCallOrders(debtAsset.Symbol, false)
	if err != nil {
		return err
	}

	call, alive := e.store.CallOrderByID(callID)
	if marginCalled {
		// at least one call order filled; the updated position is only
		// acceptable if it was liquidated completely.
		if alive {
			return errors.Wrapf(ErrUnfilledMarginCall,
				"call price %s, settlement price %s",
				call.CallPrice.Invert(), bad.CurrentFeed.SettlementPrice)
		}
		return nil
	}

	if !alive {
		return errors.Wrap(ErrInvariantViolation,
			"no margin call was executed and yet the call object was deleted")
	}
	// nothing filled: either the position is safely collateralized, or
	// it needs a margin call no liquidity can execute. Only the former
	// is acceptable.
	safe, err := call.CallPrice.Invert().LessThan(bad.CurrentFeed.SettlementPrice)
	if err != nil {
		return err
	}
	if !safe {
		return errors.Wrapf(ErrUnfilledMarginCall,
			"call price %s, settlement price %s",
			call.CallPrice.Invert(), bad.CurrentFeed.SettlementPrice)
	}
	return nil
}
