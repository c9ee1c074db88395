package ledger

import (
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
	"code.zenithprotocol.io/zenith/metrics"

	"go.uber.org/zap"
)

// worstCall returns the least collateralized call order of a debt
// asset, or nil when there is none.
func (s *Store) worstCall(debtAsset string) *types.CallOrder {
	var worst *types.CallOrder
	s.callsFor(debtAsset).Ascend(func(c *types.CallOrder) bool {
		worst = c
		return false
	})
	return worst
}

// CheckCallOrders runs the margin-call sweep for one asset: every call
// order whose inverted call price has reached the feed's settlement
// price is filled against resting limit orders selling the debt asset,
// cheapest ask first, never paying more collateral per debt unit than
// the position's call price. Returns whether at least one fill
// happened.
//
// With allowBlackSwan set, a position that cannot cover its debt at
// the feed price triggers a global settlement of the asset instead.
// It is a no-op for plain assets, prediction markets, settled assets
// and assets without a feed.
func (s *Store) CheckCallOrders(asset string, allowBlackSwan bool) (bool, error) {
	a, err := s.assets.Get(asset)
	if err != nil {
		return false, err
	}
	if !a.IsMarketIssued() {
		return false, nil
	}
	bad := a.BitAsset
	if bad.HasSettlement || bad.IsPredictionMarket || bad.CurrentFeed == nil {
		return false, nil
	}
	settlement := bad.CurrentFeed.SettlementPrice

	marginCalled := false
	for {
		call := s.worstCall(asset)
		if call == nil {
			break
		}
		inTerritory, err := call.CallPrice.Invert().GreaterOrEqual(settlement)
		if err != nil {
			return marginCalled, err
		}
		if !inTerritory {
			break
		}

		maker := s.acceptableAsk(call)
		if maker == nil {
			if allowBlackSwan && s.isBlackSwan(call, settlement) {
				if err := s.globalSettle(a); err != nil {
					return marginCalled, err
				}
			}
			break
		}

		if err := s.fillMarginCall(call, maker, bad); err != nil {
			return marginCalled, err
		}
		marginCalled = true
	}
	return marginCalled, nil
}

// acceptableAsk returns the cheapest resting order selling the debt
// asset whose ask does not exceed the collateral-per-debt the call is
// allowed to pay, or nil.
func (s *Store) acceptableAsk(call *types.CallOrder) *types.LimitOrder {
	maker := s.bestOffer(call.DebtAsset, call.BackingAsset)
	if maker == nil {
		return nil
	}
	// the maker asks backing-per-debt; the call pays at most its call
	// price.
	acceptable, err := call.CallPrice.GreaterOrEqual(maker.SellPrice.Invert())
	if err != nil || !acceptable {
		return nil
	}
	return maker
}

// isBlackSwan reports whether the position's collateral cannot cover
// its debt valued at the feed's settlement price.
func (s *Store) isBlackSwan(call *types.CallOrder, settlement types.Price) bool {
	// settlement is quoted debt-per-backing: Debt * quote > Collateral * base
	// means the debt outweighs the collateral at the feed.
	l := num.UintZero().Mul(call.Debt, settlement.Quote.Amount)
	r := num.UintZero().Mul(call.Collateral, settlement.Base.Amount)
	return l.GT(r)
}

// fillMarginCall buys debt-asset units from the maker on behalf of the
// call order, paying collateral at the maker's ask and burning the
// repaid debt. Rounding goes against the position so the seller never
// receives below its ask.
func (s *Store) fillMarginCall(call *types.CallOrder, maker *types.LimitOrder, bad *types.BitAssetData) error {
	debtFill := num.Min(call.Debt, maker.ForSale)
	collateralPaid := num.Min(
		num.MulDivUp(debtFill, maker.SellPrice.Quote.Amount, maker.SellPrice.Base.Amount),
		call.Collateral,
	)

	s.ModifyCallOrder(call, func(c *types.CallOrder) {
		c.Debt.Sub(c.Debt, debtFill)
		c.Collateral.Sub(c.Collateral, collateralPaid)
		if !c.Debt.IsZero() && bad.CurrentFeed != nil {
			c.CallPrice = types.CallPrice(
				c.DebtAmount(), c.CollateralAmount(),
				bad.CurrentFeed.MaintenanceCollateralRatio,
			)
		}
	})
	maker.ForSale.Sub(maker.ForSale, debtFill)

	// the surrendered debt tokens repay the position, shrinking the
	// circulating supply; the seller is paid from the collateral.
	if err := s.AdjustSupply(call.DebtAsset, num.IntFromUint(debtFill, false)); err != nil {
		return err
	}
	s.Credit(maker.Seller, call.BackingAsset, collateralPaid)
	if call.BackingAsset == types.CoreSymbol {
		if err := s.AdjustCoreInOrders(call.Borrower, num.IntFromUint(collateralPaid, false)); err != nil {
			return err
		}
	}

	if s.broker != nil {
		s.broker.Send(events.MarginCall{
			CallOrder:  call.ID,
			LimitOrder: maker.ID,
			DebtFilled: debtFill.Clone(),
			Collateral: collateralPaid.Clone(),
		})
	}
	metrics.MarginCallFillInc()
	if s.cfg.LogMarginCallsDebug {
		s.log.Debug("margin call filled",
			zap.Uint64("call-order", call.ID),
			zap.Uint64("limit-order", maker.ID),
			zap.String("debt-filled", debtFill.String()),
			zap.String("collateral-paid", collateralPaid.String()),
		)
	}

	if maker.ForSale.IsZero() {
		s.removeLimitOrder(maker)
	} else if maker.Receivable().IsZero() {
		if err := s.CancelOrder(maker, true); err != nil {
			return err
		}
	}

	if call.Debt.IsZero() {
		// fully covered: the leftover collateral goes back to the
		// borrower and the position disappears.
		if !call.Collateral.IsZero() {
			s.Credit(call.Borrower, call.BackingAsset, call.Collateral)
			if call.BackingAsset == types.CoreSymbol {
				if err := s.AdjustCoreInOrders(call.Borrower, num.IntFromUint(call.Collateral, false)); err != nil {
					return err
				}
			}
		}
		s.RemoveCallOrder(call)
		if s.broker != nil {
			s.broker.Send(events.CallOrderClosed{
				Borrower:  call.Borrower,
				DebtAsset: call.DebtAsset,
			})
		}
	}
	return nil
}

// globalSettle freezes a market-issued asset after a black swan: every
// position is closed, collateral covering the debt at the settlement
// price is collected into the settlement fund, the rest returns to the
// borrowers. Holders redeem against the fund outside this core.
func (s *Store) globalSettle(a *types.Asset) error {
	bad := a.BitAsset
	settlement := bad.CurrentFeed.SettlementPrice

	bad.HasSettlement = true
	bad.SettlementPrice = settlement.Clone()
	fund := num.UintZero()

	for {
		call := s.worstCall(a.Symbol)
		if call == nil {
			break
		}
		// collateral owed to the fund, valued at the settlement price
		// (debt-per-backing inverted), capped by what the position holds.
		owed := num.Min(
			num.MulDivUp(call.Debt, settlement.Quote.Amount, settlement.Base.Amount),
			call.Collateral,
		)
		remainder := num.UintZero().Sub(call.Collateral, owed)
		fund.AddSum(owed)
		if !remainder.IsZero() {
			s.Credit(call.Borrower, call.BackingAsset, remainder)
		}
		if call.BackingAsset == types.CoreSymbol {
			if err := s.AdjustCoreInOrders(call.Borrower, num.IntFromUint(call.Collateral, false)); err != nil {
				return err
			}
		}
		s.RemoveCallOrder(call)
	}

	bad.SettlementFund = types.AssetAmount{
		Asset:  bad.ShortBackingAsset,
		Amount: fund,
	}
	s.log.Warn("asset globally settled",
		zap.String("asset", a.Symbol),
		zap.String("settlement-fund", fund.String()),
	)
	if s.broker != nil {
		s.broker.Send(events.AssetSettled{
			Asset:           a.Symbol,
			SettlementPrice: settlement.Clone(),
		})
	}
	return nil
}
