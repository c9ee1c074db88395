package ledger

import (
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
	"code.zenithprotocol.io/zenith/metrics"

	"go.uber.org/zap"
)

// bestOffer returns the best-priced resting order selling sell for
// receive, or nil when that book side is empty.
func (s *Store) bestOffer(sell, receive string) *types.LimitOrder {
	var best *types.LimitOrder
	s.book(sell, receive).Ascend(func(o *types.LimitOrder) bool {
		best = o
		return false
	})
	return best
}

// ApplyOrder submits a freshly created limit order for immediate
// matching against the opposing book side. Fills happen at the maker's
// price. Returns whether the order was completely filled; a remainder
// stays resting on the book.
func (s *Store) ApplyOrder(order *types.LimitOrder) (bool, error) {
	sellAsset := order.SellAsset()
	receiveAsset := order.ReceiveAsset()
	demanded := order.SellPrice.Invert()

	for !order.ForSale.IsZero() {
		maker := s.bestOffer(receiveAsset, sellAsset)
		if maker == nil {
			break
		}
		// the maker offers receiveAsset at a rate quoted
		// receive-per-sell; it crosses when the offer meets the rate
		// the new order demands.
		crossed, err := maker.SellPrice.GreaterOrEqual(demanded)
		if err != nil {
			return false, err
		}
		if !crossed {
			break
		}
		progress, err := s.fillAtMakerPrice(order, maker)
		if err != nil {
			return false, err
		}
		if !progress {
			break
		}
	}

	if order.ForSale.IsZero() {
		s.removeLimitOrder(order)
		return true, nil
	}
	// cull a remainder too small to ever buy a whole unit. The order
	// still counts as not completely filled.
	if order.Receivable().IsZero() {
		if err := s.CancelOrder(order, true); err != nil {
			return false, err
		}
	}
	return false, nil
}

// fillAtMakerPrice transfers one fill between the taker and the best
// maker: the taker gives sell-asset, the maker gives receive-asset,
// priced at the maker's rate. Rounding always goes against the taker
// so a maker never receives below its ask. Returns false without error
// when the fill would round to nothing and matching should stop.
func (s *Store) fillAtMakerPrice(taker, maker *types.LimitOrder) (bool, error) {
	takerAsset := taker.SellAsset()
	makerAsset := maker.SellAsset()

	// the maker still wants this much taker-asset for its remainder.
	makerWants := maker.WantedToBuy()
	takerPays := num.Min(taker.ForSale, makerWants)
	makerPays := num.Min(
		num.MulDivDown(takerPays, maker.SellPrice.Base.Amount, maker.SellPrice.Quote.Amount),
		maker.ForSale,
	)
	if makerPays.IsZero() {
		// the taker remainder rounds to nothing at this price level,
		// no economic fill can happen.
		return false, nil
	}

	taker.ForSale.Sub(taker.ForSale, takerPays)
	maker.ForSale.Sub(maker.ForSale, makerPays)

	s.Credit(maker.Seller, takerAsset, takerPays)
	s.Credit(taker.Seller, makerAsset, makerPays)

	// release locked core liquidity for whichever side sold core.
	if takerAsset == types.CoreSymbol {
		if err := s.AdjustCoreInOrders(taker.Seller, num.IntFromUint(takerPays, false)); err != nil {
			return false, err
		}
	}
	if makerAsset == types.CoreSymbol {
		if err := s.AdjustCoreInOrders(maker.Seller, num.IntFromUint(makerPays, false)); err != nil {
			return false, err
		}
	}

	if s.broker != nil {
		s.broker.Send(events.Trade{
			TakerOrder: taker.ID,
			MakerOrder: maker.ID,
			Sold:       types.AssetAmount{Asset: takerAsset, Amount: takerPays.Clone()},
			Bought:     types.AssetAmount{Asset: makerAsset, Amount: makerPays.Clone()},
		})
	}
	metrics.TradeCounterInc()
	if s.log.IsDebug() {
		s.log.Debug("orders matched",
			zap.Uint64("taker", taker.ID),
			zap.Uint64("maker", maker.ID),
			zap.String("sold", takerPays.String()),
			zap.String("bought", makerPays.String()),
		)
	}

	if maker.ForSale.IsZero() {
		s.removeLimitOrder(maker)
		return true, nil
	}
	// cull the maker when its remainder can no longer buy a whole
	// unit, refunding the dust.
	if maker.Receivable().IsZero() {
		if err := s.CancelOrder(maker, true); err != nil {
			return false, err
		}
	}
	return true, nil
}
