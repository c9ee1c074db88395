package ledger

import (
	"sort"
	"time"

	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"

	"github.com/google/btree"
	"golang.org/x/exp/maps"
)

// bitassetState is the slice of asset metadata the sweep may mutate
// (global settlement), captured so a failed apply phase can undo it.
type bitassetState struct {
	hasSettlement   bool
	settlementPrice types.Price
	settlementFund  types.AssetAmount
	currentFeed     *types.PriceFeed
}

// Snap is an opaque deep copy of the store's state. The execution
// engine brackets every apply phase with Snapshot/Restore so a failed
// operation leaves the store byte-identical to before it started.
type Snap struct {
	now    time.Time
	nextID uint64

	accounts    map[string]*accountState
	supply      map[string]*num.Uint
	limitOrders map[uint64]*types.LimitOrder
	callOrders  map[string]*types.CallOrder
	bitassets   map[string]bitassetState
}

func cloneAccountState(a *accountState) *accountState {
	cpy := newAccountState()
	for asset, b := range a.balances {
		cpy.balances[asset] = b.Clone()
	}
	cpy.stats = a.stats.Clone()
	for asset := range a.unauthorized {
		cpy.unauthorized[asset] = struct{}{}
	}
	return cpy
}

// Snapshot captures the whole mutable state of the store.
func (s *Store) Snapshot() *Snap {
	snap := &Snap{
		now:         s.now,
		nextID:      s.nextID,
		accounts:    make(map[string]*accountState, len(s.accounts)),
		supply:      make(map[string]*num.Uint, len(s.supply)),
		limitOrders: make(map[uint64]*types.LimitOrder, len(s.limitOrders)),
		callOrders:  make(map[string]*types.CallOrder, len(s.callOrders)),
		bitassets:   map[string]bitassetState{},
	}
	for id, acc := range s.accounts {
		snap.accounts[id] = cloneAccountState(acc)
	}
	for asset, sp := range s.supply {
		snap.supply[asset] = sp.Clone()
	}
	for id, o := range s.limitOrders {
		snap.limitOrders[id] = o.Clone()
	}
	for key, c := range s.callOrders {
		snap.callOrders[key] = c.Clone()
	}
	for _, a := range s.assets.All() {
		if !a.IsMarketIssued() {
			continue
		}
		snap.bitassets[a.Symbol] = bitassetState{
			hasSettlement:   a.BitAsset.HasSettlement,
			settlementPrice: a.BitAsset.SettlementPrice.Clone(),
			settlementFund:  cloneSettlementFund(a.BitAsset.SettlementFund),
			currentFeed:     a.BitAsset.CurrentFeed,
		}
	}
	return snap
}

func cloneSettlementFund(f types.AssetAmount) types.AssetAmount {
	if f.Amount == nil {
		return types.AssetAmount{}
	}
	return f.Clone()
}

// Restore puts the store back into the captured state, rebuilding the
// derived book and call indexes.
func (s *Store) Restore(snap *Snap) {
	s.now = snap.now
	s.nextID = snap.nextID

	s.accounts = make(map[string]*accountState, len(snap.accounts))
	for id, acc := range snap.accounts {
		s.accounts[id] = cloneAccountState(acc)
	}
	s.supply = make(map[string]*num.Uint, len(snap.supply))
	for asset, sp := range snap.supply {
		s.supply[asset] = sp.Clone()
	}
	s.limitOrders = make(map[uint64]*types.LimitOrder, len(snap.limitOrders))
	for id, o := range snap.limitOrders {
		s.limitOrders[id] = o.Clone()
	}
	s.callOrders = make(map[string]*types.CallOrder, len(snap.callOrders))
	for key, c := range snap.callOrders {
		s.callOrders[key] = c.Clone()
	}
	for symbol, st := range snap.bitassets {
		a, err := s.assets.Get(symbol)
		if err != nil || !a.IsMarketIssued() {
			continue
		}
		a.BitAsset.HasSettlement = st.hasSettlement
		a.BitAsset.SettlementPrice = st.settlementPrice.Clone()
		a.BitAsset.SettlementFund = cloneSettlementFund(st.settlementFund)
		a.BitAsset.CurrentFeed = st.currentFeed
	}
	s.rebuildIndexes()
}

// rebuildIndexes recreates the price-ordered books and call indexes
// from the canonical object maps, in deterministic key order.
func (s *Store) rebuildIndexes() {
	s.books = map[pairKey]*btree.BTreeG[*types.LimitOrder]{}
	orderIDs := maps.Keys(s.limitOrders)
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })
	for _, id := range orderIDs {
		o := s.limitOrders[id]
		s.book(o.SellAsset(), o.ReceiveAsset()).ReplaceOrInsert(o)
	}

	s.callIndex = map[string]*btree.BTreeG[*types.CallOrder]{}
	callKeys := maps.Keys(s.callOrders)
	sort.Strings(callKeys)
	for _, key := range callKeys {
		c := s.callOrders[key]
		s.callsFor(c.DebtAsset).ReplaceOrInsert(c)
	}
}
