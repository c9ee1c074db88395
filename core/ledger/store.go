package ledger

import (
	"errors"
	"math/big"
	"time"

	"code.zenithprotocol.io/zenith/core/assets"
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/libs/num"
	"code.zenithprotocol.io/zenith/logging"

	"github.com/google/btree"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds in account")
	ErrSupplyUnderflow   = errors.New("asset supply cannot go negative")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCallOrderExists   = errors.New("a call order already exists for this account and asset")
)

// Broker sends the events the store emits while matching and sweeping.
type Broker interface {
	Send(evt events.Event)
}

type pairKey struct {
	sell    string
	receive string
}

type accountState struct {
	balances map[string]*num.Uint
	stats    *types.AccountStatistics
	// unauthorized lists assets this account may not hold or trade.
	unauthorized map[string]struct{}
}

func newAccountState() *accountState {
	return &accountState{
		balances:     map[string]*num.Uint{},
		stats:        types.NewAccountStatistics(),
		unauthorized: map[string]struct{}{},
	}
}

// Store is the ledger store: the balance ledger, the indexed object
// store for limit and call orders, the circulating supply of
// market-issued assets, and the matching / margin-call primitives. It
// is the only mutable shared state of the market core; the enclosing
// pipeline guarantees exclusive access for the duration of one
// operation.
type Store struct {
	log *logging.Logger
	cfg Config

	assets *assets.Service
	broker Broker

	now    time.Time
	nextID uint64

	accounts map[string]*accountState
	supply   map[string]*num.Uint

	limitOrders map[uint64]*types.LimitOrder
	callOrders  map[string]*types.CallOrder

	// books holds one price-ordered side per directed trading pair,
	// best offer first. Derived from limitOrders, rebuilt on restore.
	books map[pairKey]*btree.BTreeG[*types.LimitOrder]

	// callIndex orders the call orders of one debt asset by call
	// price, least collateralized first. Derived, rebuilt on restore.
	callIndex map[string]*btree.BTreeG[*types.CallOrder]
}

func New(log *logging.Logger, cfg Config, assetSvc *assets.Service, broker Broker) *Store {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	return &Store{
		log:         log,
		cfg:         cfg,
		assets:      assetSvc,
		broker:      broker,
		accounts:    map[string]*accountState{},
		supply:      map[string]*num.Uint{},
		limitOrders: map[uint64]*types.LimitOrder{},
		callOrders:  map[string]*types.CallOrder{},
		books:       map[pairKey]*btree.BTreeG[*types.LimitOrder]{},
		callIndex:   map[string]*btree.BTreeG[*types.CallOrder]{},
	}
}

// Now returns the current ledger time.
func (s *Store) Now() time.Time {
	return s.now
}

// SetNow moves the ledger time forward, called by the pipeline on
// every block.
func (s *Store) SetNow(t time.Time) {
	s.now = t
}

func (s *Store) account(id string) *accountState {
	acc, ok := s.accounts[id]
	if !ok {
		acc = newAccountState()
		s.accounts[id] = acc
	}
	return acc
}

// GetBalance returns the account's balance in the given asset.
func (s *Store) GetBalance(account, asset string) *num.Uint {
	acc, ok := s.accounts[account]
	if !ok {
		return num.UintZero()
	}
	b, ok := acc.balances[asset]
	if !ok {
		return num.UintZero()
	}
	return b.Clone()
}

// Credit adds amount to the account's balance in the given asset.
func (s *Store) Credit(account, asset string, amount *num.Uint) {
	acc := s.account(account)
	b, ok := acc.balances[asset]
	if !ok {
		b = num.UintZero()
		acc.balances[asset] = b
	}
	b.AddSum(amount)
}

// Debit removes amount from the account's balance in the given asset.
// Balances never go negative.
func (s *Store) Debit(account, asset string, amount *num.Uint) error {
	acc := s.account(account)
	b, ok := acc.balances[asset]
	if !ok || b.LT(amount) {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	return nil
}

// AdjustBalance applies a signed delta to the account's balance in the
// given asset.
func (s *Store) AdjustBalance(account, asset string, delta *num.Int) error {
	if delta.IsNegative() {
		return s.Debit(account, asset, delta.U)
	}
	s.Credit(account, asset, delta.U)
	return nil
}

// TotalCoreInOrders returns the account's locked core-asset amount.
func (s *Store) TotalCoreInOrders(account string) *num.Uint {
	acc, ok := s.accounts[account]
	if !ok {
		return num.UintZero()
	}
	return acc.stats.TotalCoreInOrders.Clone()
}

// AdjustCoreInOrders applies a signed delta to the account's
// locked-core statistic.
func (s *Store) AdjustCoreInOrders(account string, delta *num.Int) error {
	acc := s.account(account)
	next, ok := delta.AddUint(acc.stats.TotalCoreInOrders)
	if !ok {
		return ErrInsufficientFunds
	}
	acc.stats.TotalCoreInOrders = next
	return nil
}

// Supply returns the circulating supply of a market-issued asset.
func (s *Store) Supply(asset string) *num.Uint {
	sp, ok := s.supply[asset]
	if !ok {
		return num.UintZero()
	}
	return sp.Clone()
}

// AdjustSupply applies a signed delta to the circulating supply of a
// market-issued asset. Borrowing mints, repaying burns; supply never
// goes negative.
func (s *Store) AdjustSupply(asset string, delta *num.Int) error {
	sp, ok := s.supply[asset]
	if !ok {
		sp = num.UintZero()
		s.supply[asset] = sp
	}
	next, ok := delta.AddUint(sp)
	if !ok {
		return ErrSupplyUnderflow
	}
	sp.Set(next)
	return nil
}

// IsAuthorizedAsset reports whether the account may hold and transact
// the given asset. Accounts are authorized by default; issuers revoke
// through RevokeAssetAuthorization.
func (s *Store) IsAuthorizedAsset(account, asset string) bool {
	acc, ok := s.accounts[account]
	if !ok {
		return true
	}
	_, revoked := acc.unauthorized[asset]
	return !revoked
}

// RevokeAssetAuthorization bars an account from holding or trading an
// asset.
func (s *Store) RevokeAssetAuthorization(account, asset string) {
	s.account(account).unauthorized[asset] = struct{}{}
}

// NextID hands out the next object id of the deterministic sequence.
func (s *Store) NextID() uint64 {
	s.nextID++
	return s.nextID
}

// lessBySellRate orders two orders of the same book side by the rate
// they offer, best offer first, order id as the tie break. The rate of
// an order selling S for at least R is S/R in sold units per received
// unit; a higher rate is a better deal for the taker.
func lessBySellRate(a, b *types.LimitOrder) bool {
	l := big.NewInt(0).Mul(a.SellPrice.Base.Amount.BigInt(), b.SellPrice.Quote.Amount.BigInt())
	r := big.NewInt(0).Mul(b.SellPrice.Base.Amount.BigInt(), a.SellPrice.Quote.Amount.BigInt())
	switch l.Cmp(r) {
	case 1:
		return true
	case -1:
		return false
	}
	return a.ID < b.ID
}

func (s *Store) book(sell, receive string) *btree.BTreeG[*types.LimitOrder] {
	key := pairKey{sell: sell, receive: receive}
	b, ok := s.books[key]
	if !ok {
		b = btree.NewG[*types.LimitOrder](8, lessBySellRate)
		s.books[key] = b
	}
	return b
}

// CreateLimitOrder stores a new resting order and indexes it in its
// book side. The order is live immediately, ApplyOrder may remove it
// again in the same operation when it fully fills.
func (s *Store) CreateLimitOrder(seller string, sellPrice types.Price, expiration time.Time, deferredFee *num.Uint) *types.LimitOrder {
	order := &types.LimitOrder{
		ID:          s.NextID(),
		Seller:      seller,
		ForSale:     sellPrice.Base.Amount.Clone(),
		SellPrice:   sellPrice.Clone(),
		Expiration:  expiration,
		DeferredFee: deferredFee.Clone(),
	}
	s.limitOrders[order.ID] = order
	s.book(order.SellAsset(), order.ReceiveAsset()).ReplaceOrInsert(order)
	return order
}

// LimitOrderByID looks a resting order up by id.
func (s *Store) LimitOrderByID(id uint64) (*types.LimitOrder, bool) {
	o, ok := s.limitOrders[id]
	return o, ok
}

func (s *Store) removeLimitOrder(order *types.LimitOrder) {
	delete(s.limitOrders, order.ID)
	s.book(order.SellAsset(), order.ReceiveAsset()).Delete(order)
}

func callKey(borrower, debtAsset string) string {
	return borrower + "|" + debtAsset
}

// lessByCallPrice orders call orders of one debt asset by call price,
// least collateralized position first, id as the tie break.
func lessByCallPrice(a, b *types.CallOrder) bool {
	l := big.NewInt(0).Mul(a.CallPrice.Base.Amount.BigInt(), b.CallPrice.Quote.Amount.BigInt())
	r := big.NewInt(0).Mul(b.CallPrice.Base.Amount.BigInt(), a.CallPrice.Quote.Amount.BigInt())
	switch l.Cmp(r) {
	case -1:
		return true
	case 1:
		return false
	}
	return a.ID < b.ID
}

func (s *Store) callsFor(debtAsset string) *btree.BTreeG[*types.CallOrder] {
	idx, ok := s.callIndex[debtAsset]
	if !ok {
		idx = btree.NewG[*types.CallOrder](8, lessByCallPrice)
		s.callIndex[debtAsset] = idx
	}
	return idx
}

// CallOrderBy returns the single call order of an account in a debt
// asset, if any.
func (s *Store) CallOrderBy(borrower, debtAsset string) (*types.CallOrder, bool) {
	c, ok := s.callOrders[callKey(borrower, debtAsset)]
	return c, ok
}

// CallOrderByID looks a call order up by id.
func (s *Store) CallOrderByID(id uint64) (*types.CallOrder, bool) {
	for _, c := range s.callOrders {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// CreateCallOrder stores a new margin position. At most one call order
// may exist per (borrower, debt asset).
func (s *Store) CreateCallOrder(borrower, debtAsset, backingAsset string, collateral, debt *num.Uint, callPrice types.Price) (*types.CallOrder, error) {
	key := callKey(borrower, debtAsset)
	if _, ok := s.callOrders[key]; ok {
		return nil, ErrCallOrderExists
	}
	call := &types.CallOrder{
		ID:           s.NextID(),
		Borrower:     borrower,
		Collateral:   collateral.Clone(),
		Debt:         debt.Clone(),
		DebtAsset:    debtAsset,
		BackingAsset: backingAsset,
		CallPrice:    callPrice.Clone(),
	}
	s.callOrders[key] = call
	s.callsFor(debtAsset).ReplaceOrInsert(call)
	return call, nil
}

// ModifyCallOrder applies fn to the call order and reindexes it, since
// the call price ordering may have changed.
func (s *Store) ModifyCallOrder(call *types.CallOrder, fn func(*types.CallOrder)) {
	idx := s.callsFor(call.DebtAsset)
	idx.Delete(call)
	fn(call)
	idx.ReplaceOrInsert(call)
}

// RemoveCallOrder drops a closed position from the store.
func (s *Store) RemoveCallOrder(call *types.CallOrder) {
	delete(s.callOrders, callKey(call.Borrower, call.DebtAsset))
	s.callsFor(call.DebtAsset).Delete(call)
}

// CancelOrder removes a resting limit order, refunding the unsold
// remainder and the deferred fee to the seller and releasing any
// locked core-asset accounting. Internal cancellations (dust culls,
// margin-call exhaustion) pass emitVirtualOp to surface an event for
// an otherwise invisible state change.
func (s *Store) CancelOrder(order *types.LimitOrder, emitVirtualOp bool) error {
	if _, ok := s.limitOrders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	refunded := order.AmountForSale()
	if !refunded.Amount.IsZero() {
		s.Credit(order.Seller, refunded.Asset, refunded.Amount)
	}
	if !order.DeferredFee.IsZero() {
		s.Credit(order.Seller, types.CoreSymbol, order.DeferredFee)
	}
	if refunded.Asset == types.CoreSymbol && !refunded.Amount.IsZero() {
		if err := s.AdjustCoreInOrders(order.Seller, num.IntFromUint(refunded.Amount, false)); err != nil {
			return err
		}
	}
	s.removeLimitOrder(order)
	if emitVirtualOp && s.broker != nil {
		s.broker.Send(events.LimitOrderCancelled{
			Order:    *order.Clone(),
			Refunded: refunded,
		})
	}
	return nil
}
