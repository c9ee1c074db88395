package types

import (
	"code.zenithprotocol.io/zenith/libs/num"
)

// AccountStatistics tracks per-account aggregates maintained by the
// market core. Accounts themselves are created and destroyed outside
// this core, the evaluators only ever mutate balances and statistics
// attached to their ids. TotalCoreInOrders is the core-asset amount
// currently locked in open orders and pledged collateral, used
// elsewhere for fee and vote-weight accounting.
type AccountStatistics struct {
	TotalCoreInOrders *num.Uint
}

func NewAccountStatistics() *AccountStatistics {
	return &AccountStatistics{
		TotalCoreInOrders: num.UintZero(),
	}
}

func (s *AccountStatistics) Clone() *AccountStatistics {
	return &AccountStatistics{
		TotalCoreInOrders: s.TotalCoreInOrders.Clone(),
	}
}
