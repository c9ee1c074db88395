package execution

import "errors"

var (
	// ErrInsufficientBalance is returned when the seller cannot cover the
	// amount to sell.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrMarketNotWhitelisted is returned when an asset restricts its
	// markets and the counterpart asset is not whitelisted.
	ErrMarketNotWhitelisted = errors.New("market is not whitelisted for this asset")
	// ErrMarketBlacklisted is returned when the counterpart asset is
	// blacklisted by the other side of the pair.
	ErrMarketBlacklisted = errors.New("market is blacklisted for this asset")
	// ErrAccountNotAuthorized is returned when the account may not hold or
	// transact one of the pair's assets.
	ErrAccountNotAuthorized = errors.New("account is not authorized to transact this asset")
	// ErrOrderExpirationInPast is returned when an order would already be
	// expired at the current ledger time.
	ErrOrderExpirationInPast = errors.New("order expiration is in the past")
	// ErrOrderNotFound is returned when the referenced order does not
	// exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotOrderOwner is returned when the cancelling account does not
	// own the order.
	ErrNotOrderOwner = errors.New("order does not belong to this account")
	// ErrNotCollateralizedAsset is returned when the debt asset is not
	// market issued.
	ErrNotCollateralizedAsset = errors.New("not a collateralized asset")
	// ErrAssetSettled is returned once an asset has undergone a global
	// settlement; no further margin positions may be taken.
	ErrAssetSettled = errors.New("asset has been globally settled")
	// ErrWrongBackingAsset is returned when the collateral delta is not
	// denominated in the debt asset's backing asset.
	ErrWrongBackingAsset = errors.New("collateral is not the designated backing asset")
	// ErrPredictionMarketRatioMismatch is returned when a prediction
	// market position is not collateralized exactly 1:1.
	ErrPredictionMarketRatioMismatch = errors.New("prediction market requires 1:1 collateral to debt")
	// ErrInsufficientFeed is returned when the debt asset has no current
	// price feed.
	ErrInsufficientFeed = errors.New("cannot borrow asset with no price feed")
	// ErrInsufficientBalanceToCover is returned when the payer cannot
	// repay the requested debt.
	ErrInsufficientBalanceToCover = errors.New("insufficient balance to cover debt")
	// ErrInsufficientBalanceToCollateralize is returned when the payer
	// cannot pledge the requested collateral.
	ErrInsufficientBalanceToCollateralize = errors.New("insufficient balance to increase collateral")
	// ErrInvalidNewPosition is returned when deltas reference a position
	// that does not exist and are not both strictly positive.
	ErrInvalidNewPosition = errors.New("both collateral and debt must be positive to open a position")
	// ErrPartialCloseInvalid is returned when debt reaches zero but
	// collateral does not.
	ErrPartialCloseInvalid = errors.New("closing a position must release all of its collateral")
	// ErrInvariantViolation is returned when a position would end up with
	// non-positive collateral or debt.
	ErrInvariantViolation = errors.New("call order collateral and debt must stay positive")
	// ErrFillOrKillUnfilled is returned when a fill-or-kill order was not
	// completely filled.
	ErrFillOrKillUnfilled = errors.New("fill or kill order was not completely filled")
	// ErrUnfilledMarginCall is returned when updating a call order would
	// trigger a margin call that cannot be fully filled.
	ErrUnfilledMarginCall = errors.New("updating call order would trigger a margin call that cannot be fully filled")
)
