// Package apperrors collects the stable, ABI-level error values raised by the
// custody ledger and matching engine. Every exported error here corresponds
// to one error code a caller (or a test) can check with errors.Is; domain
// packages wrap these with fmt.Errorf("...: %w", ...) for additional context,
// they never construct competing error strings for the same condition.
package apperrors

import "errors"

// Initialization
var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
)

// Listing state (tokens and pairs)
var (
	ErrSameValueStored = errors.New("same value already stored")
	ErrChangingPair     = errors.New("cannot change tokens of an existing pair")
	ErrSamePairTokens   = errors.New("pair tokens must be distinct")
	ErrTokenIsNotListed = errors.New("token is not listed")
	ErrPairIsNotListed  = errors.New("pair is not listed")
)

// Balance & input validation
var (
	ErrAmountMustBePositive = errors.New("amount must be positive")
	ErrBalanceNotEnough     = errors.New("balance not enough")
	ErrInvalidIdentifier    = errors.New("identifier contains disallowed characters")
)

// Withdraw pipeline
var (
	ErrWithdrawDataNotExist          = errors.New("withdraw data does not exist")
	ErrSameWithdrawDataExist         = errors.New("identical withdraw data already exists")
	ErrWithdrawRequestAlreadyProcessed = errors.New("withdraw request already processed")
	ErrWithdrawRequestDataMismatch   = errors.New("withdraw request data mismatch")
)

// Announced-key registry
var (
	ErrNoUserPublicKeyExist   = errors.New("no public key announced for user")
	ErrPublicKeyAlreadyExist  = errors.New("public key already announced")
)

// Book internals
var (
	ErrInvalidOrderID                 = errors.New("invalid order id")
	ErrOrderNotFound                  = errors.New("order not found")
	ErrOrderBookNotFound              = errors.New("order book not found")
	ErrIncorrectPriceLevelStorageState = errors.New("incorrect price level storage state")
	ErrIncorrectPrecisionCalculation  = errors.New("incorrect precision calculation")

	ErrLevelsStorePriceNotFound = errors.New("price level not found")
	ErrLevelsStoreLevelNotFound = errors.New("price level storage invariant violated")
	ErrLevelsStoreRemoveFailed  = errors.New("failed to remove price level")

	ErrPriceStoreInvalidIndex        = errors.New("price store: invalid slot index")
	ErrPriceStoreOrderNotFoundByIndex = errors.New("price store: order not found at index")
)

// Batch / operator pipeline
var (
	ErrBatchIDNotMatch      = errors.New("batch id does not match expected sequence")
	ErrTradeSymbolsNotMatch = errors.New("trade symbols do not match")
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrUnauthorized         = errors.New("caller did not authorize this action")
)
