// Package domain holds the shared entity model for the custody ledger and
// matching engine: orders, sides, listing state, and the small logging
// interface every other package depends on instead of a concrete logger.
package domain

import "github.com/dclob/exchange/internal/bignum"

// Side is which book an order rests on / which side of a trade it is.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the side a maker for this taker would rest on.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType distinguishes limit orders (which may rest) from market orders
// (which never rest — unfilled quantity is simply dropped).
type OrderType int

const (
	Limit OrderType = iota
	Market
)

// NewAccountOrder is the intake shape handed to a PriceStore: it carries
// everything about an order except the ledger-assigned id.
type NewAccountOrder struct {
	Account       string
	Quantity      bignum.Int
	Price         bignum.Int
	FeeAmount     bignum.Int
	FeeTokenAsset string
}

// NewOrder is the yet-smaller intake shape used before an account is bound
// (e.g. the leftover returned from the matcher prior to being persisted).
type NewOrder struct {
	Quantity      bignum.Int
	Price         bignum.Int
	FeeAmount     bignum.Int
	FeeTokenAsset string
}

// Order is immutable after placement except for Quantity, which the matcher
// decrements as the order is (partially) filled. OrderID is assigned by the
// PriceStore on insert and is unique only within its (side, price) level.
type Order struct {
	OrderID       uint64
	Account       string
	Quantity      bignum.Int
	Price         bignum.Int
	FeeAmount     bignum.Int
	FeeTokenAsset string
}

// Clone returns a deep-enough copy safe to mutate independently.
func (o Order) Clone() Order {
	return o
}

// OrderBookID identifies an order globally within a book: which side, which
// price level, and which slot id within that level.
type OrderBookID struct {
	Side  Side
	Price bignum.Int
	ID    uint64
}

// FillType describes how much of a maker order a single fill consumed.
type FillType int

const (
	FillPartial FillType = iota
	FillComplete
)

// TakerStatus is the outcome of the plan phase for the incoming order.
type TakerStatus int

const (
	TakerNone TakerStatus = iota
	TakerPartial
	TakerComplete
)

// ListingStatus is the admin-controlled listing state of a token or pair.
type ListingStatus int

const (
	Delisted ListingStatus = iota
	Listed
)

func (s ListingStatus) String() string {
	if s == Listed {
		return "Listed"
	}
	return "Delisted"
}

// WithdrawStatus is the lifecycle state of a withdraw request record.
type WithdrawStatus int

const (
	WithdrawRequested WithdrawStatus = iota
	WithdrawExecuted
	WithdrawRejected
)

func (s WithdrawStatus) String() string {
	switch s {
	case WithdrawRequested:
		return "Requested"
	case WithdrawExecuted:
		return "Executed"
	case WithdrawRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Pair is a listed trading pair: token1 is base (quantity-denominated),
// token2 is quote (price-denominated).
type Pair struct {
	Symbol string
	Token1 string
	Token2 string
	Status ListingStatus
}

// WithdrawRecord is a durable withdraw request.
type WithdrawRecord struct {
	ID     uint64
	User   string
	Token  string
	Amount bignum.Int
	Status WithdrawStatus
}
