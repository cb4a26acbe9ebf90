// Package orderbook composes the two pricelevel.Store sides of a trading
// pair into a single book, and dispatches id-tagged lookups/mutations to
// whichever side an OrderBookID names.
package orderbook

import (
	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/pricelevel"
	"github.com/dclob/exchange/internal/pricestore"
)

// Book holds the resting orders of one trading pair.
type Book struct {
	BuyOrders  *pricelevel.Store
	SellOrders *pricelevel.Store
}

// New returns an empty book.
func New() *Book {
	return &Book{
		BuyOrders:  pricelevel.New(),
		SellOrders: pricelevel.New(),
	}
}

func (b *Book) sideStore(side domain.Side) *pricelevel.Store {
	if side == domain.Buy {
		return b.BuyOrders
	}
	return b.SellOrders
}

// BestBuyPrice returns the highest resting bid (last element of BuyOrders).
func (b *Book) BestBuyPrice() (bignum.Int, bool) {
	return b.BuyOrders.WorstPrice()
}

// BestSellPrice returns the lowest resting ask (first element of SellOrders).
func (b *Book) BestSellPrice() (bignum.Int, bool) {
	return b.SellOrders.BestPrice()
}

// AddOrder inserts a new resting order on the named side and returns its id.
func (b *Book) AddOrder(side domain.Side, o domain.NewAccountOrder) domain.OrderBookID {
	id := b.sideStore(side).PushOrder(o)
	return domain.OrderBookID{Side: side, Price: o.Price, ID: id}
}

// TryGet dispatches on oid.Side to look the order up.
func (b *Book) TryGet(oid domain.OrderBookID) (domain.Order, error) {
	return b.sideStore(oid.Side).TryGet(oid.Price, oid.ID)
}

// RemoveOrder dispatches on oid.Side to remove the order.
func (b *Book) RemoveOrder(oid domain.OrderBookID) (domain.Order, error) {
	return b.sideStore(oid.Side).RemoveOrder(oid.Price, oid.ID)
}

// UpdateOrder dispatches on oid.Side to rewrite the order in place.
func (b *Book) UpdateOrder(oid domain.OrderBookID, o domain.Order) error {
	return b.sideStore(oid.Side).UpdateOrder(oid.Price, oid.ID, o)
}

// MakerOrdersIter yields (OrderBookID, Order) pairs on makerSide in matching
// order: descending price for buys (best bid first), ascending for sells
// (best ask first); within a level, insertion order (time priority).
func (b *Book) MakerOrdersIter(makerSide domain.Side, yield func(domain.OrderBookID, domain.Order) bool) {
	store := b.sideStore(makerSide)
	walk := store.IterLevels
	if makerSide == domain.Buy {
		walk = store.IterLevelsRev
	}
	stop := false
	walk(func(price bignum.Int, level *pricestore.Store) bool {
		level.Iter(func(id uint64, o domain.Order) bool {
			if !yield(domain.OrderBookID{Side: makerSide, Price: price, ID: id}, o) {
				stop = true
				return false
			}
			return true
		})
		return !stop
	})
}

// Depth returns the number of distinct price levels on each side, mostly
// useful for tests and diagnostics.
func (b *Book) Depth() (buyLevels, sellLevels int) {
	return b.BuyOrders.Len(), b.SellOrders.Len()
}
