package matching

import (
	"testing"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acct(account string, price, qty int64) domain.NewAccountOrder {
	return domain.NewAccountOrder{
		Account:  account,
		Quantity: bignum.FromInt64(qty),
		Price:    bignum.FromInt64(price),
	}
}

// Scenario 1: exact match at a single price fully fills both sides.
func TestPlaceOrder_ExactMatchSinglePrice(t *testing.T) {
	book := orderbook.New()
	book.AddOrder(domain.Sell, acct("seller", 50, 100))

	res, err := PlaceOrder(book, domain.Limit, domain.Buy, acct("buyer", 50, 100))
	require.NoError(t, err)

	assert.Nil(t, res.Resting)
	require.Len(t, res.Makers, 1)
	assert.Equal(t, "seller", res.Makers[0].Account)
	assert.Equal(t, 0, res.Makers[0].Quantity.Cmp(bignum.FromInt64(100)))

	buyLevels, sellLevels := book.Depth()
	assert.Equal(t, 0, buyLevels)
	assert.Equal(t, 0, sellLevels)
}

// Scenario 2: partial fill across two price levels via a market order.
func TestPlaceOrder_PartialFillAcrossTwoLevels(t *testing.T) {
	book := orderbook.New()
	book.AddOrder(domain.Sell, acct("s1", 50, 40))
	book.AddOrder(domain.Sell, acct("s2", 55, 60))

	res, err := PlaceOrder(book, domain.Market, domain.Buy, acct("buyer", 0, 80))
	require.NoError(t, err)

	require.Len(t, res.Makers, 2)
	assert.Equal(t, "s1", res.Makers[0].Account)
	assert.Equal(t, 0, res.Makers[0].Quantity.Cmp(bignum.FromInt64(40)))
	assert.Equal(t, "s2", res.Makers[1].Account)
	assert.Equal(t, 0, res.Makers[1].Quantity.Cmp(bignum.FromInt64(40)))

	// market order never rests
	assert.Nil(t, res.Resting)

	best, ok := book.BestSellPrice()
	require.True(t, ok)
	assert.Equal(t, 0, best.Cmp(bignum.FromInt64(55)))

	remaining, err := book.TryGet(domain.OrderBookID{Side: domain.Sell, Price: bignum.FromInt64(55), ID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining.Quantity.Cmp(bignum.FromInt64(20)))
}

// Scenario 3: a limit buy below the best ask does not match and rests.
func TestPlaceOrder_LimitBuyBelowBestAskRests(t *testing.T) {
	book := orderbook.New()
	book.AddOrder(domain.Sell, acct("seller", 100, 100))

	res, err := PlaceOrder(book, domain.Limit, domain.Buy, acct("buyer", 95, 50))
	require.NoError(t, err)

	assert.Empty(t, res.Makers)
	require.NotNil(t, res.Resting)
	assert.Equal(t, domain.Buy, res.Resting.Side)

	order, err := book.TryGet(*res.Resting)
	require.NoError(t, err)
	assert.Equal(t, 0, order.Quantity.Cmp(bignum.FromInt64(50)))
}

// Scenario 4: FIFO within a price level — earliest order at a level fills first.
func TestPlaceOrder_FIFOWithinPrice(t *testing.T) {
	book := orderbook.New()
	book.AddOrder(domain.Sell, acct("A", 55, 40))
	book.AddOrder(domain.Sell, acct("B", 55, 60))
	book.AddOrder(domain.Sell, acct("C", 55, 50))

	res, err := PlaceOrder(book, domain.Market, domain.Buy, acct("buyer", 0, 80))
	require.NoError(t, err)

	require.Len(t, res.Makers, 2)
	assert.Equal(t, "A", res.Makers[0].Account)
	assert.Equal(t, 0, res.Makers[0].Quantity.Cmp(bignum.FromInt64(40)))
	assert.Equal(t, "B", res.Makers[1].Account)
	assert.Equal(t, 0, res.Makers[1].Quantity.Cmp(bignum.FromInt64(40)))

	remainingB, err := book.TryGet(domain.OrderBookID{Side: domain.Sell, Price: bignum.FromInt64(55), ID: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, remainingB.Quantity.Cmp(bignum.FromInt64(20)))

	untouchedC, err := book.TryGet(domain.OrderBookID{Side: domain.Sell, Price: bignum.FromInt64(55), ID: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, untouchedC.Quantity.Cmp(bignum.FromInt64(50)))
}

func TestPlaceOrder_LimitOrderNoLiquidityRestsInFull(t *testing.T) {
	book := orderbook.New()
	res, err := PlaceOrder(book, domain.Limit, domain.Buy, acct("buyer", 100, 10))
	require.NoError(t, err)
	assert.Empty(t, res.Makers)
	require.NotNil(t, res.Resting)
	order, err := book.TryGet(*res.Resting)
	require.NoError(t, err)
	assert.Equal(t, 0, order.Quantity.Cmp(bignum.FromInt64(10)))
}

func TestFillOrder_IsPureOverTheBook(t *testing.T) {
	book := orderbook.New()
	book.AddOrder(domain.Sell, acct("s1", 50, 40))
	book.AddOrder(domain.Sell, acct("s2", 55, 60))

	plan1 := FillOrder(book, bignum.FromInt64(80), bignum.FromInt64(0), domain.Buy, domain.Market)
	plan2 := FillOrder(book, bignum.FromInt64(80), bignum.FromInt64(0), domain.Buy, domain.Market)

	require.Equal(t, plan1.TakerStatus, plan2.TakerStatus)
	require.Equal(t, len(plan1.Makers), len(plan2.Makers))
	for i := range plan1.Makers {
		assert.Equal(t, plan1.Makers[i].OID, plan2.Makers[i].OID)
		assert.Equal(t, 0, plan1.Makers[i].Amount.Cmp(plan2.Makers[i].Amount))
	}
}
