package pricelevel

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/pricestore"
	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(account string, price, qty int64) domain.NewAccountOrder {
	return domain.NewAccountOrder{
		Account:  account,
		Quantity: bignum.FromInt64(qty),
		Price:    bignum.FromInt64(price),
	}
}

func mustInt64(v bignum.Int) int64 {
	n, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		panic(err)
	}
	return n
}

func TestStore_PushOrderKeepsLevelsSortedAscending(t *testing.T) {
	s := New()
	s.PushOrder(order("a", 105, 1))
	s.PushOrder(order("b", 100, 1))
	s.PushOrder(order("c", 110, 1))

	require.Equal(t, 3, s.Len())

	var prices []int64
	s.IterLevels(func(price bignum.Int, level *pricestore.Store) bool {
		prices = append(prices, mustInt64(price))
		return true
	})
	assert.Equal(t, []int64{100, 105, 110}, prices)
}

func TestStore_PushOrderAtExistingPriceAppendsToSameLevel(t *testing.T) {
	s := New()
	s.PushOrder(order("a", 100, 1))
	s.PushOrder(order("b", 100, 1))
	assert.Equal(t, 1, s.Len())
}

func TestStore_RemoveOrderDeletesEmptyLevel(t *testing.T) {
	s := New()
	id := s.PushOrder(order("a", 100, 1))
	_, err := s.RemoveOrder(bignum.FromInt64(100), id)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_RemoveOrderUnknownPriceErrors(t *testing.T) {
	s := New()
	_, err := s.RemoveOrder(bignum.FromInt64(999), 1)
	require.ErrorIs(t, err, apperrors.ErrLevelsStorePriceNotFound)
}

func TestStore_IterLevelsRevDescends(t *testing.T) {
	s := New()
	s.PushOrder(order("a", 100, 1))
	s.PushOrder(order("b", 110, 1))
	s.PushOrder(order("c", 105, 1))

	var prices []int64
	s.IterLevelsRev(func(price bignum.Int, level *pricestore.Store) bool {
		prices = append(prices, mustInt64(price))
		return true
	})
	assert.Equal(t, []int64{110, 105, 100}, prices)
}

func TestStore_BestAndWorstPrice(t *testing.T) {
	s := New()
	s.PushOrder(order("a", 100, 1))
	s.PushOrder(order("b", 110, 1))

	best, ok := s.BestPrice()
	require.True(t, ok)
	assert.Equal(t, int64(100), mustInt64(best))

	worst, ok := s.WorstPrice()
	require.True(t, ok)
	assert.Equal(t, int64(110), mustInt64(worst))
}

func TestStore_JSONRoundTripPreservesLevelOrder(t *testing.T) {
	s := New()
	s.PushOrder(order("a", 105, 1))
	s.PushOrder(order("b", 100, 2))
	s.PushOrder(order("c", 110, 3))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Store
	require.NoError(t, json.Unmarshal(data, &restored))

	var prices []int64
	restored.IterLevels(func(price bignum.Int, level *pricestore.Store) bool {
		prices = append(prices, mustInt64(price))
		return true
	})
	assert.Equal(t, []int64{100, 105, 110}, prices)
	assert.Equal(t, 3, restored.Len())
}
