// Package pricelevel implements the per-side price index: a sorted,
// ascending-by-price parallel-array container of pricestore.Store values,
// binary-searched on insert and lookup.
package pricelevel

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/pricestore"
	"github.com/dclob/exchange/pkg/apperrors"
)

// Store is the sorted price index for one side of a book. levels[i].price
// must equal levelsPrice[i] for every i after every mutation; the slice
// never holds an empty *pricestore.Store.
type Store struct {
	levels      []*pricestore.Store
	levelsPrice []bignum.Int
}

// New returns an empty price index.
func New() *Store {
	return &Store{}
}

// search returns the index of price if present, and whether it was found.
// Absent, the index is where it should be inserted to keep the array sorted.
func (s *Store) search(price bignum.Int) (int, bool) {
	idx := sort.Search(len(s.levelsPrice), func(i int) bool {
		return s.levelsPrice[i].Cmp(price) >= 0
	})
	if idx < len(s.levelsPrice) && s.levelsPrice[idx].Cmp(price) == 0 {
		return idx, true
	}
	return idx, false
}

// PushOrder inserts a new account order at its price, creating the level if
// absent, and returns the assigned order id.
func (s *Store) PushOrder(o domain.NewAccountOrder) uint64 {
	idx, found := s.search(o.Price)
	if found {
		return s.levels[idx].AddOrder(o)
	}
	level := pricestore.New()
	id := level.AddOrder(o)

	s.levels = append(s.levels, nil)
	s.levelsPrice = append(s.levelsPrice, bignum.Int{})
	copy(s.levels[idx+1:], s.levels[idx:])
	copy(s.levelsPrice[idx+1:], s.levelsPrice[idx:])
	s.levels[idx] = level
	s.levelsPrice[idx] = o.Price
	return id
}

// RemoveOrder removes id from the level at price, deleting the level
// entirely if it becomes empty.
func (s *Store) RemoveOrder(price bignum.Int, id uint64) (domain.Order, error) {
	idx, found := s.search(price)
	if !found {
		return domain.Order{}, fmt.Errorf("%w: price %s", apperrors.ErrLevelsStorePriceNotFound, price.String())
	}
	level := s.levels[idx]
	if level == nil {
		return domain.Order{}, fmt.Errorf("%w: price %s", apperrors.ErrLevelsStoreLevelNotFound, price.String())
	}
	removed, err := level.RemoveOrder(id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", apperrors.ErrLevelsStoreRemoveFailed, err)
	}
	if level.IsEmpty() {
		s.levels = append(s.levels[:idx], s.levels[idx+1:]...)
		s.levelsPrice = append(s.levelsPrice[:idx], s.levelsPrice[idx+1:]...)
	}
	return removed, nil
}

// UpdateOrder rewrites the order at price/id in place.
func (s *Store) UpdateOrder(price bignum.Int, id uint64, o domain.Order) error {
	idx, found := s.search(price)
	if !found {
		return fmt.Errorf("%w: price %s", apperrors.ErrLevelsStorePriceNotFound, price.String())
	}
	level := s.levels[idx]
	if level == nil {
		return fmt.Errorf("%w: price %s", apperrors.ErrLevelsStoreLevelNotFound, price.String())
	}
	return level.UpdateOrder(id, o)
}

// TryGet looks an order up by price and id.
func (s *Store) TryGet(price bignum.Int, id uint64) (domain.Order, error) {
	idx, found := s.search(price)
	if !found {
		return domain.Order{}, fmt.Errorf("%w: price %s", apperrors.ErrLevelsStorePriceNotFound, price.String())
	}
	level := s.levels[idx]
	if level == nil {
		return domain.Order{}, fmt.Errorf("%w: price %s", apperrors.ErrLevelsStoreLevelNotFound, price.String())
	}
	return level.TryGet(id)
}

// BestPrice returns the lowest price level (first element), used by the
// sell side to find the best ask.
func (s *Store) BestPrice() (bignum.Int, bool) {
	if len(s.levelsPrice) == 0 {
		return bignum.Int{}, false
	}
	return s.levelsPrice[0], true
}

// WorstPrice returns the highest price level (last element), used by the
// buy side to find the best bid.
func (s *Store) WorstPrice() (bignum.Int, bool) {
	if len(s.levelsPrice) == 0 {
		return bignum.Int{}, false
	}
	return s.levelsPrice[len(s.levelsPrice)-1], true
}

// IterLevels yields (price, *pricestore.Store) pairs ascending by price.
func (s *Store) IterLevels(yield func(price bignum.Int, level *pricestore.Store) bool) {
	for i := 0; i < len(s.levels); i++ {
		if !yield(s.levelsPrice[i], s.levels[i]) {
			return
		}
	}
}

// IterLevelsRev yields (price, *pricestore.Store) pairs descending by price.
func (s *Store) IterLevelsRev(yield func(price bignum.Int, level *pricestore.Store) bool) {
	for i := len(s.levels) - 1; i >= 0; i-- {
		if !yield(s.levelsPrice[i], s.levels[i]) {
			return
		}
	}
}

// Len returns the number of distinct price levels.
func (s *Store) Len() int {
	return len(s.levels)
}

// wireLevel is one (price, level) pair in Store's persisted shape.
type wireLevel struct {
	Price bignum.Int        `json:"price"`
	Level *pricestore.Store `json:"level"`
}

func (s *Store) MarshalJSON() ([]byte, error) {
	levels := make([]wireLevel, len(s.levels))
	for i := range s.levels {
		levels[i] = wireLevel{Price: s.levelsPrice[i], Level: s.levels[i]}
	}
	return json.Marshal(levels)
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var levels []wireLevel
	if err := json.Unmarshal(data, &levels); err != nil {
		return err
	}
	s.levels = make([]*pricestore.Store, len(levels))
	s.levelsPrice = make([]bignum.Int, len(levels))
	for i, l := range levels {
		s.levels[i] = l.Level
		s.levelsPrice[i] = l.Price
	}
	return nil
}
