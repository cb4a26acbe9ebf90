// Package pricestore implements the intra-level FIFO of resting orders at a
// single price: an append-only slot vector with tombstones plus an
// id-to-index map, giving O(1) cancel/update with ids that stay valid across
// a PriceLevelStore compacting around it.
package pricestore

import (
	"encoding/json"
	"fmt"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"
)

// Store is the FIFO of resting orders at one price. The zero value is not
// usable; construct with New.
type Store struct {
	slots      []*domain.Order
	idToIndex  map[uint64]uint32
	nextSlotID uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		idToIndex: make(map[uint64]uint32),
	}
}

// IsEmpty reports whether every slot has been tombstoned.
func (s *Store) IsEmpty() bool {
	return len(s.idToIndex) == 0
}

// Len returns the number of live (non-tombstoned) orders.
func (s *Store) Len() int {
	return len(s.idToIndex)
}

// AddOrder assigns a new monotonically increasing id, appends a slot, and
// returns the id. O(1).
func (s *Store) AddOrder(o domain.NewAccountOrder) uint64 {
	s.nextSlotID++
	id := s.nextSlotID
	order := &domain.Order{
		OrderID:       id,
		Account:       o.Account,
		Quantity:      o.Quantity,
		Price:         o.Price,
		FeeAmount:     o.FeeAmount,
		FeeTokenAsset: o.FeeTokenAsset,
	}
	idx := uint32(len(s.slots))
	s.slots = append(s.slots, order)
	s.idToIndex[id] = idx
	return id
}

// RemoveOrder tombstones the slot holding id and unmaps it, returning the
// removed order. It does not compact the slot vector: surviving indices
// remain stable for any id a PriceLevelStore planner is holding concurrently.
func (s *Store) RemoveOrder(id uint64) (domain.Order, error) {
	idx, ok := s.idToIndex[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %d", apperrors.ErrOrderNotFound, id)
	}
	if int(idx) >= len(s.slots) {
		return domain.Order{}, fmt.Errorf("%w: %d", apperrors.ErrPriceStoreInvalidIndex, idx)
	}
	slot := s.slots[idx]
	if slot == nil || slot.OrderID != id {
		return domain.Order{}, fmt.Errorf("%w: order %d", apperrors.ErrPriceStoreOrderNotFoundByIndex, id)
	}
	removed := *slot
	s.slots[idx] = nil
	delete(s.idToIndex, id)
	return removed, nil
}

// UpdateOrder replaces the slot value at the mapped index in place. Used to
// write back a partially-filled maker's decremented quantity.
func (s *Store) UpdateOrder(id uint64, o domain.Order) error {
	idx, ok := s.idToIndex[id]
	if !ok {
		return fmt.Errorf("%w: order %d", apperrors.ErrOrderNotFound, id)
	}
	if int(idx) >= len(s.slots) || s.slots[idx] == nil {
		return fmt.Errorf("%w: %d", apperrors.ErrPriceStoreInvalidIndex, idx)
	}
	o.OrderID = id
	s.slots[idx] = &o
	return nil
}

// TryGet looks an order up by id, distinguishing "id never existed or was
// evicted from the index" (InvalidOrderID) from "the index points at a
// vacated slot" (PriceStoreOrderNotFoundByIndex), since the two indicate
// different corruption classes to a caller auditing the book.
func (s *Store) TryGet(id uint64) (domain.Order, error) {
	idx, ok := s.idToIndex[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %d", apperrors.ErrInvalidOrderID, id)
	}
	if int(idx) >= len(s.slots) || s.slots[idx] == nil || s.slots[idx].OrderID != id {
		return domain.Order{}, fmt.Errorf("%w: order %d", apperrors.ErrPriceStoreOrderNotFoundByIndex, id)
	}
	return *s.slots[idx], nil
}

// Iter yields surviving orders in insertion order, i.e. time priority.
func (s *Store) Iter(yield func(id uint64, o domain.Order) bool) {
	for _, slot := range s.slots {
		if slot == nil {
			continue
		}
		if !yield(slot.OrderID, *slot) {
			return
		}
	}
}

// wireStore is Store's persisted shape: the unexported slot vector and
// index map rendered as plain JSON fields so a Book can be saved and
// reloaded from internal/store across process restarts.
type wireStore struct {
	Slots      []*domain.Order `json:"slots"`
	NextSlotID uint64          `json:"next_slot_id"`
}

func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireStore{Slots: s.slots, NextSlotID: s.nextSlotID})
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var w wireStore
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.slots = w.Slots
	s.nextSlotID = w.NextSlotID
	s.idToIndex = make(map[uint64]uint32, len(w.Slots))
	for i, slot := range w.Slots {
		if slot == nil {
			continue
		}
		s.idToIndex[slot.OrderID] = uint32(i)
	}
	return nil
}
