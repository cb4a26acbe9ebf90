// Package matching implements the two-phase order matcher: a pure plan
// phase (FillOrder) that walks the opposite side of the book without
// mutating it, and a commit phase (FinalizeMatching) that applies the plan.
// Splitting the two lets an OrderExecutor reject a plan atomically before
// any state is written.
package matching

import (
	"fmt"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/orderbook"
	"github.com/dclob/exchange/pkg/apperrors"
)

// MakerFill is one entry of a PendingFill plan: a maker order that would be
// (partially or fully) consumed by the taker, captured as a snapshot so the
// commit phase can detect the book having moved since the plan was made.
type MakerFill struct {
	OID      domain.OrderBookID
	Snapshot domain.Order
	FillType domain.FillType
	Amount   bignum.Int
}

// PendingFill is the output of the plan phase: the taker's resulting status,
// and the ordered list of maker fills needed to reach it. It is pure data —
// producing it never mutates the book.
type PendingFill struct {
	TakerStatus domain.TakerStatus
	Makers      []MakerFill
}

// FillOrder walks book's opposite side to taker's side in matching order,
// planning fills against taker without mutating the book. For limit orders,
// a maker whose price violates the taker's limit terminates the walk: the
// sorted traversal means every subsequent level is strictly worse, so
// skipping and breaking are equivalent here and this implementation breaks.
func FillOrder(book *orderbook.Book, takerQty bignum.Int, takerPrice bignum.Int, side domain.Side, orderType domain.OrderType) PendingFill {
	plan := PendingFill{TakerStatus: domain.TakerNone}
	remaining := takerQty
	makerSide := side.Opposite()

	book.MakerOrdersIter(makerSide, func(oid domain.OrderBookID, maker domain.Order) bool {
		if orderType == domain.Limit {
			if side == domain.Buy && maker.Price.Cmp(takerPrice) > 0 {
				return false
			}
			if side == domain.Sell && maker.Price.Cmp(takerPrice) < 0 {
				return false
			}
		}

		fillAmount := maker.Quantity
		fillType := domain.FillComplete
		if remaining.Cmp(maker.Quantity) < 0 {
			fillAmount = remaining
			fillType = domain.FillPartial
		}

		plan.Makers = append(plan.Makers, MakerFill{
			OID:      oid,
			Snapshot: maker,
			FillType: fillType,
			Amount:   fillAmount,
		})

		if remaining.Cmp(fillAmount) == 0 {
			plan.TakerStatus = domain.TakerComplete
			return false
		}
		next, err := remaining.Sub(fillAmount)
		if err != nil {
			// Unreachable: fillAmount <= remaining by construction above.
			return false
		}
		remaining = next
		plan.TakerStatus = domain.TakerPartial
		return true
	})

	return plan
}

// FilledMaker is the portion of a maker order actually consumed by a commit,
// returned to the caller (normally an OrderExecutor) to drive payoff.
type FilledMaker struct {
	OID           domain.OrderBookID
	Account       string
	Quantity      bignum.Int
	FeeAmount     bignum.Int
	FeeTokenAsset string
}

// FinalizeMatching applies plan to book. For a Complete fill, the maker
// order is removed outright; for a Partial fill, the live order's quantity
// is decremented and written back. Every maker is re-checked still present
// before being touched, since the book may have been mutated by a prior
// plan's commit (e.g. a cancel) between FillOrder and FinalizeMatching. A
// Complete fill's removed order must still carry the snapshot's quantity
// (checked after the removal); a Partial fill is checked only against the
// live quantity, not against the snapshot.
func FinalizeMatching(book *orderbook.Book, plan PendingFill, takerQty bignum.Int) (domain.TakerStatus, *bignum.Int, []FilledMaker, error) {
	remaining := takerQty
	var filled []FilledMaker

	for _, mf := range plan.Makers {
		live, err := book.TryGet(mf.OID)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("%w: maker %d vanished before commit", apperrors.ErrInvalidOrderID, mf.OID.ID)
		}

		switch mf.FillType {
		case domain.FillComplete:
			removed, err := book.RemoveOrder(mf.OID)
			if err != nil {
				return 0, nil, nil, err
			}
			if removed.Quantity.Cmp(mf.Snapshot.Quantity) != 0 {
				return 0, nil, nil, fmt.Errorf("%w: maker %d quantity changed since plan", apperrors.ErrIncorrectPriceLevelStorageState, mf.OID.ID)
			}
			remaining, err = remaining.Sub(mf.Amount)
			if err != nil {
				return 0, nil, nil, err
			}
			filled = append(filled, FilledMaker{
				OID:           mf.OID,
				Account:       removed.Account,
				Quantity:      removed.Quantity,
				FeeAmount:     removed.FeeAmount,
				FeeTokenAsset: removed.FeeTokenAsset,
			})

		case domain.FillPartial:
			if remaining.Cmp(live.Quantity) >= 0 {
				return 0, nil, nil, fmt.Errorf("%w: partial fill not strictly less than live quantity", apperrors.ErrIncorrectPriceLevelStorageState)
			}
			newQty, err := live.Quantity.Sub(remaining)
			if err != nil {
				return 0, nil, nil, err
			}
			filledQty := remaining
			live.Quantity = newQty
			if err := book.UpdateOrder(mf.OID, live); err != nil {
				return 0, nil, nil, err
			}
			filled = append(filled, FilledMaker{
				OID:           mf.OID,
				Account:       live.Account,
				Quantity:      filledQty,
				FeeAmount:     live.FeeAmount,
				FeeTokenAsset: live.FeeTokenAsset,
			})
			remaining = bignum.Zero()
		}
	}

	switch plan.TakerStatus {
	case domain.TakerComplete:
		if !remaining.IsZero() {
			return 0, nil, nil, fmt.Errorf("%w: complete taker left nonzero remainder", apperrors.ErrIncorrectPriceLevelStorageState)
		}
		return domain.TakerComplete, nil, filled, nil
	case domain.TakerPartial:
		if remaining.Cmp(takerQty) >= 0 {
			return 0, nil, nil, fmt.Errorf("%w: partial taker left unchanged remainder", apperrors.ErrIncorrectPriceLevelStorageState)
		}
		leftover := remaining
		return domain.TakerPartial, &leftover, filled, nil
	default:
		if remaining.Cmp(takerQty) != 0 {
			return 0, nil, nil, fmt.Errorf("%w: none taker status but remainder changed", apperrors.ErrIncorrectPriceLevelStorageState)
		}
		leftover := remaining
		return domain.TakerNone, &leftover, filled, nil
	}
}

// PlaceResult is the outcome of PlaceOrder: the new resting id and leftover
// quantity if anything remained after matching, plus the filled makers.
type PlaceResult struct {
	Resting  *domain.OrderBookID
	Leftover bignum.Int
	Makers   []FilledMaker
}

// PlaceOrder runs both matching phases and, if quantity remains after a
// Limit order is matched, inserts the leftover as a new resting order —
// Good-Till-Cancel, the only insertion policy this engine supports. Market
// orders never rest: unmatched quantity is simply dropped.
func PlaceOrder(book *orderbook.Book, orderType domain.OrderType, side domain.Side, newOrder domain.NewAccountOrder) (*PlaceResult, error) {
	plan := FillOrder(book, newOrder.Quantity, newOrder.Price, side, orderType)
	status, leftover, filled, err := FinalizeMatching(book, plan, newOrder.Quantity)
	if err != nil {
		return nil, err
	}

	result := &PlaceResult{Makers: filled}
	if leftover != nil {
		result.Leftover = *leftover
	}

	if status == domain.TakerComplete {
		return result, nil
	}
	if orderType == domain.Market {
		// Market orders never rest, regardless of remaining quantity.
		return result, nil
	}
	if result.Leftover.IsZero() {
		return result, nil
	}

	restOrder := domain.NewAccountOrder{
		Account:       newOrder.Account,
		Quantity:      result.Leftover,
		Price:         newOrder.Price,
		FeeAmount:     newOrder.FeeAmount,
		FeeTokenAsset: newOrder.FeeTokenAsset,
	}
	oid := book.AddOrder(side, restOrder)
	result.Resting = &oid
	return result, nil
}
