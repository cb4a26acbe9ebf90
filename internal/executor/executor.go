// Package executor is the OrderExecutor: the only component that loads an
// order book out of internal/store, runs it through internal/matching, pays
// the result off against internal/ledger via internal/payoff, and persists
// the mutated book — or writes nothing at all if any step fails.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/matching"
	"github.com/dclob/exchange/internal/orderbook"
	"github.com/dclob/exchange/internal/payoff"
	"github.com/dclob/exchange/internal/store"
	"github.com/dclob/exchange/internal/token"
	"github.com/dclob/exchange/pkg/apperrors"
)

func bookKey(pairSymbol string) string {
	return "book:" + pairSymbol
}

// OrderExecutor wires a persistent book store to the matching engine and
// the ledger, one trading pair at a time.
type OrderExecutor struct {
	store  store.Store
	books  *ledger.Ledger
	tokens token.Transferer
	logger domain.Logger
}

// New returns an OrderExecutor over st (book persistence), books (balance
// ledger), and tokens (decimals lookup for payoff conversion).
func New(st store.Store, books *ledger.Ledger, tokens token.Transferer, logger domain.Logger) *OrderExecutor {
	return &OrderExecutor{
		store:  st,
		books:  books,
		tokens: tokens,
		logger: logger.WithField("component", "executor"),
	}
}

// CreateBook persists a fresh, empty order book for pair if one does not
// already exist.
func (e *OrderExecutor) CreateBook(ctx context.Context, pairSymbol string) error {
	key := bookKey(pairSymbol)
	_, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return e.save(ctx, key, orderbook.New())
}

func (e *OrderExecutor) load(ctx context.Context, pairSymbol string) (*orderbook.Book, error) {
	data, ok, err := e.store.Get(ctx, bookKey(pairSymbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: pair %s", apperrors.ErrOrderBookNotFound, pairSymbol)
	}
	var book orderbook.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to decode book for pair %s: %w", pairSymbol, err)
	}
	return &book, nil
}

func (e *OrderExecutor) save(ctx context.Context, key string, book *orderbook.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.Put(ctx, key, data, 0); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// PlaceOrder matches newOrder against pair's book and settles the result
// against the ledger. On any error the book is left untouched: load,
// match, settle, and save either all happen or none do.
func (e *OrderExecutor) PlaceOrder(ctx context.Context, pair domain.Pair, orderType domain.OrderType, side domain.Side, newOrder domain.NewAccountOrder) (*matching.PlaceResult, error) {
	book, err := e.load(ctx, pair.Symbol)
	if err != nil {
		return nil, err
	}

	baseDecimals, err := e.tokens.Decimals(ctx, pair.Token1)
	if err != nil {
		return nil, fmt.Errorf("failed to read decimals for %s: %w", pair.Token1, err)
	}
	ws := payoff.New(pair.Token1, pair.Token2, baseDecimals)

	result, err := matching.PlaceOrder(book, orderType, side, newOrder)
	if err != nil {
		return nil, err
	}

	if err := ws.Settle(e.books, orderType, side, newOrder, *result); err != nil {
		return nil, fmt.Errorf("settlement failed, book left unchanged: %w", err)
	}

	if err := e.save(ctx, bookKey(pair.Symbol), book); err != nil {
		return nil, fmt.Errorf("failed to persist book after settled trade: %w", err)
	}

	e.logger.Info("order placed",
		"pair", pair.Symbol,
		"side", side.String(),
		"account", newOrder.Account,
		"makers_filled", len(result.Makers),
	)
	return result, nil
}

// CancelOrder removes a resting order from pair's book and releases its
// ledger reservation.
func (e *OrderExecutor) CancelOrder(ctx context.Context, pair domain.Pair, oid domain.OrderBookID, baseDecimals uint32) (domain.Order, error) {
	book, err := e.load(ctx, pair.Symbol)
	if err != nil {
		return domain.Order{}, err
	}

	removed, err := book.RemoveOrder(oid)
	if err != nil {
		return domain.Order{}, err
	}

	ws := payoff.New(pair.Token1, pair.Token2, baseDecimals)
	if err := ws.PayOffForCancellation(e.books, oid.Side, removed.Account, oid.Price, removed.Quantity); err != nil {
		return domain.Order{}, fmt.Errorf("cancellation payoff failed, book left unchanged: %w", err)
	}

	if err := e.save(ctx, bookKey(pair.Symbol), book); err != nil {
		return domain.Order{}, fmt.Errorf("failed to persist book after cancel: %w", err)
	}

	e.logger.Info("order cancelled", "pair", pair.Symbol, "account", removed.Account, "order_id", oid.ID)
	return removed, nil
}

// Depth returns pair's current resting-level count on each side, for
// read-only status queries.
func (e *OrderExecutor) Depth(ctx context.Context, pairSymbol string) (buyLevels, sellLevels int, err error) {
	book, err := e.load(ctx, pairSymbol)
	if err != nil {
		return 0, 0, err
	}
	buy, sell := book.Depth()
	return buy, sell, nil
}
