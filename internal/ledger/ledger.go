// Package ledger implements the per-(user,token) balance ledger shared by
// the custody contract and the matching engine: a spendable Available
// amount plus two reserved buckets (ReservedTrade for resting orders,
// ReservedWithdraw for pending withdraw requests), unified per the spec's
// redesign guidance into one record instead of the original's separate
// custody/exchange balance shapes.
package ledger

import (
	"fmt"
	"sync"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"
)

// Balances is one user's holding of one token. All three fields are
// nonnegative; ReservedTrade is the sum of not-yet-filled amounts behind
// that user's open orders, ReservedWithdraw the sum behind pending withdraw
// requests. Conservation: for every token, Σ over users of
// (Available + ReservedTrade + ReservedWithdraw) equals the ledger's
// on-chain token balance.
type Balances struct {
	Available        bignum.Int
	ReservedTrade    bignum.Int
	ReservedWithdraw bignum.Int
}

type key struct {
	user  string
	token string
}

// Ledger is the full set of per-(user,token) balance records. Reads of an
// unseen key return a zero-valued record — balances are created lazily, as
// the spec requires, never by an explicit "open account" call. The zero
// value of Ledger is not usable; construct with New.
type Ledger struct {
	mu       sync.Mutex
	balances map[key]Balances
	sink     domain.EventSink
}

// New returns an empty ledger publishing balance-change events to sink. A
// nil sink is replaced with domain.NopEventSink{}.
func New(sink domain.EventSink) *Ledger {
	if sink == nil {
		sink = domain.NopEventSink{}
	}
	return &Ledger{
		balances: make(map[key]Balances),
		sink:     sink,
	}
}

// Get returns a snapshot of user's balance of token, zero-valued if unseen.
func (l *Ledger) Get(user, token string) Balances {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[key{user, token}]
}

func (l *Ledger) set(user, token string, b Balances) {
	l.balances[key{user, token}] = b
}

// Deposit credits amount to user's Available balance of token. amount must
// be strictly positive.
func (l *Ledger) Deposit(user, token string, amount bignum.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit", apperrors.ErrAmountMustBePositive)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	available, err := b.Available.Add(amount)
	if err != nil {
		return err
	}
	b.Available = available
	l.set(user, token, b)
	l.sink.Publish([]string{"ledger", "deposit"}, map[string]any{"user": user, "token": token, "amount": amount.String()})
	return nil
}

// Credit adds amount to user's Available balance without the positive-amount
// check Deposit enforces, used internally by trade settlement where a zero
// leg is legitimate (e.g. a taker fully reserved for the other leg).
func (l *Ledger) Credit(user, token string, amount bignum.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: credit", apperrors.ErrAmountMustBePositive)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	available, err := b.Available.Add(amount)
	if err != nil {
		return err
	}
	b.Available = available
	l.set(user, token, b)
	return nil
}

// Debit subtracts amount from user's Available balance, failing
// BalanceNotEnough if it would go negative.
func (l *Ledger) Debit(user, token string, amount bignum.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: debit", apperrors.ErrAmountMustBePositive)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.Available.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	available, err := b.Available.Sub(amount)
	if err != nil {
		return err
	}
	b.Available = available
	l.set(user, token, b)
	return nil
}

// MoveAvailableToReservedTrade moves amount from Available into
// ReservedTrade, reserving funds behind a newly-resting order.
func (l *Ledger) MoveAvailableToReservedTrade(user, token string, amount bignum.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.Available.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	available, err := b.Available.Sub(amount)
	if err != nil {
		return err
	}
	reserved, err := b.ReservedTrade.Add(amount)
	if err != nil {
		return err
	}
	b.Available, b.ReservedTrade = available, reserved
	l.set(user, token, b)
	return nil
}

// MoveReservedTradeToAvailable moves amount from ReservedTrade back to
// Available, releasing a cancelled or now-unreachable order's reservation.
func (l *Ledger) MoveReservedTradeToAvailable(user, token string, amount bignum.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.ReservedTrade.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	reserved, err := b.ReservedTrade.Sub(amount)
	if err != nil {
		return err
	}
	available, err := b.Available.Add(amount)
	if err != nil {
		return err
	}
	b.ReservedTrade, b.Available = reserved, available
	l.set(user, token, b)
	return nil
}

// MoveReservedTradeToExternal decrements ReservedTrade by amount without
// crediting it back to Available: used when a maker's reserved funds leave
// the user entirely as part of a trade settlement (the corresponding credit
// lands on the other side's receive token, handled separately).
func (l *Ledger) MoveReservedTradeToExternal(user, token string, amount bignum.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.ReservedTrade.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	reserved, err := b.ReservedTrade.Sub(amount)
	if err != nil {
		return err
	}
	b.ReservedTrade = reserved
	l.set(user, token, b)
	return nil
}

// RequestWithdraw moves amount from Available to ReservedWithdraw, as the
// custody side of starting a withdraw request.
func (l *Ledger) RequestWithdraw(user, token string, amount bignum.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdraw", apperrors.ErrAmountMustBePositive)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.Available.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	available, err := b.Available.Sub(amount)
	if err != nil {
		return err
	}
	reserved, err := b.ReservedWithdraw.Add(amount)
	if err != nil {
		return err
	}
	b.Available, b.ReservedWithdraw = available, reserved
	l.set(user, token, b)
	return nil
}

// ApproveWithdraw removes amount from ReservedWithdraw permanently: the
// tokens have left the ledger via the external token transfer.
func (l *Ledger) ApproveWithdraw(user, token string, amount bignum.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.ReservedWithdraw.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	reserved, err := b.ReservedWithdraw.Sub(amount)
	if err != nil {
		return err
	}
	b.ReservedWithdraw = reserved
	l.set(user, token, b)
	l.sink.Publish([]string{"ledger", "withdraw_approved"}, map[string]any{"user": user, "token": token, "amount": amount.String()})
	return nil
}

// RejectWithdraw moves amount from ReservedWithdraw back to Available.
func (l *Ledger) RejectWithdraw(user, token string, amount bignum.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[key{user, token}]
	if b.ReservedWithdraw.Cmp(amount) < 0 {
		return fmt.Errorf("%w: user %s token %s", apperrors.ErrBalanceNotEnough, user, token)
	}
	reserved, err := b.ReservedWithdraw.Sub(amount)
	if err != nil {
		return err
	}
	available, err := b.Available.Add(amount)
	if err != nil {
		return err
	}
	b.ReservedWithdraw, b.Available = reserved, available
	l.set(user, token, b)
	l.sink.Publish([]string{"ledger", "withdraw_rejected"}, map[string]any{"user": user, "token": token, "amount": amount.String()})
	return nil
}
