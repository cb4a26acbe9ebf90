package custody

import (
	"context"
	"fmt"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"
)

// RequestWithdraw reserves amount out of user's Available balance into
// ReservedWithdraw and records a pending withdraw request, returning its
// id. Calling RequestWithdraw again with an identical (user, token, amount)
// while a request for that exact combination is still Requested fails
// ErrSameWithdrawDataExist, rejecting an accidental duplicate submission
// rather than allocating a second reservation for it.
func (a *AssetManager) RequestWithdraw(caller, user, tok string, amount bignum.Int) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return 0, err
	}
	if caller != user {
		return 0, fmt.Errorf("%w: withdraw caller must be the withdrawing user", apperrors.ErrUnauthorized)
	}
	if err := validateIdentifier("user", user); err != nil {
		return 0, err
	}
	if err := validateIdentifier("token", tok); err != nil {
		return 0, err
	}
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: withdraw", apperrors.ErrAmountMustBePositive)
	}

	for _, rec := range a.withdraws {
		if rec.Status == domain.WithdrawRequested && rec.User == user && rec.Token == tok && rec.Amount.Cmp(amount) == 0 {
			return 0, fmt.Errorf("%w: user %s token %s amount %s", apperrors.ErrSameWithdrawDataExist, user, tok, amount.String())
		}
	}

	if err := a.books.RequestWithdraw(user, tok, amount); err != nil {
		return 0, err
	}

	id := a.withdrawIDCounter
	a.withdrawIDCounter++
	a.withdraws[id] = domain.WithdrawRecord{
		ID:     id,
		User:   user,
		Token:  tok,
		Amount: amount,
		Status: domain.WithdrawRequested,
	}
	a.sink.Publish([]string{"withdraw_requested", user}, map[string]any{"id": id, "token": tok, "amount": amount.String()})
	return id, nil
}

// WithdrawRecord returns the stored request for id.
func (a *AssetManager) WithdrawRecord(id uint64) (domain.WithdrawRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.withdraws[id]
	return rec, ok
}

// ExecuteWithdraw is the operator's approve/reject decision on a pending
// withdraw request, grounded on the original contract's
// process_withdraw_request: id, user, token, and amount must all match the
// stored record exactly (ErrWithdrawRequestDataMismatch guards against an
// operator approving the wrong request by id collision), and the request
// must still be Requested (ErrWithdrawRequestAlreadyProcessed otherwise).
// Approving moves the reservation out of the ledger permanently and
// transfers amount to user; rejecting releases the reservation back to
// Available with no token transfer.
func (a *AssetManager) ExecuteWithdraw(ctx context.Context, caller string, id uint64, user, tok string, amount bignum.Int, approve bool) error {
	a.mu.Lock()
	if err := a.requireInitialized(); err != nil {
		a.mu.Unlock()
		return err
	}
	if caller != a.operatorManager {
		a.mu.Unlock()
		return fmt.Errorf("%w: withdraw execution requires the operator manager", apperrors.ErrUnauthorized)
	}
	rec, ok := a.withdraws[id]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: id %d", apperrors.ErrWithdrawDataNotExist, id)
	}
	if rec.Status != domain.WithdrawRequested {
		a.mu.Unlock()
		return fmt.Errorf("%w: id %d", apperrors.ErrWithdrawRequestAlreadyProcessed, id)
	}
	if rec.User != user || rec.Token != tok || rec.Amount.Cmp(amount) != 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: id %d", apperrors.ErrWithdrawRequestDataMismatch, id)
	}
	a.mu.Unlock()

	if !approve {
		if err := a.books.RejectWithdraw(user, tok, amount); err != nil {
			return err
		}
		a.mu.Lock()
		rec.Status = domain.WithdrawRejected
		a.withdraws[id] = rec
		a.mu.Unlock()
		a.sink.Publish([]string{"withdraw_rejected", user}, map[string]any{"id": id})
		return nil
	}

	if err := a.books.ApproveWithdraw(user, tok, amount); err != nil {
		return err
	}
	if err := a.tokens.Transfer(ctx, tok, selfAddress, user, amount); err != nil {
		return fmt.Errorf("token transfer failed: %w", err)
	}
	a.mu.Lock()
	rec.Status = domain.WithdrawExecuted
	a.withdraws[id] = rec
	a.mu.Unlock()
	a.sink.Publish([]string{"withdraw_executed", user}, map[string]any{"id": id})
	return nil
}
