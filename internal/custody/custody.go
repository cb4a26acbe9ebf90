// Package custody implements AssetManager, the custody contract holding
// user deposits and dispatching operator-authorized withdrawals and trade
// batches. Balances are read and written through internal/ledger, the same
// ledger the matching engine's internal/executor settles trades against,
// per the spec's redesign guidance to unify the custody and exchange
// balance views into one record.
package custody

import (
	"context"
	"fmt"
	"sync"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/token"
	"github.com/dclob/exchange/internal/verify"
	"github.com/dclob/exchange/pkg/apperrors"
)

// selfAddress is the address the custody contract holds deposited tokens
// under — the fungible-token transfer's "to"/"from" party representing
// this contract's own custody account.
const selfAddress = "asset_manager"

type keyKey struct {
	user  string
	keyID uint32
}

// AssetManager is the custody contract. The zero value is not usable;
// construct with New and call Initialize exactly once before use.
type AssetManager struct {
	mu sync.Mutex

	initialized     bool
	owner           string
	operatorManager string
	feeCollector    string

	tokenStatus map[string]domain.ListingStatus
	pairs       map[string]domain.Pair

	withdrawIDCounter uint64
	withdraws         map[uint64]domain.WithdrawRecord

	batchIDCounter uint64

	keys map[keyKey][32]byte

	books    *ledger.Ledger
	tokens   token.Transferer
	verifier verify.Verifier
	sink     domain.EventSink
	logger   domain.Logger
}

// New returns an uninitialized AssetManager. Call Initialize before any
// other operation.
func New(books *ledger.Ledger, tokens token.Transferer, verifier verify.Verifier, sink domain.EventSink, logger domain.Logger) *AssetManager {
	if sink == nil {
		sink = domain.NopEventSink{}
	}
	return &AssetManager{
		tokenStatus: make(map[string]domain.ListingStatus),
		pairs:       make(map[string]domain.Pair),
		withdraws:   make(map[uint64]domain.WithdrawRecord),
		keys:        make(map[keyKey][32]byte),
		books:       books,
		tokens:      tokens,
		verifier:    verifier,
		sink:        sink,
		logger:      logger.WithField("component", "custody"),
	}
}

// Initialize sets the owner, operator manager, and fee collector addresses
// and starts the WithdrawId/BatchId counters at 1. Fails ErrAlreadyInitialized
// if called twice.
func (a *AssetManager) Initialize(owner, operatorManager, feeCollector string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return apperrors.ErrAlreadyInitialized
	}
	a.initialized = true
	a.owner = owner
	a.operatorManager = operatorManager
	a.feeCollector = feeCollector
	a.withdrawIDCounter = 1
	a.batchIDCounter = 1
	return nil
}

func (a *AssetManager) requireInitialized() error {
	if !a.initialized {
		return apperrors.ErrNotInitialized
	}
	return nil
}

// Owner returns the contract's owner address.
func (a *AssetManager) Owner() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return "", err
	}
	return a.owner, nil
}

// OperatorManager returns the address authorized to call execute_action.
func (a *AssetManager) OperatorManager() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return "", err
	}
	return a.operatorManager, nil
}

// FeeCollector returns the address fee legs of a trade batch are routed to.
func (a *AssetManager) FeeCollector() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return "", err
	}
	return a.feeCollector, nil
}

// Balances returns user's balance of token, zero-valued if unseen.
func (a *AssetManager) Balances(user, token string) ledger.Balances {
	return a.books.Get(user, token)
}

// Deposit requires caller to be user, amount to be strictly positive, and
// token to be Listed; it pulls amount from user via the token collaborator
// and credits it to user's Available balance.
func (a *AssetManager) Deposit(ctx context.Context, caller, user, tok string, amount bignum.Int) error {
	a.mu.Lock()
	if err := a.requireInitialized(); err != nil {
		a.mu.Unlock()
		return err
	}
	if caller != user {
		a.mu.Unlock()
		return fmt.Errorf("%w: deposit caller must be the depositing user", apperrors.ErrUnauthorized)
	}
	if err := validateIdentifier("user", user); err != nil {
		a.mu.Unlock()
		return err
	}
	if err := validateIdentifier("token", tok); err != nil {
		a.mu.Unlock()
		return err
	}
	if amount.Sign() <= 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: deposit", apperrors.ErrAmountMustBePositive)
	}
	if a.tokenStatus[tok] != domain.Listed {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", apperrors.ErrTokenIsNotListed, tok)
	}
	a.mu.Unlock()

	if err := a.tokens.Transfer(ctx, tok, user, selfAddress, amount); err != nil {
		return fmt.Errorf("token transfer failed: %w", err)
	}
	if err := a.books.Deposit(user, tok, amount); err != nil {
		return err
	}
	a.sink.Publish([]string{"deposit", user, tok}, map[string]any{"amount": amount.String()})
	return nil
}
