package operator

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/dclob/exchange/internal/auth"
	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/custody"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/events"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/token"
	"github.com/dclob/exchange/internal/verify"
	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/dclob/exchange/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "owner"
	operator = "operator-manager"
	feeAcct  = "fee-collector"
	btc      = "BTC"
	usd      = "USD"
	btcUSD   = "BTC-USD"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *custody.AssetManager, *ledger.Ledger) {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	books := ledger.New(events.NewCapturingSink())
	tokens := token.NewFake()
	// Tests credit the ledger directly with books.Deposit, so the custody
	// account ("asset_manager") is funded with the BTC that approved
	// withdrawals transfer out.
	tokens.Fund(btc, "asset_manager", bignum.FromInt64(10))
	manager := custody.New(books, tokens, verify.NewEd25519Verifier(), events.NewCapturingSink(), logger)
	require.NoError(t, manager.Initialize(owner, operator, feeAcct))

	d := New(manager, 1000, logger)
	return d, manager, books
}

// TestDispatcher_WithdrawApproveThenRejectIsImpossible mirrors the original
// contract's guarantee that a withdraw request, once decided, cannot be
// decided again in either direction.
func TestDispatcher_WithdrawApproveThenRejectIsImpossible(t *testing.T) {
	d, manager, books := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, manager.SetTokenStatus(owner, btc, domain.Listed))
	require.NoError(t, books.Deposit("alice", btc, bignum.FromInt64(10)))

	id, err := manager.RequestWithdraw("alice", "alice", btc, bignum.FromInt64(4))
	require.NoError(t, err)

	require.NoError(t, d.ExecuteWithdraw(ctx, operator, WithdrawDecision{
		ID: id, User: "alice", Token: btc, Amount: bignum.FromInt64(4), Approve: true,
	}))

	err = d.ExecuteWithdraw(ctx, operator, WithdrawDecision{
		ID: id, User: "alice", Token: btc, Amount: bignum.FromInt64(4), Approve: false,
	})
	require.ErrorIs(t, err, apperrors.ErrWithdrawRequestAlreadyProcessed)
}

func TestDispatcher_TradeUploadAppliesBatch(t *testing.T) {
	d, manager, books := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, manager.SetTokenStatus(owner, btc, domain.Listed))
	require.NoError(t, manager.SetTokenStatus(owner, usd, domain.Listed))
	require.NoError(t, manager.SetPairStatus(owner, btcUSD, btc, usd, domain.Listed))
	require.NoError(t, books.Deposit("seller", btc, bignum.FromInt64(10)))
	require.NoError(t, books.Deposit("buyer", usd, bignum.FromInt64(10)))

	sellerPub, sellerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	buyerPub, buyerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var sellerKey, buyerKey [32]byte
	copy(sellerKey[:], sellerPub)
	copy(buyerKey[:], buyerPub)
	require.NoError(t, manager.AnnounceKey("seller", "seller", 1, sellerKey))
	require.NoError(t, manager.AnnounceKey("buyer", "buyer", 1, buyerKey))

	buyOrder := []byte("buy-order-1")
	sellOrder := []byte("sell-order-1")

	batch := custody.TradeUploadData{
		BatchID: 1,
		Trades: []custody.TradeUploadPair{{
			BuySide: custody.TradeUploadUnit{
				Account: "buyer", Symbol: btcUSD,
				Quantity: bignum.FromInt64(1), Amount: bignum.FromInt64(5),
				OrderSignature: ed25519.Sign(buyerPriv, buyOrder), PubKeyID: 1, Order: buyOrder,
			},
			SellSide: custody.TradeUploadUnit{
				Account: "seller", Symbol: btcUSD,
				Quantity: bignum.FromInt64(1), Amount: bignum.FromInt64(5),
				OrderSignature: ed25519.Sign(sellerPriv, sellOrder), PubKeyID: 1, Order: sellOrder,
			},
		}},
	}

	require.NoError(t, d.TradeUpload(ctx, operator, batch))

	assert.Equal(t, 0, books.Get("buyer", btc).Available.Cmp(bignum.FromInt64(1)))
	assert.Equal(t, 0, books.Get("seller", usd).Available.Cmp(bignum.FromInt64(5)))
}

func TestDispatcher_TradeUploadRejectsWrongBatchID(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	err := d.TradeUpload(context.Background(), operator, custody.TradeUploadData{BatchID: 7})
	require.ErrorIs(t, err, apperrors.ErrBatchIDNotMatch)
}

func TestDispatcher_ExecuteActionDispatchesWithdraw(t *testing.T) {
	d, manager, books := newTestDispatcher(t)
	ctx := context.Background()
	require.NoError(t, manager.SetTokenStatus(owner, btc, domain.Listed))
	require.NoError(t, books.Deposit("alice", btc, bignum.FromInt64(10)))

	id, err := manager.RequestWithdraw("alice", "alice", btc, bignum.FromInt64(4))
	require.NoError(t, err)

	err = d.ExecuteAction(ctx, operator, Action{Withdraw: &WithdrawDecision{
		ID: id, User: "alice", Token: btc, Amount: bignum.FromInt64(4), Approve: true,
	}})
	require.NoError(t, err)

	rec, ok := manager.WithdrawRecord(id)
	require.True(t, ok)
	assert.Equal(t, domain.WithdrawExecuted, rec.Status)
}

func TestDispatcher_ExecuteActionRejectsEmptyAction(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	err := d.ExecuteAction(context.Background(), operator, Action{})
	require.Error(t, err)
}

func TestDispatcher_ExecuteActionAuthorizedRejectsMissingCaller(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	err := d.ExecuteActionAuthorized(context.Background(), operator, Action{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDispatcher_ExecuteActionAuthorizedDispatchesForAuthorizedCaller(t *testing.T) {
	d, manager, books := newTestDispatcher(t)
	require.NoError(t, manager.SetTokenStatus(owner, btc, domain.Listed))
	require.NoError(t, books.Deposit("alice", btc, bignum.FromInt64(10)))

	id, err := manager.RequestWithdraw("alice", "alice", btc, bignum.FromInt64(4))
	require.NoError(t, err)

	ctx := auth.WithCaller(auth.WithRequestID(context.Background()), operator)
	err = d.ExecuteActionAuthorized(ctx, operator, Action{Withdraw: &WithdrawDecision{
		ID: id, User: "alice", Token: btc, Amount: bignum.FromInt64(4), Approve: true,
	}})
	require.NoError(t, err)

	rec, ok := manager.WithdrawRecord(id)
	require.True(t, ok)
	assert.Equal(t, domain.WithdrawExecuted, rec.Status)
}
