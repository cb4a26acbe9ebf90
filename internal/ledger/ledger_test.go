package ledger

import (
	"testing"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ReadOfUnseenKeyIsZeroValued(t *testing.T) {
	l := New(nil)
	b := l.Get("alice", "usdc")
	assert.True(t, b.Available.IsZero())
	assert.True(t, b.ReservedTrade.IsZero())
	assert.True(t, b.ReservedWithdraw.IsZero())
}

func TestLedger_DepositRejectsNonPositiveAmount(t *testing.T) {
	l := New(nil)
	err := l.Deposit("alice", "usdc", bignum.Zero())
	require.ErrorIs(t, err, apperrors.ErrAmountMustBePositive)
}

func TestLedger_DepositThenFullWithdrawRoundTrips(t *testing.T) {
	l := New(nil)
	amount := bignum.FromInt64(100)
	require.NoError(t, l.Deposit("alice", "usdc", amount))
	require.NoError(t, l.RequestWithdraw("alice", "usdc", amount))
	require.NoError(t, l.ApproveWithdraw("alice", "usdc", amount))

	b := l.Get("alice", "usdc")
	assert.True(t, b.Available.IsZero())
	assert.True(t, b.ReservedWithdraw.IsZero())
}

func TestLedger_PlaceThenCancelReturnsReservationToAvailable(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Deposit("alice", "usdc", bignum.FromInt64(100)))
	require.NoError(t, l.MoveAvailableToReservedTrade("alice", "usdc", bignum.FromInt64(30)))

	mid := l.Get("alice", "usdc")
	assert.Equal(t, 0, mid.Available.Cmp(bignum.FromInt64(70)))
	assert.Equal(t, 0, mid.ReservedTrade.Cmp(bignum.FromInt64(30)))

	require.NoError(t, l.MoveReservedTradeToAvailable("alice", "usdc", bignum.FromInt64(30)))
	final := l.Get("alice", "usdc")
	assert.Equal(t, 0, final.Available.Cmp(bignum.FromInt64(100)))
	assert.True(t, final.ReservedTrade.IsZero())
}

func TestLedger_WithdrawExactBalanceSucceedsOneOverAborts(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Deposit("alice", "usdc", bignum.FromInt64(50)))
	require.NoError(t, l.RequestWithdraw("alice", "usdc", bignum.FromInt64(50)))

	err := l.RequestWithdraw("alice", "usdc", bignum.FromInt64(1))
	require.ErrorIs(t, err, apperrors.ErrBalanceNotEnough)
}

func TestLedger_ApproveThenRejectSameAmountAbortsOnSecondCall(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Deposit("alice", "usdc", bignum.FromInt64(4)))
	require.NoError(t, l.RequestWithdraw("alice", "usdc", bignum.FromInt64(4)))
	require.NoError(t, l.ApproveWithdraw("alice", "usdc", bignum.FromInt64(4)))

	err := l.RejectWithdraw("alice", "usdc", bignum.FromInt64(4))
	require.ErrorIs(t, err, apperrors.ErrBalanceNotEnough)
}
