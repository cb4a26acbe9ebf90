package bignum

import (
	"encoding/json"
	"testing"

	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt_AddSubRoundTrip(t *testing.T) {
	a := FromInt64(100)
	b := FromInt64(42)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "142", sum.String())

	back, err := sum.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(a))
}

func TestInt_SubRejectsI128Underflow(t *testing.T) {
	min := FromInt64(0)
	_, err := min.Sub(Pow10(39)) // far beyond i128 range
	require.ErrorIs(t, err, apperrors.ErrIncorrectPrecisionCalculation)
}

func TestMulDivTrunc_TruncatesTowardZero(t *testing.T) {
	price := FromInt64(3)
	qty := FromInt64(7)
	divisor := FromInt64(2)

	got, err := MulDivTrunc(price, qty, divisor)
	require.NoError(t, err)
	assert.Equal(t, "10", got.String()) // 21/2 = 10.5 -> 10
}

func TestMulDivTrunc_RejectsDivisionByZero(t *testing.T) {
	_, err := MulDivTrunc(FromInt64(1), FromInt64(1), Zero())
	require.ErrorIs(t, err, apperrors.ErrIncorrectPrecisionCalculation)
}

func TestMulDivTrunc_RejectsU128Overflow(t *testing.T) {
	huge := Pow10(30)
	_, err := MulDivTrunc(huge, huge, FromInt64(1))
	require.ErrorIs(t, err, apperrors.ErrIncorrectPrecisionCalculation)
}

func TestInt_JSONRoundTrip(t *testing.T) {
	x := FromUint64(123456789012345)

	data, err := json.Marshal(x)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345"`, string(data))

	var y Int
	require.NoError(t, json.Unmarshal(data, &y))
	assert.Equal(t, 0, x.Cmp(y))
}

func TestInt_UnmarshalRejectsGarbage(t *testing.T) {
	var y Int
	err := json.Unmarshal([]byte(`"not-a-number"`), &y)
	require.ErrorIs(t, err, apperrors.ErrIncorrectPrecisionCalculation)
}
