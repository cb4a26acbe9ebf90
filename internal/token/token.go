// Package token models the fungible-token collaborator the custody ledger
// and matching engine call out to for decimals and balance checks — on the
// real host a deployed SAC/fungible-token contract, here an interface a
// production adapter and a test fake both implement.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/dclob/exchange/internal/bignum"
)

// Transferer is the fungible-token interface the custody ledger depends on:
// moving amount from one address to another, and reading decimals/balance
// for a token.
type Transferer interface {
	Transfer(ctx context.Context, token, from, to string, amount bignum.Int) error
	Decimals(ctx context.Context, token string) (uint32, error)
	Balance(ctx context.Context, token, who string) (bignum.Int, error)
}

// Fake is an in-memory Transferer for tests: it tracks balances per
// (token, address) and decimals per token, with no real transport.
type Fake struct {
	mu       sync.Mutex
	balances map[string]map[string]bignum.Int
	decimals map[string]uint32
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		balances: make(map[string]map[string]bignum.Int),
		decimals: make(map[string]uint32),
	}
}

// SetDecimals registers token's decimal places.
func (f *Fake) SetDecimals(token string, decimals uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decimals[token] = decimals
}

// Fund credits who's balance of token, for test setup.
func (f *Fake) Fund(token, who string, amount bignum.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[token] == nil {
		f.balances[token] = make(map[string]bignum.Int)
	}
	cur := f.balances[token][who]
	next, err := cur.Add(amount)
	if err != nil {
		panic(err)
	}
	f.balances[token][who] = next
}

func (f *Fake) Transfer(ctx context.Context, token, from, to string, amount bignum.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[token] == nil {
		f.balances[token] = make(map[string]bignum.Int)
	}
	fromBal := f.balances[token][from]
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("fake token: insufficient balance for %s", from)
	}
	newFrom, err := fromBal.Sub(amount)
	if err != nil {
		return err
	}
	newTo, err := f.balances[token][to].Add(amount)
	if err != nil {
		return err
	}
	f.balances[token][from] = newFrom
	f.balances[token][to] = newTo
	return nil
}

func (f *Fake) Decimals(ctx context.Context, token string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decimals[token], nil
}

func (f *Fake) Balance(ctx context.Context, token, who string) (bignum.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[token] == nil {
		return bignum.Zero(), nil
	}
	return f.balances[token][who], nil
}
