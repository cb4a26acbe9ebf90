package custody

import (
	"fmt"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"
)

// requireOwner confirms caller holds the privileged address, used for
// token/pair listing changes, which only the contract owner may make.
func (a *AssetManager) requireOwner(caller string) error {
	if caller != a.owner {
		return fmt.Errorf("%w: listing changes require the owner", apperrors.ErrUnauthorized)
	}
	return nil
}

// IsTokenListed reports whether token currently has Listed status.
func (a *AssetManager) IsTokenListed(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenStatus[token] == domain.Listed
}

// IsPairListed reports whether symbol currently has Listed status.
func (a *AssetManager) IsPairListed(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	pair, ok := a.pairs[symbol]
	return ok && pair.Status == domain.Listed
}

// Pair returns the stored Pair record for symbol.
func (a *AssetManager) Pair(symbol string) (domain.Pair, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pair, ok := a.pairs[symbol]
	return pair, ok
}

// SetTokenStatus sets token's listing status. Only the owner may call this.
// Writing the status it already has is a no-op error (ErrSameValueStored)
// rather than silently succeeding, so a listing change is always an
// observable transition.
func (a *AssetManager) SetTokenStatus(caller, token string, status domain.ListingStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return err
	}
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := validateIdentifier("token", token); err != nil {
		return err
	}
	if a.tokenStatus[token] == status {
		return fmt.Errorf("%w: token %s already %v", apperrors.ErrSameValueStored, token, status)
	}
	a.tokenStatus[token] = status
	a.sink.Publish([]string{"token_status_changed", token}, map[string]any{"status": status})
	return nil
}

// SetPairStatus lists or delists the pair symbol over (token1, token2).
// token1/token2 must be distinct (ErrSamePairTokens). If the pair already
// exists, token1/token2 must match the stored pair exactly
// (ErrChangingPair) — only the status may change, and only to a different
// value (ErrSameValueStored). Both tokens must already be Listed
// (ErrTokenIsNotListed) when listing a new pair.
func (a *AssetManager) SetPairStatus(caller, symbol, token1, token2 string, status domain.ListingStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return err
	}
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	for field, v := range map[string]string{"symbol": symbol, "token1": token1, "token2": token2} {
		if err := validateIdentifier(field, v); err != nil {
			return err
		}
	}
	if token1 == token2 {
		return fmt.Errorf("%w: %s", apperrors.ErrSamePairTokens, symbol)
	}

	existing, ok := a.pairs[symbol]
	if ok {
		if existing.Token1 != token1 || existing.Token2 != token2 {
			return fmt.Errorf("%w: pair %s", apperrors.ErrChangingPair, symbol)
		}
		if existing.Status == status {
			return fmt.Errorf("%w: pair %s already %v", apperrors.ErrSameValueStored, symbol, status)
		}
	} else {
		if a.tokenStatus[token1] != domain.Listed {
			return fmt.Errorf("%w: %s", apperrors.ErrTokenIsNotListed, token1)
		}
		if a.tokenStatus[token2] != domain.Listed {
			return fmt.Errorf("%w: %s", apperrors.ErrTokenIsNotListed, token2)
		}
	}

	a.pairs[symbol] = domain.Pair{Symbol: symbol, Token1: token1, Token2: token2, Status: status}
	a.sink.Publish([]string{"pair_status_changed", symbol}, map[string]any{"status": status})
	return nil
}
