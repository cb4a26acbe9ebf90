package custody

import (
	"fmt"

	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/pkg/apperrors"
)

// TradeUploadUnit is one side of an operator-matched trade, grounded on the
// original contract's TradeUploadUnit: the operator's off-chain matcher
// already paired buy and sell, so this carries the order's signed payload
// for after-the-fact verification rather than anything the matching engine
// itself produces.
type TradeUploadUnit struct {
	TradeID        uint64
	Account        string
	Symbol         string
	Quantity       bignum.Int
	Amount         bignum.Int
	FeeAmount      bignum.Int
	FeeTokenAsset  string
	Timestamp      uint64
	OrderSignature []byte
	PubKeyID       uint32
	Order          []byte
}

// TradeUploadPair is one matched buy/sell pair within a batch.
type TradeUploadPair struct {
	BuySide  TradeUploadUnit
	SellSide TradeUploadUnit
}

// TradeUploadData is a full operator-submitted trade batch.
type TradeUploadData struct {
	BatchID uint64
	Trades  []TradeUploadPair
}

// TradeUpload applies a batch of operator-matched trades directly against
// the ledger, bypassing the order book entirely: the operator's matcher
// already decided the pairing and prices off-chain, so this only needs to
// verify each side's signature and move balances, not run anything through
// internal/matching. BatchID must equal the contract's running counter
// (ErrBatchIDNotMatch) so a batch can't be replayed or applied out of
// order; every pair is validated before any balance in the batch is
// mutated, so a bad trade anywhere in the batch aborts the whole upload
// rather than partially applying it.
func (a *AssetManager) TradeUpload(caller string, batch TradeUploadData) error {
	a.mu.Lock()
	if err := a.requireInitialized(); err != nil {
		a.mu.Unlock()
		return err
	}
	if caller != a.operatorManager {
		a.mu.Unlock()
		return fmt.Errorf("%w: trade upload requires the operator manager", apperrors.ErrUnauthorized)
	}
	if batch.BatchID != a.batchIDCounter {
		a.mu.Unlock()
		return fmt.Errorf("%w: got %d want %d", apperrors.ErrBatchIDNotMatch, batch.BatchID, a.batchIDCounter)
	}
	a.mu.Unlock()

	for i, pair := range batch.Trades {
		if err := a.validateTradePair(pair); err != nil {
			return fmt.Errorf("trade %d: %w", i, err)
		}
	}

	for _, pair := range batch.Trades {
		if err := a.applyTradePair(pair); err != nil {
			return fmt.Errorf("applying trade after validation passed: %w", err)
		}
	}

	a.mu.Lock()
	a.batchIDCounter++
	a.mu.Unlock()
	a.sink.Publish([]string{"batch_processed"}, map[string]any{"batch_id": batch.BatchID, "trades": len(batch.Trades)})
	return nil
}

func (a *AssetManager) validateTradePair(pair TradeUploadPair) error {
	buy, sell := pair.BuySide, pair.SellSide
	if buy.Symbol != sell.Symbol {
		return fmt.Errorf("%w: buy=%s sell=%s", apperrors.ErrTradeSymbolsNotMatch, buy.Symbol, sell.Symbol)
	}
	if !a.IsPairListed(buy.Symbol) {
		return fmt.Errorf("%w: %s", apperrors.ErrPairIsNotListed, buy.Symbol)
	}
	if err := a.ValidateUserSignature(buy.Account, buy.PubKeyID, buy.Order, buy.OrderSignature); err != nil {
		return fmt.Errorf("buy side: %w", err)
	}
	if err := a.ValidateUserSignature(sell.Account, sell.PubKeyID, sell.Order, sell.OrderSignature); err != nil {
		return fmt.Errorf("sell side: %w", err)
	}

	p, _ := a.Pair(buy.Symbol)

	buyerQuote := a.books.Get(buy.Account, p.Token2)
	if buyerQuote.Available.Cmp(buy.Amount) < 0 {
		return fmt.Errorf("%w: buyer %s token %s", apperrors.ErrBalanceNotEnough, buy.Account, p.Token2)
	}
	if !buy.FeeAmount.IsZero() {
		buyerFee := a.books.Get(buy.Account, buy.FeeTokenAsset)
		if buy.FeeTokenAsset == p.Token2 {
			total, err := buy.Amount.Add(buy.FeeAmount)
			if err != nil {
				return err
			}
			if buyerQuote.Available.Cmp(total) < 0 {
				return fmt.Errorf("%w: buyer %s token %s fee", apperrors.ErrBalanceNotEnough, buy.Account, buy.FeeTokenAsset)
			}
		} else if buyerFee.Available.Cmp(buy.FeeAmount) < 0 {
			return fmt.Errorf("%w: buyer %s token %s fee", apperrors.ErrBalanceNotEnough, buy.Account, buy.FeeTokenAsset)
		}
	}

	sellerBase := a.books.Get(sell.Account, p.Token1)
	if sellerBase.Available.Cmp(sell.Quantity) < 0 {
		return fmt.Errorf("%w: seller %s token %s", apperrors.ErrBalanceNotEnough, sell.Account, p.Token1)
	}
	if !sell.FeeAmount.IsZero() {
		sellerFee := a.books.Get(sell.Account, sell.FeeTokenAsset)
		if sell.FeeTokenAsset == p.Token1 {
			total, err := sell.Quantity.Add(sell.FeeAmount)
			if err != nil {
				return err
			}
			if sellerBase.Available.Cmp(total) < 0 {
				return fmt.Errorf("%w: seller %s token %s fee", apperrors.ErrBalanceNotEnough, sell.Account, sell.FeeTokenAsset)
			}
		} else if sellerFee.Available.Cmp(sell.FeeAmount) < 0 {
			return fmt.Errorf("%w: seller %s token %s fee", apperrors.ErrBalanceNotEnough, sell.Account, sell.FeeTokenAsset)
		}
	}

	return nil
}

// applyTradePair executes the swap grounded on the original contract's
// execute_pair_swap/execute_trade: the buyer pays Amount of token2 and
// receives Quantity of token1, the seller pays Quantity of token1 and
// receives Amount of token2, and each side separately pays its own
// FeeAmount (in FeeTokenAsset) to the fee collector, skipped entirely when
// zero.
func (a *AssetManager) applyTradePair(pair TradeUploadPair) error {
	buy, sell := pair.BuySide, pair.SellSide
	p, _ := a.Pair(buy.Symbol)

	if err := a.books.Debit(buy.Account, p.Token2, buy.Amount); err != nil {
		return err
	}
	if err := a.books.Credit(buy.Account, p.Token1, buy.Quantity); err != nil {
		return err
	}
	if err := a.books.Debit(sell.Account, p.Token1, sell.Quantity); err != nil {
		return err
	}
	if err := a.books.Credit(sell.Account, p.Token2, sell.Amount); err != nil {
		return err
	}

	if err := a.withdrawFee(buy); err != nil {
		return err
	}
	if err := a.withdrawFee(sell); err != nil {
		return err
	}
	return nil
}

func (a *AssetManager) withdrawFee(unit TradeUploadUnit) error {
	if unit.FeeAmount.IsZero() {
		return nil
	}
	if err := a.books.Debit(unit.Account, unit.FeeTokenAsset, unit.FeeAmount); err != nil {
		return err
	}
	return a.books.Credit(a.feeCollector, unit.FeeTokenAsset, unit.FeeAmount)
}
