// Package payoff converts a matched (price, quantity) into base/quote token
// amounts and applies them to ledger balances, per the side-dependent roles
// a buy or sell plays against a trading pair's base and quote tokens.
package payoff

import (
	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/matching"
)

// WithSides captures the token roles for one trading pair and converts
// matched quantities into the base/quote amounts a buy or sell taker owes
// and receives.
type WithSides struct {
	BaseToken     string
	QuoteToken    string
	BaseDecimals  uint32
	decimalsDivisor bignum.Int
}

// New returns a WithSides for a pair whose base token has baseDecimals
// decimal places — the divisor used to convert price*quantity into quote
// amount.
func New(baseToken, quoteToken string, baseDecimals uint32) WithSides {
	return WithSides{
		BaseToken:       baseToken,
		QuoteToken:      quoteToken,
		BaseDecimals:    baseDecimals,
		decimalsDivisor: bignum.Pow10(baseDecimals),
	}
}

// quoteAmount computes price*quantity/10^base_decimals, truncating toward
// zero, and detecting u128/i128 overflow per the spec's numeric policy.
func (w WithSides) quoteAmount(price, quantity bignum.Int) (bignum.Int, error) {
	return bignum.MulDivTrunc(price, quantity, w.decimalsDivisor)
}

// withdrawToken and receiveToken return the token a side must withdraw from
// and receive into, for a trade at this pair.
func (w WithSides) withdrawToken(side domain.Side) string {
	if side == domain.Buy {
		return w.QuoteToken
	}
	return w.BaseToken
}

func (w WithSides) receiveToken(side domain.Side) string {
	if side == domain.Buy {
		return w.BaseToken
	}
	return w.QuoteToken
}

// withdrawAmount and receiveAmount compute the leg amounts for side at
// price/quantity: a buy withdraws quote (price*qty/10^decimals) and
// receives base (qty); a sell withdraws base (qty) and receives quote.
func (w WithSides) withdrawAmount(side domain.Side, price, quantity bignum.Int) (bignum.Int, error) {
	if side == domain.Buy {
		return w.quoteAmount(price, quantity)
	}
	return quantity, nil
}

func (w WithSides) receiveAmount(side domain.Side, price, quantity bignum.Int) (bignum.Int, error) {
	if side == domain.Buy {
		return quantity, nil
	}
	return w.quoteAmount(price, quantity)
}

// PayOffWithMakers applies, for every filled maker, the maker's withdraw leg
// out of ReservedTrade and the maker's receive leg into Available. makerSide
// is the side the makers were resting on (so the taker traded the opposite
// side); price is the price the makers were resting at.
func (w WithSides) PayOffWithMakers(books *ledger.Ledger, makerSide domain.Side, price bignum.Int, makers []matching.FilledMaker) error {
	for _, m := range makers {
		withdraw, err := w.withdrawAmount(makerSide, price, m.Quantity)
		if err != nil {
			return err
		}
		receive, err := w.receiveAmount(makerSide, price, m.Quantity)
		if err != nil {
			return err
		}
		if err := books.MoveReservedTradeToExternal(m.Account, w.withdrawToken(makerSide), withdraw); err != nil {
			return err
		}
		if err := books.Credit(m.Account, w.receiveToken(makerSide), receive); err != nil {
			return err
		}
	}
	return nil
}

// PayOffWithTaker settles the taker's side of a trade: total amounts
// already withdrawn/received across all makers are applied directly against
// Available. If restsRemainder is true, any unfilled remainder of the
// taker's own order is moved from Available into ReservedTrade to back the
// resting order left behind — Market orders never rest, so their unfilled
// remainder is simply dropped and never reserved.
func (w WithSides) PayOffWithTaker(books *ledger.Ledger, takerSide domain.Side, taker domain.NewAccountOrder, filledQty bignum.Int, totalWithdraw, totalReceive bignum.Int, restsRemainder bool) error {
	if err := books.Debit(taker.Account, w.withdrawToken(takerSide), totalWithdraw); err != nil {
		return err
	}
	if err := books.Credit(taker.Account, w.receiveToken(takerSide), totalReceive); err != nil {
		return err
	}

	if !restsRemainder || filledQty.Cmp(taker.Quantity) >= 0 {
		return nil
	}
	remaining, err := taker.Quantity.Sub(filledQty)
	if err != nil {
		return err
	}
	reserve, err := w.withdrawAmount(takerSide, taker.Price, remaining)
	if err != nil {
		return err
	}
	return books.MoveAvailableToReservedTrade(taker.Account, w.withdrawToken(takerSide), reserve)
}

// PayOffForCancellation moves a cancelled resting order's reserved amount
// back from ReservedTrade into Available.
func (w WithSides) PayOffForCancellation(books *ledger.Ledger, side domain.Side, account string, price, quantity bignum.Int) error {
	amount, err := w.withdrawAmount(side, price, quantity)
	if err != nil {
		return err
	}
	return books.MoveReservedTradeToAvailable(account, w.withdrawToken(side), amount)
}

// Settle applies a whole matching.PlaceResult to the ledger: every maker is
// paid off at its own resting price (the taker gets price improvement when a
// maker's price beats its limit), and the taker is settled once across all
// price levels it traded through, with any unmatched remainder reserved to
// back the order left resting in the book.
func (w WithSides) Settle(books *ledger.Ledger, orderType domain.OrderType, side domain.Side, taker domain.NewAccountOrder, result matching.PlaceResult) error {
	makerSide := side.Opposite()

	groups := make(map[string][]matching.FilledMaker)
	var order []string
	for _, m := range result.Makers {
		priceKey := m.OID.Price.String()
		if _, ok := groups[priceKey]; !ok {
			order = append(order, priceKey)
		}
		groups[priceKey] = append(groups[priceKey], m)
	}

	totalWithdraw, totalReceive := bignum.Zero(), bignum.Zero()
	for _, priceKey := range order {
		group := groups[priceKey]
		price := group[0].OID.Price

		if err := w.PayOffWithMakers(books, makerSide, price, group); err != nil {
			return err
		}

		groupQty := bignum.Zero()
		for _, m := range group {
			next, err := groupQty.Add(m.Quantity)
			if err != nil {
				return err
			}
			groupQty = next
		}

		withdraw, err := w.withdrawAmount(side, price, groupQty)
		if err != nil {
			return err
		}
		receive, err := w.receiveAmount(side, price, groupQty)
		if err != nil {
			return err
		}
		if totalWithdraw, err = totalWithdraw.Add(withdraw); err != nil {
			return err
		}
		if totalReceive, err = totalReceive.Add(receive); err != nil {
			return err
		}
	}

	filledQty, err := taker.Quantity.Sub(result.Leftover)
	if err != nil {
		return err
	}
	return w.PayOffWithTaker(books, side, taker, filledQty, totalWithdraw, totalReceive, orderType == domain.Limit)
}
