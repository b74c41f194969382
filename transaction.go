package journal

import (
	"crypto/sha1"
	"fmt"
	"slices"
	"time"
)

// TransactionType tells whether a brokerage record moved securities in or out.
type TransactionType int

const (
	Other TransactionType = iota
	Buy
	Sell
)

// Broker codes for the transaction types.
const (
	CodeBuy  = "SPUR"
	CodeSell = "SSAL"
)

func (t TransactionType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "other"
	}
}

// ParseTransactionType maps a broker transaction code to its type.
// Unknown codes are Other.
func ParseTransactionType(code string) TransactionType {
	switch code {
	case CodeBuy:
		return Buy
	case CodeSell:
		return Sell
	default:
		return Other
	}
}

// Instrument identifies a traded security.
type Instrument struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Transaction is a single execution record as received from the brokerage.
// It is never modified once received.
type Transaction struct {
	OrderID        string
	Type           TransactionType
	Instrument     Instrument
	FillPrice      Money    // price per unit
	FillQuantity   Quantity // units moved, never negative
	Amount         Money    // signed cash effect of the transaction
	AccountAmount  Money    // change to the account balance
	AccountBalance Money    // account balance after the transaction
	OccurredAt     time.Time
}

// Cost returns the cost (or proceeds) of the fill: FillQuantity × FillPrice.
func (tx Transaction) Cost() Money { return tx.FillPrice.Mul(tx.FillQuantity) }

// BalanceBefore returns the account balance just before the transaction.
func (tx Transaction) BalanceBefore() Money { return tx.AccountBalance.Sub(tx.AccountAmount) }

// fingerprint identifies a fill so that it is never applied twice to a ledger.
//
// Records carry no unique id: fills of the same order can share their time,
// quantity and price. The account balance after each fill tells them apart.
func (tx Transaction) fingerprint() string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		tx.OrderID, tx.Type, tx.Instrument.Symbol,
		tx.OccurredAt.UTC().Format(time.RFC3339Nano),
		tx.FillQuantity.value.String(), tx.FillPrice.value.String(),
		tx.AccountAmount.value.String(), tx.AccountBalance.value.String(),
	)
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}

// Classify partitions txs into buys and sells, each sorted by OccurredAt.
//
// The sort is stable: records with the same timestamp keep their relative
// order in txs. Records of any other type are dropped.
func Classify(txs []Transaction) (buys, sells []Transaction) {
	buys, sells = make([]Transaction, 0), make([]Transaction, 0)
	for _, tx := range txs {
		switch tx.Type {
		case Buy:
			buys = append(buys, tx)
		case Sell:
			sells = append(sells, tx)
		}
	}
	byTime := func(a, b Transaction) int { return a.OccurredAt.Compare(b.OccurredAt) }
	slices.SortStableFunc(buys, byTime)
	slices.SortStableFunc(sells, byTime)
	return buys, sells
}
