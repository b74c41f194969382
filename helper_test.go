package journal

import (
	"testing"
	"time"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const wit no currency set
func NO(v float64) Money { return M(v, "") }

var epoch2024 = NewDate(2024, time.January, 1)

// at parses a "2006-01-02 15:04" UTC timestamp.
func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func instrument(symbol string) Instrument {
	return Instrument{ID: "id-" + symbol, Symbol: symbol, Name: symbol + " Inc."}
}

// buy creates a buy execution, the account holds 1000 before it.
func buy(order, symbol string, qty, price float64, when string) Transaction {
	cost := USD(price).Mul(Q(qty))
	return Transaction{
		OrderID:        order,
		Type:           Buy,
		Instrument:     instrument(symbol),
		FillPrice:      USD(price),
		FillQuantity:   Q(qty),
		Amount:         cost.Neg(),
		AccountAmount:  cost.Neg(),
		AccountBalance: USD(1000).Sub(cost),
		OccurredAt:     at(when),
	}
}

func sell(order, symbol string, qty, price float64, when string) Transaction {
	proceeds := USD(price).Mul(Q(qty))
	return Transaction{
		OrderID:        order,
		Type:           Sell,
		Instrument:     instrument(symbol),
		FillPrice:      USD(price),
		FillQuantity:   Q(qty),
		Amount:         proceeds,
		AccountAmount:  proceeds,
		AccountBalance: USD(1000).Add(proceeds),
		OccurredAt:     at(when),
	}
}

// build applies txs to a new 2024 ledger.
func build(t *testing.T, txs ...Transaction) (*Ledger, []UnmatchedSell) {
	t.Helper()
	buys, sells := Classify(txs)
	l, _ := NewLedger(epoch2024, "USD", nil).AddBuys(buys)
	return l.AddSells(sells)
}

func assertMoney(t *testing.T, name string, got Money, want float64) {
	t.Helper()
	if !got.Decimal().Equal(newDecimal(want)) {
		t.Errorf("%s = %v, want %v", name, got.Decimal(), want)
	}
}

func assertQuantity(t *testing.T, name string, got Quantity, want float64) {
	t.Helper()
	if !got.Equal(Q(want)) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertPercent(t *testing.T, name string, got Percent, want float64) {
	t.Helper()
	// bit exact for values computed from exact decimals
	if float64(got) != want {
		t.Errorf("%s = %v, want %v", name, float64(got), want)
	}
}
