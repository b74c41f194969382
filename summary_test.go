package journal

import "testing"

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		buy("b1", "X", 10, 5, "2024-01-02 10:00"),
		buy("b2", "Y", 10, 10, "2024-01-03 10:00"),
		sell("s1", "X", 10, 7, "2024-01-04 10:00"),
	}
	// the account held 2000 before the first buy
	txs[0].AccountBalance = USD(1950)

	l, _ := build(t, txs...)
	_, s := Recompute(l, Prices{"Y": USD(12)})

	if !s.HasStartingBalance {
		t.Fatalf("no starting balance")
	}
	assertMoney(t, "StartingBalance", s.StartingBalance, 2000)
	assertMoney(t, "RealisedBalance", s.RealisedBalance, 2020)
	assertMoney(t, "UnrealisedBalance", s.UnrealisedBalance, 2040)
	assertMoney(t, "RealisedProfit", s.RealisedProfit, 20)
	assertMoney(t, "UnrealisedProfit", s.UnrealisedProfit, 40)
	assertPercent(t, "RealisedPercent", s.RealisedPercent, 1)
	assertPercent(t, "UnrealisedPercent", s.UnrealisedPercent, 2)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(NewLedger(epoch2024, "USD", nil))
	if s.HasStartingBalance {
		t.Errorf("empty ledger has a starting balance")
	}
	if s.RealisedPercent != 0 || s.UnrealisedPercent != 0 {
		t.Errorf("empty ledger percents = %v, %v, want 0, 0", s.RealisedPercent, s.UnrealisedPercent)
	}
}

func TestSummarize_Loss(t *testing.T) {
	l, _ := build(t,
		buy("b1", "X", 10, 5, "2024-01-02 10:00"),
		sell("s1", "X", 10, 4, "2024-01-04 10:00"),
	)
	_, s := Recompute(l, nil)
	assertMoney(t, "RealisedProfit", s.RealisedProfit, -10)
	assertPercent(t, "RealisedPercent", s.RealisedPercent, -1)
}
