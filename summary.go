package journal

// AccountSummary is the evolution of the account over the whole ledger.
type AccountSummary struct {
	StartingBalance    Money // balance before the first recorded buy
	HasStartingBalance bool
	RealisedBalance    Money // StartingBalance plus realised profits
	UnrealisedBalance  Money // StartingBalance plus realised and unrealised profits
	RealisedProfit     Money
	RealisedPercent    Percent
	UnrealisedProfit   Money
	UnrealisedPercent  Percent
}

// Summarize computes the account summary of l from its day profits.
//
// The starting balance is the one of the earliest day that has one. Without
// any, balances start at zero and the percents are 0.
func Summarize(l *Ledger) AccountSummary {
	var s AccountSummary
	var realised, combined Money
	for _, day := range l.Days() {
		if !s.HasStartingBalance && day.HasStartingBalance {
			s.StartingBalance = day.StartingBalance
			s.HasStartingBalance = true
		}
		realised = realised.Add(day.Profit.RealisedProfit())
		combined = combined.Add(day.Profit.CombinedProfit())
	}
	s.RealisedBalance = s.StartingBalance.Add(realised)
	s.UnrealisedBalance = s.StartingBalance.Add(combined)

	s.RealisedProfit = s.RealisedBalance.Sub(s.StartingBalance)
	s.UnrealisedProfit = s.UnrealisedBalance.Sub(s.StartingBalance)
	s.RealisedPercent = ReturnOf(s.RealisedProfit, s.StartingBalance)
	s.UnrealisedPercent = ReturnOf(s.UnrealisedProfit, s.StartingBalance)
	return s
}
