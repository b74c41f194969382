package journal

// Profit holds the realised and unrealised figures of an entry, a day, or a
// period. Percents are always derived from the money figures, so summing two
// Profit values gives the right percents for the sum.
type Profit struct {
	RealisedCost     Money // cost basis of the quantity sold
	RealisedGain     Money // proceeds of the quantity sold
	UnrealisedCost   Money // cost basis of the quantity still held
	UnrealisedGain   Money // market value of the quantity still held
	UnrealisedProfit Money // UnrealisedGain − UnrealisedCost when a price is known
}

func (p Profit) RealisedProfit() Money      { return p.RealisedGain.Sub(p.RealisedCost) }
func (p Profit) RealisedPercent() Percent   { return ReturnOf(p.RealisedProfit(), p.RealisedCost) }
func (p Profit) UnrealisedPercent() Percent { return ReturnOf(p.UnrealisedProfit, p.UnrealisedCost) }

// CombinedProfit returns the realised and unrealised profit together.
// Holdings without a known price add nothing.
func (p Profit) CombinedProfit() Money { return p.RealisedProfit().Add(p.UnrealisedProfit) }

// CombinedCost returns the cost basis of everything bought.
func (p Profit) CombinedCost() Money { return p.RealisedCost.Add(p.UnrealisedCost) }

func (p Profit) CombinedPercent() Percent { return ReturnOf(p.CombinedProfit(), p.CombinedCost()) }

// Add returns the field by field sum of p and q.
func (p Profit) Add(q Profit) Profit {
	return Profit{
		RealisedCost:     p.RealisedCost.Add(q.RealisedCost),
		RealisedGain:     p.RealisedGain.Add(q.RealisedGain),
		UnrealisedCost:   p.UnrealisedCost.Add(q.UnrealisedCost),
		UnrealisedGain:   p.UnrealisedGain.Add(q.UnrealisedGain),
		UnrealisedProfit: p.UnrealisedProfit.Add(q.UnrealisedProfit),
	}
}

// Prices are last traded prices by symbol. A missing symbol has no known price.
type Prices map[string]Money

// profitOf computes the figures of a single instrument day entry.
func profitOf(e *InstrumentDayEntry, prices Prices) Profit {
	sells := fills(e.Sells)
	var p Profit
	p.RealisedGain = sells.proceeds()
	p.RealisedCost, p.UnrealisedCost = lots(e.Buys).fifoAllocate(sells.quantity())

	price, known := prices[e.Instrument.Symbol]
	if known && e.OpenQuantity.IsPositive() {
		p.UnrealisedGain = price.Mul(e.OpenQuantity)
		p.UnrealisedProfit = p.UnrealisedGain.Sub(p.UnrealisedCost)
	}
	return p
}

// Recompute returns a copy of l with the profit of every entry and every day
// computed against prices, and the account summary of the result.
func Recompute(l *Ledger, prices Prices) (*Ledger, AccountSummary) {
	next := l.Clone()
	for _, day := range next.Days() {
		var total Profit
		for _, entry := range day.Instruments {
			entry.Buys = lots(entry.Buys).sorted()
			entry.Sells = fills(entry.Sells).sorted()
			entry.Profit = profitOf(entry, prices)
			total = total.Add(entry.Profit)
		}
		day.Profit = total
	}
	return next, Summarize(next)
}
