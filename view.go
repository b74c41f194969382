package journal

// View is what the presentation layer reads after an ingestion cycle.
type View struct {
	Months    []*MonthBucket `json:"months"`
	Summary   AccountSummary `json:"summary"`
	Unmatched int            `json:"unmatched"` // unmatched sells of the last cycle
	Currency  string         `json:"currency"`
}

// NewView recomputes l against prices and aggregates the result.
func NewView(l *Ledger, prices Prices, unmatched int) View {
	next, summary := Recompute(l, prices)
	return View{
		Months:    Aggregate(next),
		Summary:   summary,
		Unmatched: unmatched,
		Currency:  l.Currency,
	}
}
