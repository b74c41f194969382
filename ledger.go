package journal

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"time"
)

// Ledger is a day-indexed record of buys and matched sells per instrument.
//
// Day i of the ledger is the calendar day Epoch+i in Location. Days without
// any buy are empty markers. A Ledger is never modified in place: AddBuys,
// AddSells and Recompute return new snapshots.
type Ledger struct {
	Epoch          Date
	Currency       string         // default currency of amounts without one
	Location       *time.Location // location of calendar days, nil means UTC
	FetchedThrough time.Time      // transactions up to this instant have been ingested

	days []*DayLedger
	seen map[string]struct{} // fingerprints of applied transactions
}

// DayLedger is the activity of one calendar day.
type DayLedger struct {
	Date               Date
	Instruments        map[string]*InstrumentDayEntry // index by symbol
	StartingBalance    Money                          // account balance before the first buy of the day
	HasStartingBalance bool
	Profit             Profit
}

// InstrumentDayEntry is the activity of one instrument on one day.
type InstrumentDayEntry struct {
	Instrument   Instrument
	Buys         []Lot
	Sells        []Fill
	OpenQuantity Quantity // Σ Buys.Quantity − Σ Sells.Quantity
	Profit       Profit
}

// UnmatchedSell is the part of a sell for which no holdings were found.
type UnmatchedSell struct {
	Transaction Transaction
	Quantity    Quantity
}

// NewLedger creates an empty ledger whose day 0 is epoch.
func NewLedger(epoch Date, currency string, loc *time.Location) *Ledger {
	return &Ledger{
		Epoch:    epoch,
		Currency: currency,
		Location: loc,
		seen:     make(map[string]struct{}),
	}
}

// Len returns the number of day slots in the ledger, empty ones included.
func (l *Ledger) Len() int { return len(l.days) }

// Day returns the day at index i, or nil if that day is empty.
func (l *Ledger) Day(i int) *DayLedger {
	if i < 0 || i >= len(l.days) {
		return nil
	}
	return l.days[i]
}

// Days iterates over non empty days in chronological order.
func (l *Ledger) Days() iter.Seq2[int, *DayLedger] {
	return func(yield func(int, *DayLedger) bool) {
		for i, day := range l.days {
			if day == nil {
				continue
			}
			if !yield(i, day) {
				return
			}
		}
	}
}

// Applied reports whether tx has already been applied to the ledger.
func (l *Ledger) Applied(tx Transaction) bool {
	_, ok := l.seen[tx.fingerprint()]
	return ok
}

// Fingerprints returns the sorted fingerprints of applied transactions.
func (l *Ledger) Fingerprints() []string {
	return slices.Sorted(maps.Keys(l.seen))
}

// index returns the day index of t.
func (l *Ledger) index(t time.Time) int {
	return DateOf(t, l.Location).DaysSince(l.Epoch)
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.days = make([]*DayLedger, len(l.days))
	for i, day := range l.days {
		if day != nil {
			c.days[i] = day.clone()
		}
	}
	c.seen = maps.Clone(l.seen)
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	return &c
}

func (d *DayLedger) clone() *DayLedger {
	c := *d
	c.Instruments = make(map[string]*InstrumentDayEntry, len(d.Instruments))
	for symbol, entry := range d.Instruments {
		e := *entry
		e.Buys = slices.Clone(entry.Buys)
		e.Sells = slices.Clone(entry.Sells)
		c.Instruments[symbol] = &e
	}
	return &c
}

// day fetches or creates the day at index i.
func (l *Ledger) day(i int) *DayLedger {
	for len(l.days) <= i {
		l.days = append(l.days, nil)
	}
	if l.days[i] == nil {
		l.days[i] = &DayLedger{
			Date:        l.Epoch.Add(i),
			Instruments: make(map[string]*InstrumentDayEntry),
		}
	}
	return l.days[i]
}

// AddBuys returns a new ledger with buys applied, in ascending time order.
//
// Each buy opens (or extends, for fills of the same order) a lot on its day.
// Buys already applied are ignored. Buys dated before the epoch cannot be
// placed and are counted in skipped.
func (l *Ledger) AddBuys(buys []Transaction) (next *Ledger, skipped int) {
	next = l.Clone()
	for _, tx := range buys {
		key := tx.fingerprint()
		if _, ok := next.seen[key]; ok {
			continue
		}
		i := next.index(tx.OccurredAt)
		if i < 0 {
			skipped++
			continue
		}
		next.seen[key] = struct{}{}

		day := next.day(i)
		if !day.HasStartingBalance {
			day.StartingBalance = tx.BalanceBefore()
			day.HasStartingBalance = true
		}

		symbol := tx.Instrument.Symbol
		entry, ok := day.Instruments[symbol]
		if !ok {
			entry = &InstrumentDayEntry{Instrument: tx.Instrument}
			day.Instruments[symbol] = entry
		}
		if j := slices.IndexFunc(entry.Buys, func(lot Lot) bool { return lot.OrderID == tx.OrderID }); j >= 0 {
			entry.Buys[j] = entry.Buys[j].merge(tx)
		} else {
			entry.Buys = append(entry.Buys, newLot(tx))
		}
		entry.OpenQuantity = entry.OpenQuantity.Add(tx.FillQuantity)
	}
	return next, skipped
}

// AddSells returns a new ledger with sells matched against holdings, in
// ascending time order, and the quantities that could not be matched.
//
// Each sell consumes the holdings of the earliest days first. Every day is
// scanned from the start of the ledger; days without the instrument or
// without open quantity are skipped. Sells already applied are ignored.
func (l *Ledger) AddSells(sells []Transaction) (next *Ledger, unmatched []UnmatchedSell) {
	next = l.Clone()
	for _, tx := range sells {
		key := tx.fingerprint()
		if _, ok := next.seen[key]; ok {
			continue
		}
		next.seen[key] = struct{}{}

		remaining := tx.FillQuantity
		for _, day := range next.days {
			if !remaining.IsPositive() {
				break
			}
			if day == nil {
				continue
			}
			entry, ok := day.Instruments[tx.Instrument.Symbol]
			if !ok || !entry.OpenQuantity.IsPositive() {
				continue
			}
			consumed := entry.OpenQuantity.Min(remaining)
			entry.Sells = append(entry.Sells, newFill(tx, consumed))
			entry.OpenQuantity = entry.OpenQuantity.Sub(consumed)
			remaining = remaining.Sub(consumed)
		}
		if remaining.IsPositive() {
			unmatched = append(unmatched, UnmatchedSell{Transaction: tx, Quantity: remaining})
		}
	}
	return next, unmatched
}

// HoldingSymbols returns the sorted symbols with positive open quantity.
func (l *Ledger) HoldingSymbols() []string {
	set := make(map[string]struct{})
	for _, day := range l.Days() {
		for symbol, entry := range day.Instruments {
			if entry.OpenQuantity.IsPositive() {
				set[symbol] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Entries returns the instruments of the day ordered by earliest buy, then
// by symbol.
func (d *DayLedger) Entries() []*InstrumentDayEntry {
	entries := slices.Collect(maps.Values(d.Instruments))
	slices.SortFunc(entries, func(a, b *InstrumentDayEntry) int {
		if c := a.firstBuy().Compare(b.firstBuy()); c != 0 {
			return c
		}
		return strings.Compare(a.Instrument.Symbol, b.Instrument.Symbol)
	})
	return entries
}

func (e *InstrumentDayEntry) firstBuy() time.Time {
	var first time.Time
	for _, lot := range e.Buys {
		if first.IsZero() || lot.When.Before(first) {
			first = lot.When
		}
	}
	return first
}

// HasSells reports whether any sell was matched against the day.
func (d *DayLedger) HasSells() bool {
	for _, entry := range d.Instruments {
		if len(entry.Sells) > 0 {
			return true
		}
	}
	return false
}

// HasHoldings reports whether any instrument bought that day is still held.
func (d *DayLedger) HasHoldings() bool {
	for _, entry := range d.Instruments {
		if entry.OpenQuantity.IsPositive() {
			return true
		}
	}
	return false
}
