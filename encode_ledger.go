package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// LedgerFormatVersion is the version written by EncodeLedger.
const LedgerFormatVersion = 1

// Persisted shapes. Amounts are exact decimals in the ledger currency;
// profits are derived and never persisted.
type (
	ledgerJSON struct {
		Version        int        `json:"version"`
		Epoch          Date       `json:"epoch"`
		Currency       string     `json:"currency,omitempty"`
		Location       string     `json:"location,omitempty"`
		FetchedThrough *time.Time `json:"fetchedThrough,omitempty"`
		Days           []dayJSON  `json:"days"`
		Applied        []string   `json:"applied,omitempty"`
	}

	dayJSON struct {
		Date            Date             `json:"date"`
		StartingBalance *decimal.Decimal `json:"startingBalance,omitempty"`
		Instruments     []entryJSON      `json:"instruments"`
	}

	entryJSON struct {
		Instrument   Instrument      `json:"instrument"`
		OpenQuantity decimal.Decimal `json:"openQuantity"`
		Buys         []lotJSON       `json:"buys"`
		Sells        []lotJSON       `json:"sells,omitempty"`
	}

	// lotJSON is shared by buys and sells, Total is the cost or the proceeds.
	lotJSON struct {
		OrderID   string          `json:"orderId"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
		Quantity  decimal.Decimal `json:"quantity"`
		Total     decimal.Decimal `json:"total"`
		When      time.Time       `json:"when"`
	}
)

// EncodeLedger writes l as an indented JSON document.
func EncodeLedger(w io.Writer, l *Ledger) error {
	doc := ledgerJSON{
		Version:  LedgerFormatVersion,
		Epoch:    l.Epoch,
		Currency: l.Currency,
		Days:     make([]dayJSON, 0, l.Len()),
		Applied:  l.Fingerprints(),
	}
	if l.Location != nil {
		doc.Location = l.Location.String()
	}
	if !l.FetchedThrough.IsZero() {
		t := l.FetchedThrough.UTC()
		doc.FetchedThrough = &t
	}
	for _, day := range l.Days() {
		d := dayJSON{Date: day.Date, Instruments: make([]entryJSON, 0, len(day.Instruments))}
		if day.HasStartingBalance {
			v := day.StartingBalance.Decimal()
			d.StartingBalance = &v
		}
		for _, entry := range day.Entries() {
			e := entryJSON{
				Instrument:   entry.Instrument,
				OpenQuantity: entry.OpenQuantity.Decimal(),
				Buys:         make([]lotJSON, 0, len(entry.Buys)),
			}
			for _, lot := range entry.Buys {
				e.Buys = append(e.Buys, lotJSON{lot.OrderID, lot.UnitPrice.Decimal(), lot.Quantity.Decimal(), lot.TotalCost.Decimal(), lot.When.UTC()})
			}
			for _, fill := range entry.Sells {
				e.Sells = append(e.Sells, lotJSON{fill.OrderID, fill.UnitPrice.Decimal(), fill.Quantity.Decimal(), fill.Proceeds.Decimal(), fill.When.UTC()})
			}
			d.Instruments = append(d.Instruments, e)
		}
		doc.Days = append(doc.Days, d)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// DecodeLedger reads a ledger written by EncodeLedger.
//
// Missing fields take their zero value. A bare JSON array is read as the
// legacy list of day logs, see decodeLegacyLedger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return decodeLegacyLedger(data)
	}

	var doc ledgerJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid ledger: %w", err)
	}
	if doc.Version > LedgerFormatVersion {
		return nil, fmt.Errorf("unsupported ledger version %d, want at most %d", doc.Version, LedgerFormatVersion)
	}
	if doc.Epoch.IsZero() {
		return nil, fmt.Errorf("invalid ledger: missing \"epoch\"")
	}

	var loc *time.Location
	if doc.Location != "" {
		if loc, err = time.LoadLocation(doc.Location); err != nil {
			return nil, fmt.Errorf("invalid ledger \"location\": %w", err)
		}
	}
	l := NewLedger(doc.Epoch, doc.Currency, loc)
	if doc.FetchedThrough != nil {
		l.FetchedThrough = *doc.FetchedThrough
	}
	for _, key := range doc.Applied {
		l.seen[key] = struct{}{}
	}

	cur := doc.Currency
	for _, d := range doc.Days {
		i := d.Date.DaysSince(l.Epoch)
		if i < 0 {
			return nil, fmt.Errorf("invalid ledger: day %s is before epoch %s", d.Date, l.Epoch)
		}
		day := l.day(i)
		if d.StartingBalance != nil {
			day.StartingBalance = M(*d.StartingBalance, cur)
			day.HasStartingBalance = true
		}
		for _, e := range d.Instruments {
			entry := &InstrumentDayEntry{Instrument: e.Instrument, OpenQuantity: Q(e.OpenQuantity)}
			for _, b := range e.Buys {
				entry.Buys = append(entry.Buys, Lot{b.OrderID, M(b.UnitPrice, cur), Q(b.Quantity), M(b.Total, cur), b.When})
			}
			for _, s := range e.Sells {
				entry.Sells = append(entry.Sells, Fill{s.OrderID, M(s.UnitPrice, cur), Q(s.Quantity), M(s.Total, cur), s.When})
			}
			if entry.OpenQuantity.IsNegative() {
				return nil, fmt.Errorf("invalid ledger: %s on %s has negative \"openQuantity\"", e.Instrument.Symbol, d.Date)
			}
			day.Instruments[e.Instrument.Symbol] = entry
		}
	}
	return l, nil
}

// legacy shapes: an array of day logs, null for empty days.
type (
	legacyDay struct {
		Date    string                 `json:"date"`
		Symbols map[string]legacyEntry `json:"symbols"`
	}
	legacyEntry struct {
		Instrument       Instrument      `json:"instrument"`
		Buys             []legacyLot     `json:"buys"`
		Sells            []legacyLot     `json:"sells"`
		HoldingUnitCount decimal.Decimal `json:"holdingUnitCount"`
	}
	legacyLot struct {
		OrderID      string          `json:"orderId"`
		UnitPrice    decimal.Decimal `json:"unitPrice"`
		UnitQuantity decimal.Decimal `json:"unitQuantity"`
		TotalPrice   decimal.Decimal `json:"totalPrice"`
		Date         string          `json:"date"`
	}
)

// decodeLegacyLedger reads the array of day logs once kept by the browser
// dashboard. The epoch is derived from the first non empty day and its index.
// Amounts are in USD. Negative holding counts are read as zero.
func decodeLegacyLedger(data []byte) (*Ledger, error) {
	var days []*legacyDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("invalid legacy ledger: %w", err)
	}
	first := slices.IndexFunc(days, func(d *legacyDay) bool { return d != nil })
	if first < 0 {
		return nil, fmt.Errorf("invalid legacy ledger: no day")
	}
	date, err := legacyDate(days[first].Date)
	if err != nil {
		return nil, fmt.Errorf("invalid legacy ledger day %d \"date\": %w", first, err)
	}

	const cur = "USD"
	l := NewLedger(date.Add(-first), cur, nil)
	for i, d := range days {
		if d == nil {
			continue
		}
		day := l.day(i)
		for symbol, e := range d.Symbols {
			entry := &InstrumentDayEntry{Instrument: e.Instrument, OpenQuantity: Q(e.HoldingUnitCount)}
			if entry.OpenQuantity.IsNegative() {
				// the dashboard could oversell a day
				entry.OpenQuantity = Quantity{}
			}
			if entry.Instrument.Symbol == "" {
				entry.Instrument.Symbol = symbol
			}
			for _, b := range e.Buys {
				when, _ := time.Parse(time.RFC3339, b.Date)
				cost := b.TotalPrice.Abs()
				if cost.IsZero() {
					cost = b.UnitPrice.Mul(b.UnitQuantity)
				}
				entry.Buys = append(entry.Buys, Lot{b.OrderID, M(b.UnitPrice, cur), Q(b.UnitQuantity), M(cost, cur), when})
			}
			for _, s := range e.Sells {
				when, _ := time.Parse(time.RFC3339, s.Date)
				entry.Sells = append(entry.Sells, Fill{s.OrderID, M(s.UnitPrice, cur), Q(s.UnitQuantity), M(s.UnitPrice.Mul(s.UnitQuantity), cur), when})
			}
			day.Instruments[symbol] = entry
		}
	}
	return l, nil
}

// legacyDate reads the calendar day of an ISO timestamp as it was written,
// ignoring its offset.
func legacyDate(s string) (Date, error) {
	if len(s) < len(DateFormat) {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return ParseDate(s[:len(DateFormat)])
}
