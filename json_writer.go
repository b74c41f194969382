package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter helps construct a JSON object with a specific field order.
// Its zero value is ready to use.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Embed appends the fields from a raw JSON object into the current JSON
// object being built. It strips the outer braces of the embedded JSON.
func (w *jsonObjectWriter) Embed(rawJSON []byte) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	trimmed := bytes.TrimSpace(rawJSON)
	if len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if len(bytes.TrimSpace(trimmed)) > 0 {
		w.Write(trimmed)
		w.WriteString(",")
	}
	return w
}

// EmbedFrom marshals v into a JSON object and embeds its fields.
func (w *jsonObjectWriter) EmbedFrom(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	rawJSON, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal for embedding: %w", err)
		return w
	}
	return w.Embed(rawJSON)
}

// Append adds a new key-value pair to the JSON object. The value is marshaled
// to JSON using `json.Marshal`.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}

	valBytes, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}

	fmt.Fprintf(w, "%q:", key)
	w.Write(valBytes)
	w.WriteString(",")
	return w
}

// Optional appends a key-value pair only if value is not its type's zero value.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON finalizes the JSON object and returns it.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}

	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')

	return final, nil
}

// MarshalJSON writes the profit figures followed by the derived ones.
func (p Profit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("realisedCost", p.RealisedCost)
	w.Append("realisedGain", p.RealisedGain)
	w.Append("realisedProfit", p.RealisedProfit())
	w.Append("realisedPercent", p.RealisedPercent())
	w.Append("unrealisedCost", p.UnrealisedCost)
	w.Append("unrealisedGain", p.UnrealisedGain)
	w.Append("unrealisedProfit", p.UnrealisedProfit)
	w.Append("unrealisedPercent", p.UnrealisedPercent())
	w.Append("combinedProfit", p.CombinedProfit())
	w.Append("combinedPercent", p.CombinedPercent())
	return w.MarshalJSON()
}

// MarshalJSON writes the summary, omitting balances when the ledger has no
// starting balance.
func (s AccountSummary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	if s.HasStartingBalance {
		w.Append("startingBalance", s.StartingBalance)
		w.Append("realisedBalance", s.RealisedBalance)
		w.Append("unrealisedBalance", s.UnrealisedBalance)
	}
	w.Append("realisedProfit", s.RealisedProfit)
	w.Append("realisedPercent", s.RealisedPercent)
	w.Append("unrealisedProfit", s.UnrealisedProfit)
	w.Append("unrealisedPercent", s.UnrealisedPercent)
	return w.MarshalJSON()
}

// MarshalJSON writes the bucket with its profit figures inlined.
func (w *WeekBucket) MarshalJSON() ([]byte, error) {
	var o jsonObjectWriter
	o.Append("start", w.Start)
	o.Append("weekOfMonth", w.WeekOfMonth)
	o.EmbedFrom(w.Profit)
	o.Optional("hasHoldings", w.HasHoldings)
	o.Optional("hasSells", w.HasSells)
	o.Append("days", w.Days)
	return o.MarshalJSON()
}

// MarshalJSON writes the bucket with its profit figures inlined.
func (m *MonthBucket) MarshalJSON() ([]byte, error) {
	var o jsonObjectWriter
	o.Append("start", m.Start)
	o.EmbedFrom(m.Profit)
	o.Optional("hasHoldings", m.HasHoldings)
	o.Optional("hasSells", m.HasSells)
	o.Append("weeks", m.Weeks)
	return o.MarshalJSON()
}

// MarshalJSON writes the day with its profit figures inlined and its
// instruments ordered by earliest buy.
func (d *DayLedger) MarshalJSON() ([]byte, error) {
	var o jsonObjectWriter
	o.Append("date", d.Date)
	if d.HasStartingBalance {
		o.Append("startingBalance", d.StartingBalance)
	}
	o.EmbedFrom(d.Profit)
	o.Append("instruments", d.Entries())
	return o.MarshalJSON()
}

// MarshalJSON writes the entry with its profit figures inlined.
func (e *InstrumentDayEntry) MarshalJSON() ([]byte, error) {
	var o jsonObjectWriter
	o.Append("instrument", e.Instrument)
	o.Append("openQuantity", e.OpenQuantity)
	o.EmbedFrom(e.Profit)
	o.Append("buys", e.Buys)
	o.Optional("sells", e.Sells)
	return o.MarshalJSON()
}
