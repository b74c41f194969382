package renderer

import (
	"bytes"
	"fmt"

	journal "github.com/etnz/tradejournal"
	md "github.com/nao1215/markdown"
)

// JournalMarkdown renders the whole journal: the account summary, then every
// month from the latest, each broken down by week and day.
func JournalMarkdown(v journal.View) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Trading Journal (%s)", v.Currency))
	doc.Table(summaryTable(v.Summary))

	if v.Unmatched > 0 {
		doc.H2("Warnings")
		doc.PlainText(md.Bold(fmt.Sprintf("%d sell transactions did not match any open position.", v.Unmatched)))
	}

	if len(v.Months) == 0 {
		doc.H2("No Trades")
		doc.PlainText("The ledger has no trading day yet.")
		return doc.String()
	}

	for _, m := range v.Months {
		doc.H2(m.Start.Format("January 2006"))
		cols := columnsFor(m.HasSells, m.HasHoldings)
		table := cols.table("Week")
		table.Rows = append(table.Rows, cols.row(md.Bold("Total"), m.Profit))
		for _, w := range m.Weeks {
			table.Rows = append(table.Rows, cols.row(weekLabel(w), w.Profit))
		}
		doc.Table(table)

		for _, w := range m.Weeks {
			doc.H3(weekLabel(w))
			doc.Table(weekTable(w))
		}
	}

	return doc.String()
}

func weekLabel(w *journal.WeekBucket) string {
	return fmt.Sprintf("Week %d (%s)", w.WeekOfMonth, w.Start.Format("Jan 2"))
}

// weekTable lists one row per day and one row per instrument traded that day.
func weekTable(w *journal.WeekBucket) md.TableSet {
	cols := columnsFor(w.HasSells, w.HasHoldings)
	table := cols.table("Day")
	for _, d := range w.Days {
		table.Rows = append(table.Rows, cols.row(md.Bold(d.Date.Format("Mon Jan 2")), d.Profit))
		for _, e := range d.Entries() {
			label := e.Instrument.Symbol
			if e.OpenQuantity.IsPositive() {
				label = fmt.Sprintf("%s (%s open)", label, e.OpenQuantity)
			}
			table.Rows = append(table.Rows, cols.row(label, e.Profit))
		}
	}
	return table
}

// columns decides which profit figures are worth a column: realised figures
// need a sell, unrealised ones need an open position.
type columns struct {
	realised, unrealised bool
}

func columnsFor(hasSells, hasHoldings bool) columns {
	return columns{realised: hasSells, unrealised: hasHoldings}
}

func (c columns) table(first string) md.TableSet {
	t := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft},
		Header:    []string{first},
	}
	add := func(header string) {
		t.Header = append(t.Header, header, "%")
		t.Alignment = append(t.Alignment, md.AlignRight, md.AlignRight)
	}
	if c.realised {
		add("Realised")
	}
	if c.unrealised {
		add("Unrealised")
	}
	if c.realised && c.unrealised {
		add("Combined")
	}
	if !c.realised && !c.unrealised {
		t.Header = append(t.Header, "Cost")
		t.Alignment = append(t.Alignment, md.AlignRight)
	}
	return t
}

func (c columns) row(label string, p journal.Profit) []string {
	row := []string{label}
	if c.realised {
		row = append(row, p.RealisedProfit().SignedString(), p.RealisedPercent().SignedString())
	}
	if c.unrealised {
		row = append(row, p.UnrealisedProfit.SignedString(), p.UnrealisedPercent().SignedString())
	}
	if c.realised && c.unrealised {
		row = append(row, p.CombinedProfit().SignedString(), p.CombinedPercent().SignedString())
	}
	if !c.realised && !c.unrealised {
		row = append(row, p.CombinedCost().String())
	}
	return row
}
