package renderer

import (
	"slices"
	"strings"
	"testing"
	"time"

	journal "github.com/etnz/tradejournal"
	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

func usd(v float64) journal.Money { return journal.M(v, "USD") }

func tx(typ journal.TransactionType, order, symbol string, qty, price float64, when string) journal.Transaction {
	t, err := time.Parse("2006-01-02 15:04", when)
	if err != nil {
		panic(err)
	}
	amount := usd(price).Mul(journal.Q(qty))
	if typ == journal.Buy {
		amount = amount.Neg()
	}
	return journal.Transaction{
		OrderID:        order,
		Type:           typ,
		Instrument:     journal.Instrument{ID: "id-" + symbol, Symbol: symbol},
		FillPrice:      usd(price),
		FillQuantity:   journal.Q(qty),
		Amount:         amount,
		AccountAmount:  amount,
		AccountBalance: usd(1000).Add(amount),
		OccurredAt:     t,
	}
}

func view(t *testing.T, prices journal.Prices, unmatched int, txs ...journal.Transaction) journal.View {
	t.Helper()
	buys, sells := journal.Classify(txs)
	l, _ := journal.NewLedger(journal.NewDate(2024, time.January, 1), "USD", time.UTC).AddBuys(buys)
	l, _ = l.AddSells(sells)
	return journal.NewView(l, prices, unmatched)
}

// outline is what a reader sees of a rendered document: headings and tables.
type outline struct {
	headings []string
	tables   [][][]string // table, row, cell; the header is row 0
}

func parse(t *testing.T, doc string) outline {
	t.Helper()
	src := []byte(doc)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(src))

	var o outline
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			o.headings = append(o.headings, strings.Repeat("#", n.Level)+" "+plain(n, src))
			return ast.WalkSkipChildren, nil
		case *east.Table:
			o.tables = append(o.tables, nil)
		case *east.TableHeader, *east.TableRow:
			var row []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, plain(c, src))
			}
			o.tables[len(o.tables)-1] = append(o.tables[len(o.tables)-1], row)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walking the markdown: %v", err)
	}
	return o
}

// plain concatenates the text below n, dropping emphasis.
func plain(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(src))
		case *ast.String:
			sb.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func TestJournalMarkdown(t *testing.T) {
	v := view(t, journal.Prices{"X": usd(8)}, 0,
		tx(journal.Buy, "b1", "X", 10, 5, "2024-01-02 10:00"),
		tx(journal.Sell, "s1", "X", 4, 7, "2024-01-03 10:00"),
	)
	o := parse(t, JournalMarkdown(v))

	wantHeadings := []string{
		"# Trading Journal (USD)",
		"## January 2024",
		"### Week 1 (Jan 1)",
	}
	if diff := cmp.Diff(wantHeadings, o.headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	if len(o.tables) != 3 {
		t.Fatalf("got %d tables, want 3 (summary, month, week)", len(o.tables))
	}

	// Jan 2: 4 sold for 28 against 20, 6 held worth 48 against 30.
	week := o.tables[2]
	want := [][]string{
		{"Day", "Realised", "%", "Unrealised", "%", "Combined", "%"},
		{"Tue Jan 2", "+$8.00", "+40.00%", "+$18.00", "+60.00%", "+$26.00", "+52.00%"},
		{"X (6 open)", "+$8.00", "+40.00%", "+$18.00", "+60.00%", "+$26.00", "+52.00%"},
	}
	if diff := cmp.Diff(want, week); diff != "" {
		t.Errorf("week table mismatch (-want +got):\n%s", diff)
	}

	month := o.tables[1]
	if got := month[1][0]; got != "Total" {
		t.Errorf("first month row = %q, want Total", got)
	}
	if got := month[2][0]; got != "Week 1 (Jan 1)" {
		t.Errorf("second month row = %q, want the week", got)
	}
}

func TestJournalMarkdown_Columns(t *testing.T) {
	tests := []struct {
		name   string
		txs    []journal.Transaction
		prices journal.Prices
		header []string
	}{
		{
			name:   "holdings only",
			txs:    []journal.Transaction{tx(journal.Buy, "b1", "X", 10, 5, "2024-01-02 10:00")},
			prices: journal.Prices{"X": usd(4)},
			header: []string{"Day", "Unrealised", "%"},
		},
		{
			name: "sold out",
			txs: []journal.Transaction{
				tx(journal.Buy, "b1", "X", 10, 5, "2024-01-02 10:00"),
				tx(journal.Sell, "s1", "X", 10, 4, "2024-01-03 10:00"),
			},
			header: []string{"Day", "Realised", "%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parse(t, JournalMarkdown(view(t, tt.prices, 0, tt.txs...)))
			week := o.tables[len(o.tables)-1]
			if diff := cmp.Diff(tt.header, week[0]); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJournalMarkdown_NewestFirst(t *testing.T) {
	v := view(t, nil, 0,
		tx(journal.Buy, "b1", "X", 1, 5, "2024-01-02 10:00"),
		tx(journal.Buy, "b2", "X", 1, 5, "2024-02-13 10:00"),
		tx(journal.Sell, "s1", "X", 2, 6, "2024-02-14 10:00"),
	)
	o := parse(t, JournalMarkdown(v))
	feb := slices.Index(o.headings, "## February 2024")
	jan := slices.Index(o.headings, "## January 2024")
	if feb < 0 || jan < 0 || feb > jan {
		t.Errorf("months out of order: %v", o.headings)
	}
}

func TestJournalMarkdown_Warnings(t *testing.T) {
	doc := JournalMarkdown(view(t, nil, 3))
	o := parse(t, doc)
	if !slices.Contains(o.headings, "## Warnings") {
		t.Errorf("no warning section in %v", o.headings)
	}
	if !strings.Contains(doc, "3 sell transactions did not match") {
		t.Errorf("warning does not count the sells:\n%s", doc)
	}
	if !slices.Contains(o.headings, "## No Trades") {
		t.Errorf("empty journal not reported: %v", o.headings)
	}
}

func TestSummaryMarkdown(t *testing.T) {
	v := view(t, journal.Prices{"X": usd(8)}, 0,
		tx(journal.Buy, "b1", "X", 10, 5, "2024-01-02 10:00"),
		tx(journal.Sell, "s1", "X", 4, 7, "2024-01-03 10:00"),
	)
	o := parse(t, SummaryMarkdown(v.Summary, v.Currency))
	if diff := cmp.Diff([]string{"# Account Summary (USD)"}, o.headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{
		{"Starting Balance", "$1,000.00", ""},
		{"Realised Balance", "$1,008.00", ""},
		{"Realised Profit", "+$8.00", "+0.80%"},
		{"Unrealised Balance", "$1,026.00", ""},
		{"Unrealised Profit", "+$26.00", "+2.60%"},
	}
	if diff := cmp.Diff(want, o.tables[0]); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}
