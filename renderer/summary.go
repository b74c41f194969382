// Package renderer turns journal views into markdown documents.
package renderer

import (
	"bytes"
	"fmt"

	journal "github.com/etnz/tradejournal"
	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders the account summary alone.
func SummaryMarkdown(s journal.AccountSummary, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Account Summary (%s)", currency))
	doc.Table(summaryTable(s))

	return doc.String()
}

func summaryTable(s journal.AccountSummary) md.TableSet {
	start := "n/a"
	if s.HasStartingBalance {
		start = s.StartingBalance.String()
	}
	return md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{
			md.Bold("Starting Balance"),
			md.Bold(start),
			"",
		},
		Rows: [][]string{
			{"Realised Balance", s.RealisedBalance.String(), ""},
			{"Realised Profit", s.RealisedProfit.SignedString(), s.RealisedPercent.SignedString()},
			{"Unrealised Balance", s.UnrealisedBalance.String(), ""},
			{"Unrealised Profit", s.UnrealisedProfit.SignedString(), s.UnrealisedPercent.SignedString()},
		},
	}
}
