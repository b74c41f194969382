package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

type reportCmd struct {
	live     bool
	json     bool
	markdown bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display the trading journal" }
func (*reportCmd) Usage() string {
	return `tj report [-live] [-json | -markdown]

Displays the account summary and the profits of every month, week, day and
instrument, most recent first.

Realised profits come from sells matched against the oldest buys. Unrealised
profits value the open positions: with -live at the last traded price from
Stake, otherwise they are left at zero.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.live, "live", false, "Price open positions with the last traded price.")
	f.BoolVar(&c.json, "json", false, "Print the journal as JSON.")
	f.BoolVar(&c.markdown, "markdown", false, "Print raw markdown instead of rendering it for the terminal.")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	s, closeStore, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	in, err := newIngestor(s, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.live && in.Prices == nil {
		fmt.Fprintf(os.Stderr, "Error: -live: %v\n", errNoToken)
		return subcommands.ExitUsageError
	}

	v, err := loadView(ctx, in, c.live)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	switch {
	case c.json:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding the journal: %v\n", err)
			return subcommands.ExitFailure
		}
	case c.markdown:
		fmt.Print(renderer.JournalMarkdown(v))
	default:
		printMarkdown(renderer.JournalMarkdown(v))
	}
	return subcommands.ExitSuccess
}
