package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

type syncCmd struct {
	quiet bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "fetch new transactions from Stake and update the ledger" }
func (*syncCmd) Usage() string {
	return `tj sync [-q]

Fetches the transactions executed since the last sync, or since the epoch for
a new ledger, adds buys and matches sells against the oldest holdings, prices
the instruments still held and saves the ledger.

Nothing is saved if Stake cannot be reached. Requires a session token set via
-stake-token or $STAKE_SESSION_TOKEN.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.quiet, "q", false, "Do not print the account summary after the sync.")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if in.Fetcher == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", errNoToken)
		return subcommands.ExitUsageError
	}

	res, err := in.Sync(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing: %v\n", err)
		return subcommands.ExitFailure
	}
	if !c.quiet {
		v := res.View()
		printMarkdown(renderer.SummaryMarkdown(v.Summary, v.Currency))
	}
	return subcommands.ExitSuccess
}
