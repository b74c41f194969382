package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	journal "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/stake"
	"github.com/google/subcommands"
)

type importCmd struct {
	through string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "ingest transactions exported from Stake" }
func (*importCmd) Usage() string {
	return `tj import [-through <date>] <file>...

Ingests transaction records saved from the Stake accountTransactions endpoint,
either a JSON array or one JSON object per line. Use "-" to read the standard
input.

Transactions already in the ledger are ignored, importing a file twice is
harmless. With -through, the sync checkpoint moves to the end of that day so
that the next sync starts after the imported period.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.through, "through", "", "Last day covered by the files. See the user manual for supported date formats.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one file is required")
		return subcommands.ExitUsageError
	}
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

	var through time.Time
	if c.through != "" {
		d, err := journal.ParseDate(c.through)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -through: %v\n", err)
			return subcommands.ExitUsageError
		}
		through = d.Add(1).In(in.Location)
	}

	var txs []journal.Transaction
	for _, name := range f.Args() {
		batch, err := decodeFile(name, in.Currency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		txs = append(txs, batch...)
	}

	res, err := in.Ingest(ctx, txs, through)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error ingesting: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d transactions, %d days in the ledger\n", res.Fetched, res.Ledger.Len())
	return subcommands.ExitSuccess
}

func decodeFile(name, currency string) ([]journal.Transaction, error) {
	if name == "-" {
		return stake.DecodeTransactions(os.Stdin, currency)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return stake.DecodeTransactions(f, currency)
}
