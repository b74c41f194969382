package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tradejournal/store"
	"github.com/google/subcommands"
)

type historyCmd struct {
	limit int
	prune int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the ledger snapshots of the database" }
func (*historyCmd) Usage() string {
	return `tj history [-n <count>] [-prune <keep>]

Lists the ledger snapshots saved in the SQLite database, most recent first.
With -prune, only the most recent <keep> snapshots are kept.

Requires -db or $TJ_DB.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Number of snapshots to list.")
	f.IntVar(&c.prune, "prune", 0, "Delete all but the most recent snapshots.")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db := setting(*dbFile, EnvDB, "")
	if db == "" {
		fmt.Fprintln(os.Stderr, "Error: history requires a database, set -db or $"+EnvDB)
		return subcommands.ExitUsageError
	}
	s, err := store.OpenSQLite(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	if c.prune > 0 {
		n, err := s.Prune(ctx, c.prune)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Deleted %d snapshots\n", n)
	}

	snapshots, err := s.History(ctx, c.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, snap := range snapshots {
		through := "never"
		if !snap.FetchedThrough.IsZero() {
			through = snap.FetchedThrough.Format("2006-01-02 15:04")
		}
		fmt.Printf("%5d  saved %s  synced through %s\n", snap.ID, snap.SavedAt.Format("2006-01-02 15:04:05"), through)
	}
	return subcommands.ExitSuccess
}
