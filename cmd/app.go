// Package cmd implements the tj command line: syncing the trading journal
// from the brokerage and reporting on it.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	journal "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/logger"
	"github.com/etnz/tradejournal/stake"
	"github.com/etnz/tradejournal/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&syncCmd{}, "journal")
	c.Register(&importCmd{}, "journal")
	c.Register(&reportCmd{}, "journal")
	c.Register(&summaryCmd{}, "journal")
	c.Register(&historyCmd{}, "journal")

	c.Register(&serveCmd{}, "service")
	c.Register(&assistCmd{}, "service")
}

// Commands lists a fresh instance of every subcommand, for completion.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&syncCmd{}, &importCmd{}, &reportCmd{}, &summaryCmd{}, &historyCmd{},
		&serveCmd{}, &assistCmd{},
	}
}

// Environment variables read when the matching flag is not set.
const (
	EnvLedger       = "TJ_LEDGER"
	EnvDB           = "TJ_DB"
	EnvLogLevel     = "TJ_LOG_LEVEL"
	EnvEpoch        = "TJ_EPOCH"
	EnvCurrency     = "TJ_CURRENCY"
	EnvLocation     = "TJ_LOCATION"
	EnvStakeToken   = "STAKE_SESSION_TOKEN"
	EnvStakeURL     = "STAKE_API_URL"
	defaultLedger   = "ledger.json"
	defaultLocation = "America/New_York"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	ledgerFile = flag.String("ledger", "", "Path to the ledger file. Defaults to $"+EnvLedger+" or "+defaultLedger+".")
	dbFile     = flag.String("db", "", "Path to a SQLite database keeping ledger snapshots, used instead of -ledger. Defaults to $"+EnvDB+".")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error. Defaults to $"+EnvLogLevel+" or info.")
	epochFlag  = flag.String("epoch", "", "First day of a new ledger. Defaults to $"+EnvEpoch+" or January 1st of this year.")
	currency   = flag.String("currency", "", "Currency of the account. Defaults to $"+EnvCurrency+", the ledger currency or USD.")
	location   = flag.String("location", "", "Time zone of trading days. Defaults to $"+EnvLocation+" or "+defaultLocation+".")
	stakeToken = flag.String("stake-token", "", "Stake session token. Defaults to $"+EnvStakeToken+".")
	stakeURL   = flag.String("stake-url", "", "Stake API base URL. Defaults to $"+EnvStakeURL+" or the production API.")
)

// setting returns the flag value, or the environment variable, or def.
func setting(flagValue, env, def string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

func newLogger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:  setting(*logLevel, EnvLogLevel, "info"),
		Pretty: true,
	})
}

// parseEpoch parses the epoch setting, an empty one is January 1st of the
// year of today.
func parseEpoch(s string, today journal.Date) (journal.Date, error) {
	if s == "" {
		return journal.NewDate(today.Year(), time.January, 1), nil
	}
	d, err := journal.ParseDate(s)
	if err != nil {
		return journal.Date{}, fmt.Errorf("invalid epoch: %w", err)
	}
	return d, nil
}

// openStore opens the SQLite store when a database is configured, the
// ledger file otherwise. closeStore must be called when done.
func openStore() (s journal.Store, closeStore func() error, err error) {
	if db := setting(*dbFile, EnvDB, ""); db != "" {
		sq, err := store.OpenSQLite(db)
		if err != nil {
			return nil, nil, err
		}
		return sq, sq.Close, nil
	}
	return store.File{Path: setting(*ledgerFile, EnvLedger, defaultLedger)}, func() error { return nil }, nil
}

// newStake returns the Stake client reading amounts in cur, or nil without a
// session token.
func newStake(cur string, log zerolog.Logger) *stake.Client {
	token := setting(*stakeToken, EnvStakeToken, "")
	if token == "" {
		return nil
	}
	return stake.New(stake.Config{
		URL:      setting(*stakeURL, EnvStakeURL, stake.DefaultURL),
		Token:    token,
		Currency: cur,
		Log:      log,
	})
}

// ledgerCurrency returns the currency of the stored ledger, or the configured
// one when nothing is stored yet. A configured currency must match the stored
// ledger.
func ledgerCurrency(ctx context.Context, s journal.Store) (string, error) {
	cur := setting(*currency, EnvCurrency, "")
	l, err := s.Load(ctx)
	switch {
	case errors.Is(err, journal.ErrNoLedger):
		if cur == "" {
			cur = "USD"
		}
		return cur, nil
	case err != nil:
		return "", fmt.Errorf("could not load ledger: %w", err)
	case l.Currency == "":
		if cur == "" {
			cur = "USD"
		}
		return cur, nil
	case cur != "" && cur != l.Currency:
		return "", fmt.Errorf("%w: the ledger is in %s, not %s", journal.ErrCurrency, l.Currency, cur)
	}
	return l.Currency, nil
}

// newIngestor wires the ingestion pipeline from the global settings, in the
// currency of the stored ledger.
// Without a Stake session token, the ingestor can neither sync nor price.
func newIngestor(s journal.Store, log zerolog.Logger) (*journal.Ingestor, error) {
	epoch, err := parseEpoch(setting(*epochFlag, EnvEpoch, ""), journal.Today())
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(setting(*location, EnvLocation, defaultLocation))
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	cur, err := ledgerCurrency(context.Background(), s)
	if err != nil {
		return nil, err
	}
	in := &journal.Ingestor{
		Store:    s,
		Log:      log,
		Epoch:    epoch,
		Currency: cur,
		Location: loc,
	}
	if c := newStake(cur, log); c != nil {
		in.Fetcher = c
		in.Prices = c
	}
	return in, nil
}

var errNoToken = errors.New("no Stake session token, set -stake-token or $" + EnvStakeToken)

// loadView returns the view of the stored ledger. Holdings are priced when
// live is set and a price source is available.
func loadView(ctx context.Context, in *journal.Ingestor, live bool) (journal.View, error) {
	l, err := in.Store.Load(ctx)
	if errors.Is(err, journal.ErrNoLedger) {
		l = journal.NewLedger(in.Epoch, in.Currency, in.Location)
	} else if err != nil {
		return journal.View{}, fmt.Errorf("could not load ledger: %w", err)
	}

	var prices journal.Prices
	if live && in.Prices != nil {
		if symbols := l.HoldingSymbols(); len(symbols) > 0 {
			prices, err = in.Prices.Prices(ctx, symbols)
			if err != nil {
				return journal.View{}, fmt.Errorf("%w: %w", journal.ErrFetch, err)
			}
		}
	}
	return journal.NewView(l, prices, 0), nil
}

// printMarkdown renders md for the terminal, or prints it as is if it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
