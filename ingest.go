package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrFetch wraps errors of the brokerage while fetching transactions or prices.
	ErrFetch = errors.New("fetch failed")
	// ErrNoLedger is returned by Store.Load when nothing has been saved yet.
	ErrNoLedger = errors.New("no ledger")
	// ErrCurrency is returned when transactions or prices are not in the
	// currency of the ledger.
	ErrCurrency = errors.New("currency mismatch")
)

// Store persists the ledger between ingestion cycles.
type Store interface {
	Load(ctx context.Context) (*Ledger, error)
	Save(ctx context.Context, l *Ledger) error
}

// Fetcher retrieves the transactions executed in [from, to).
type Fetcher interface {
	Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error)
}

// PriceSource retrieves the last traded price of symbols.
// Symbols without a price are absent from the result.
type PriceSource interface {
	Prices(ctx context.Context, symbols []string) (Prices, error)
}

// Ingestor runs ingestion cycles: load, fetch, classify, add buys, add sells,
// price, recompute, save.
//
// An Ingestor must not run two cycles at the same time on the same Store.
type Ingestor struct {
	Store   Store
	Fetcher Fetcher     // only used by Sync
	Prices  PriceSource // optional, without it holdings are unpriced
	Log     zerolog.Logger

	// Used to create the ledger when the store has none.
	Epoch    Date
	Currency string
	Location *time.Location

	Now func() time.Time // defaults to time.Now
}

// Result is the outcome of an ingestion cycle.
type Result struct {
	Ledger    *Ledger // recomputed ledger as saved
	Summary   AccountSummary
	Prices    Prices
	Fetched   int // transactions received
	Skipped   int // buys dated before the epoch
	Unmatched []UnmatchedSell
}

// View returns the presentation of the result.
func (r Result) View() View {
	return View{
		Months:    Aggregate(r.Ledger),
		Summary:   r.Summary,
		Unmatched: len(r.Unmatched),
		Currency:  r.Ledger.Currency,
	}
}

func (in *Ingestor) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

// load returns the persisted ledger or a new one.
func (in *Ingestor) load(ctx context.Context) (*Ledger, error) {
	l, err := in.Store.Load(ctx)
	if errors.Is(err, ErrNoLedger) {
		in.Log.Info().Stringer("epoch", in.Epoch).Msg("starting a new ledger")
		return NewLedger(in.Epoch, in.Currency, in.Location), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load ledger: %w", err)
	}
	return l, nil
}

// Sync fetches the transactions executed since the last checkpoint and
// ingests them.
//
// On a fetch failure nothing is saved and the error wraps ErrFetch.
func (in *Ingestor) Sync(ctx context.Context) (Result, error) {
	l, err := in.load(ctx)
	if err != nil {
		return Result{}, err
	}
	from := l.FetchedThrough
	if from.IsZero() {
		from = l.Epoch.In(l.Location)
	}
	to := in.now()

	in.Log.Debug().Time("from", from).Time("to", to).Msg("fetching transactions")
	txs, err := in.Fetcher.Transactions(ctx, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("cannot fetch transactions: %w: %w", ErrFetch, err)
	}
	return in.apply(ctx, l, txs, to)
}

// Ingest ingests txs as if they had been fetched up to through. A zero through
// keeps the current checkpoint.
func (in *Ingestor) Ingest(ctx context.Context, txs []Transaction, through time.Time) (Result, error) {
	l, err := in.load(ctx)
	if err != nil {
		return Result{}, err
	}
	return in.apply(ctx, l, txs, through)
}

func (in *Ingestor) apply(ctx context.Context, l *Ledger, txs []Transaction, through time.Time) (Result, error) {
	res := Result{Fetched: len(txs)}
	for _, tx := range txs {
		if err := checkCurrency(l.Currency, tx.FillPrice, tx.AccountAmount, tx.AccountBalance); err != nil {
			return Result{}, fmt.Errorf("cannot ingest order %q of %s: %w", tx.OrderID, tx.Instrument.Symbol, err)
		}
	}

	buys, sells := Classify(txs)
	l, res.Skipped = l.AddBuys(buys)
	l, res.Unmatched = l.AddSells(sells)
	if res.Skipped > 0 {
		in.Log.Warn().Int("count", res.Skipped).Stringer("epoch", l.Epoch).Msg("buys before the ledger epoch were skipped")
	}
	if n := len(res.Unmatched); n > 0 {
		in.Log.Warn().Int("count", n).Msgf("Found %d unmatched sell transactions", n)
	}

	res.Prices = Prices{}
	if symbols := l.HoldingSymbols(); in.Prices != nil && len(symbols) > 0 {
		prices, err := in.Prices.Prices(ctx, symbols)
		if err != nil {
			return Result{}, fmt.Errorf("cannot fetch prices: %w: %w", ErrFetch, err)
		}
		for symbol, p := range prices {
			if err := checkCurrency(l.Currency, p); err != nil {
				return Result{}, fmt.Errorf("cannot price %s: %w", symbol, err)
			}
		}
		res.Prices = prices
	}

	if through.After(l.FetchedThrough) {
		l.FetchedThrough = through
	}
	res.Ledger, res.Summary = Recompute(l, res.Prices)

	if err := in.Store.Save(ctx, res.Ledger); err != nil {
		return Result{}, fmt.Errorf("cannot save ledger: %w", err)
	}
	in.Log.Info().
		Int("fetched", res.Fetched).
		Int("buys", len(buys)).
		Int("sells", len(sells)).
		Int("days", res.Ledger.Len()).
		Msg("ingestion completed")
	return res, nil
}

// checkCurrency returns an ErrCurrency error if an amount is in another
// currency than want. Amounts without currency, and a ledger without one,
// always pass.
func checkCurrency(want string, amounts ...Money) error {
	if want == "" {
		return nil
	}
	for _, m := range amounts {
		if c := m.Currency(); c != "" && c != want {
			return fmt.Errorf("%w: got %s, the ledger is in %s", ErrCurrency, c, want)
		}
	}
	return nil
}
