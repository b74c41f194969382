package journal

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeFetcher struct {
	txs      []Transaction
	err      error
	from, to []time.Time
}

func (f *fakeFetcher) Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	f.from, f.to = append(f.from, from), append(f.to, to)
	if f.err != nil {
		return nil, f.err
	}
	var res []Transaction
	for _, tx := range f.txs {
		if !tx.OccurredAt.Before(from) && tx.OccurredAt.Before(to) {
			res = append(res, tx)
		}
	}
	return res, nil
}

type fakePrices struct {
	prices  Prices
	err     error
	symbols []string
}

func (f *fakePrices) Prices(ctx context.Context, symbols []string) (Prices, error) {
	f.symbols = symbols
	return f.prices, f.err
}

func newTestIngestor(store Store, fetcher Fetcher, prices PriceSource, now string) *Ingestor {
	return &Ingestor{
		Store:    store,
		Fetcher:  fetcher,
		Prices:   prices,
		Log:      zerolog.New(io.Discard),
		Epoch:    epoch2024,
		Currency: "USD",
		Now:      func() time.Time { return at(now) },
	}
}

func TestIngestor_Sync(t *testing.T) {
	ctx := context.Background()
	store := new(MemoryStore)
	fetcher := &fakeFetcher{txs: []Transaction{
		buy("b1", "X", 10, 5, "2024-01-02 10:00"),
		sell("s1", "X", 20, 7, "2024-01-03 10:00"),
		buy("b2", "X", 5, 6, "2024-01-10 10:00"),
	}}
	prices := &fakePrices{prices: Prices{"X": USD(8)}}

	in := newTestIngestor(store, fetcher, prices, "2024-01-05 00:00")
	res, err := in.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got, want := fetcher.from[0], epoch2024.In(nil); !got.Equal(want) {
		t.Errorf("first fetch from %v, want %v", got, want)
	}
	if res.Fetched != 2 {
		t.Errorf("Fetched = %d, want 2", res.Fetched)
	}
	if len(res.Unmatched) != 1 {
		t.Errorf("Unmatched = %d, want 1", len(res.Unmatched))
	}
	if len(prices.symbols) != 0 {
		t.Errorf("prices asked for %v while nothing is held", prices.symbols)
	}
	assertMoney(t, "RealisedProfit", res.Summary.RealisedProfit, 20)

	// resume from the checkpoint
	in.Now = func() time.Time { return at("2024-01-12 00:00") }
	res, err = in.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if got, want := fetcher.from[1], at("2024-01-05 00:00"); !got.Equal(want) {
		t.Errorf("second fetch from %v, want %v", got, want)
	}
	if res.Fetched != 1 || len(res.Unmatched) != 0 {
		t.Errorf("second Sync() fetched %d, unmatched %d, want 1, 0", res.Fetched, len(res.Unmatched))
	}
	if len(prices.symbols) != 1 || prices.symbols[0] != "X" {
		t.Errorf("prices asked for %v, want [X]", prices.symbols)
	}
	assertMoney(t, "UnrealisedProfit", res.Summary.UnrealisedProfit, 30) // 20 realised + 10 unrealised

	saved, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !saved.FetchedThrough.Equal(at("2024-01-12 00:00")) {
		t.Errorf("FetchedThrough = %v, want 2024-01-12", saved.FetchedThrough)
	}
	if got := res.View().Unmatched; got != 0 {
		t.Errorf("View().Unmatched = %d, want 0", got)
	}
}

func TestIngestor_FetchFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		prices  *fakePrices
	}{
		{"transactions", &fakeFetcher{err: boom}, &fakePrices{}},
		{"prices", &fakeFetcher{txs: []Transaction{buy("b1", "X", 1, 1, "2024-01-02 10:00")}}, &fakePrices{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MemoryStore)
			in := newTestIngestor(store, tt.fetcher, tt.prices, "2024-01-05 00:00")
			_, err := in.Sync(ctx)
			if !errors.Is(err, ErrFetch) || !errors.Is(err, boom) {
				t.Errorf("Sync() error = %v, want ErrFetch wrapping boom", err)
			}
			if store.Saves() != 0 {
				t.Errorf("store saved %d times after a fetch failure", store.Saves())
			}
			if _, err := store.Load(ctx); !errors.Is(err, ErrNoLedger) {
				t.Errorf("Load() error = %v, want ErrNoLedger", err)
			}
		})
	}
}

func TestIngestor_IngestTwice(t *testing.T) {
	ctx := context.Background()
	store := new(MemoryStore)
	in := newTestIngestor(store, nil, nil, "2024-02-01 00:00")
	batch := []Transaction{
		buy("b1", "X", 10, 5, "2024-01-02 10:00"),
		sell("s1", "X", 4, 6, "2024-01-03 10:00"),
	}

	first, err := in.Ingest(ctx, batch, time.Time{})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	second, err := in.Ingest(ctx, batch, time.Time{})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !first.Summary.RealisedProfit.Equal(second.Summary.RealisedProfit) {
		t.Errorf("re-ingestion changed realised profit from %v to %v", first.Summary.RealisedProfit, second.Summary.RealisedProfit)
	}
	assertQuantity(t, "open", second.Ledger.Day(1).Instruments["X"].OpenQuantity, 6)
	if store.Saves() != 2 {
		t.Errorf("Saves() = %d, want 2", store.Saves())
	}
}

// inAUD returns tx with its amounts in AUD.
func inAUD(tx Transaction) Transaction {
	aud := func(m Money) Money { return M(m.Decimal(), "AUD") }
	tx.FillPrice = aud(tx.FillPrice)
	tx.Amount = aud(tx.Amount)
	tx.AccountAmount = aud(tx.AccountAmount)
	tx.AccountBalance = aud(tx.AccountBalance)
	return tx
}

func TestIngestor_CurrencyMismatch(t *testing.T) {
	ctx := context.Background()
	b1 := buy("b1", "X", 10, 5, "2024-01-02 10:00")
	tests := []struct {
		name   string
		txs    []Transaction
		prices *fakePrices
	}{
		{"transaction", []Transaction{inAUD(buy("b2", "X", 1, 5, "2024-01-03 10:00"))}, nil},
		{"price", nil, &fakePrices{prices: Prices{"X": M(8, "AUD")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MemoryStore)
			if err := store.Save(ctx, NewLedger(epoch2024, "USD", nil)); err != nil {
				t.Fatal(err)
			}
			in := newTestIngestor(store, nil, nil, "2024-02-01 00:00")
			in.Currency = "AUD" // only used for new ledgers
			if _, err := in.Ingest(ctx, []Transaction{b1}, time.Time{}); err != nil {
				t.Fatalf("Ingest() of a USD buy error = %v", err)
			}

			if tt.prices != nil {
				in.Prices = tt.prices
			}
			_, err := in.Ingest(ctx, tt.txs, time.Time{})
			if !errors.Is(err, ErrCurrency) {
				t.Fatalf("Ingest() error = %v, want ErrCurrency", err)
			}
			if store.Saves() != 2 {
				t.Errorf("Saves() = %d, want 2, nothing saved after the mismatch", store.Saves())
			}

			l, err := store.Load(ctx)
			if err != nil {
				t.Fatal(err)
			}
			v := NewView(l, nil, 0)
			if len(v.Months) != 1 || v.Currency != "USD" {
				t.Errorf("stored ledger view = %+v, want one USD month", v)
			}
		})
	}
}

type failingStore struct{ MemoryStore }

func (s *failingStore) Load(ctx context.Context) (*Ledger, error) {
	return nil, errors.New("disk on fire")
}

func TestIngestor_LoadFailure(t *testing.T) {
	in := newTestIngestor(new(failingStore), &fakeFetcher{}, nil, "2024-01-05 00:00")
	if _, err := in.Sync(context.Background()); err == nil || errors.Is(err, ErrFetch) {
		t.Errorf("Sync() error = %v, want a load error", err)
	}
}
