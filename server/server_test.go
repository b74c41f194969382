package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	journal "github.com/etnz/tradejournal"
)

type fetcher struct {
	txs     []journal.Transaction
	err     error
	entered chan struct{} // closed when Transactions is called, if not nil
	release chan struct{} // Transactions waits on it, if not nil
}

func (f *fetcher) Transactions(ctx context.Context, from, to time.Time) ([]journal.Transaction, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	return f.txs, f.err
}

func newTestServer(t *testing.T, f journal.Fetcher) (*Server, *httptest.Server) {
	t.Helper()
	in := &journal.Ingestor{
		Store:    new(journal.MemoryStore),
		Fetcher:  f,
		Log:      zerolog.New(io.Discard),
		Epoch:    journal.NewDate(2024, time.January, 1),
		Currency: "USD",
		Now:      func() time.Time { return time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC) },
	}
	srv := New(Config{Log: zerolog.New(io.Discard), Ingestor: in})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func trade(typ journal.TransactionType, order string, qty, price float64, day int) journal.Transaction {
	amount := journal.M(price, "USD").Mul(journal.Q(qty))
	if typ == journal.Buy {
		amount = amount.Neg()
	}
	return journal.Transaction{
		OrderID:        order,
		Type:           typ,
		Instrument:     journal.Instrument{ID: "1", Symbol: "X", Name: "X Inc."},
		FillPrice:      journal.M(price, "USD"),
		FillQuantity:   journal.Q(qty),
		Amount:         amount,
		AccountAmount:  amount,
		AccountBalance: journal.M(1000, "USD").Add(amount),
		OccurredAt:     time.Date(2024, time.January, day, 15, 0, 0, 0, time.UTC),
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
}

func TestServer_SyncAndRead(t *testing.T) {
	_, ts := newTestServer(t, &fetcher{txs: []journal.Transaction{
		trade(journal.Buy, "b1", 10, 5, 2),
		trade(journal.Sell, "s1", 10, 7, 3),
		trade(journal.Sell, "s2", 5, 7, 4), // nothing left to sell
	}})

	// before any sync the journal is empty
	resp, err := http.Get(ts.URL + "/api/journal")
	if err != nil {
		t.Fatal(err)
	}
	var empty struct {
		Months []json.RawMessage `json:"months"`
	}
	decode(t, resp, &empty)
	if len(empty.Months) != 0 {
		t.Errorf("journal before sync has %d months", len(empty.Months))
	}

	resp, err = http.Post(ts.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/sync status = %d", resp.StatusCode)
	}
	var synced struct {
		Fetched   int `json:"fetched"`
		Unmatched int `json:"unmatched"`
	}
	decode(t, resp, &synced)
	if synced.Fetched != 3 || synced.Unmatched != 1 {
		t.Errorf("sync = %+v, want 3 fetched, 1 unmatched", synced)
	}

	resp, err = http.Get(ts.URL + "/api/summary")
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		Summary struct {
			RealisedProfit struct {
				Amount float64 `json:"amount"`
			} `json:"realisedProfit"`
			RealisedPercent float64 `json:"realisedPercent"`
		} `json:"summary"`
		Unmatched int `json:"unmatched"`
	}
	decode(t, resp, &summary)
	if summary.Summary.RealisedProfit.Amount != 20 || summary.Summary.RealisedPercent != 2 || summary.Unmatched != 1 {
		t.Errorf("summary = %+v, want +20 (2%%) and 1 unmatched", summary)
	}
}

func TestServer_SyncBusy(t *testing.T) {
	f := &fetcher{entered: make(chan struct{}), release: make(chan struct{})}
	srv, ts := newTestServer(t, f)

	done := make(chan error)
	go func() {
		_, err := srv.Sync(context.Background())
		done <- err
	}()
	<-f.entered

	resp, err := http.Post(ts.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("overlapping POST /api/sync status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	close(f.release)
	if err := <-done; err != nil {
		t.Errorf("first Sync() error = %v", err)
	}
}

func TestServer_SyncFetchFailure(t *testing.T) {
	srv, ts := newTestServer(t, &fetcher{err: errors.New("unauthorized")})

	resp, err := http.Post(ts.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("POST /api/sync status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
	if _, err := srv.in.Store.Load(context.Background()); !errors.Is(err, journal.ErrNoLedger) {
		t.Errorf("store was written after a failed sync: %v", err)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	decode(t, resp, &health)
	if health["status"] != "ok" || health["lastError"] == nil {
		t.Errorf("health = %v, want ok with the last error", health)
	}
}

func TestScheduler_SkipsWhileBusy(t *testing.T) {
	f := &fetcher{entered: make(chan struct{}), release: make(chan struct{})}
	srv, _ := newTestServer(t, f)
	sched := NewScheduler(zerolog.New(io.Discard), time.Minute)

	go sched.run(srv)
	<-f.entered
	// a second tick while the first one still runs returns at once
	finished := make(chan struct{})
	go func() {
		sched.run(srv)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("overlapping tick did not return")
	}
	close(f.release)

	if err := sched.AddSync("not a schedule", srv); err == nil {
		t.Errorf("AddSync() accepted an invalid schedule")
	}
	if err := sched.AddSync("@every 1h", srv); err != nil {
		t.Errorf("AddSync() error = %v", err)
	}
}
