// Package store persists journal ledgers.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	journal "github.com/etnz/tradejournal"
)

// ErrLocked is returned by Save when another process is saving the same ledger.
var ErrLocked = errors.New("ledger is locked")

// File stores the ledger as a JSON document.
//
// Saves write a temporary file in the same directory and rename it over the
// previous document, so a reader never sees a partial ledger.
type File struct {
	Path string
}

// Load reads the ledger, or returns journal.ErrNoLedger if the file does not
// exist yet.
func (f File) Load(ctx context.Context) (*journal.Ledger, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, journal.ErrNoLedger
	}
	if err != nil {
		return nil, err
	}
	l, err := journal.DecodeLedger(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode %q: %w", f.Path, err)
	}
	return l, nil
}

// Save replaces the ledger file with l.
func (f File) Save(ctx context.Context, l *journal.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	var buf bytes.Buffer
	if err := journal.EncodeLedger(&buf, l); err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}
	return atomicWrite(f.Path, buf.Bytes())
}

// lock creates the lock file next to the ledger.
func (f File) lock() (unlock func(), err error) {
	path := f.Path + ".lock"
	lf, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: remove %q if no other tj process is running", ErrLocked, path)
	}
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(lf, "%d\n", os.Getpid())
	lf.Close()
	return func() { os.Remove(path) }, nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
