package stake

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	journal "github.com/etnz/tradejournal"
)

// Record is a transaction as returned by the accountTransactions endpoint.
type Record struct {
	OrderID        string             `json:"orderID"`
	AccountAmount  decimal.Decimal    `json:"accountAmount"`  // change to the account balance
	AccountBalance decimal.Decimal    `json:"accountBalance"` // balance after the transaction
	FillPx         decimal.Decimal    `json:"fillPx"`
	FillQty        decimal.Decimal    `json:"fillQty"`
	FinTranTypeID  string             `json:"finTranTypeID"` // SPUR, SSAL, ...
	Instrument     journal.Instrument `json:"instrument"`
	TranAmount     decimal.Decimal    `json:"tranAmount"`
	TranWhen       time.Time          `json:"tranWhen"`
}

// Transaction converts the record, amounts in currency.
func (r Record) Transaction(currency string) journal.Transaction {
	return journal.Transaction{
		OrderID:        r.OrderID,
		Type:           journal.ParseTransactionType(r.FinTranTypeID),
		Instrument:     r.Instrument,
		FillPrice:      journal.M(r.FillPx, currency),
		FillQuantity:   journal.Q(r.FillQty.Abs()),
		Amount:         journal.M(r.TranAmount, currency),
		AccountAmount:  journal.M(r.AccountAmount, currency),
		AccountBalance: journal.M(r.AccountBalance, currency),
		OccurredAt:     r.TranWhen,
	}
}

type transactionsQuery struct {
	Direction string `json:"direction"`
	From      string `json:"from"`
	To        string `json:"to"`
	Limit     int    `json:"limit"`
	Offset    *int   `json:"offset"`
}

// Transactions fetches the transactions executed between from and to, one
// page at a time, until a page is shorter than PageSize.
func (c *Client) Transactions(ctx context.Context, from, to time.Time) ([]journal.Transaction, error) {
	var txs []journal.Transaction
	for offset := 0; ; offset += PageSize {
		q := transactionsQuery{
			Direction: "next",
			From:      from.UTC().Format(time.RFC3339Nano),
			To:        to.UTC().Format(time.RFC3339Nano),
			Limit:     PageSize,
		}
		if offset > 0 {
			q.Offset = &offset
		}
		var page []Record
		if err := c.do(ctx, "POST", "users/accounts/accountTransactions", q, &page); err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		for _, r := range page {
			txs = append(txs, r.Transaction(c.currency))
		}
		if len(page) < PageSize {
			break
		}
	}
	c.log.Info().Int("count", len(txs)).Time("from", from).Time("to", to).Msg("transactions loaded")
	return txs, nil
}

// DecodeTransactions reads records saved from the API, either as a JSON
// array or as one JSON object per line.
func DecodeTransactions(r io.Reader, currency string) ([]journal.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var records []Record
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid transactions: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for line := 1; scanner.Scan(); line++ {
			b := bytes.TrimSpace(scanner.Bytes())
			if len(b) == 0 {
				continue // Skip empty lines
			}
			var rec Record
			if err := json.Unmarshal(b, &rec); err != nil {
				return nil, fmt.Errorf("invalid transaction on line %d: %w", line, err)
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	txs := make([]journal.Transaction, 0, len(records))
	for _, rec := range records {
		txs = append(txs, rec.Transaction(currency))
	}
	return txs, nil
}
