// Package journal turns brokerage trade executions into a day by day record
// of realised and unrealised profit, rolled up by week and by month.
//
// The core functionalities include:
//   - Ledger Building: buys open lots on the day they were executed, sells
//     consume the holdings of the earliest days first. Sells that cannot be
//     matched are reported, never dropped silently.
//   - Profit Calculation: a stateless pass that values each instrument day
//     at live prices, and sums money figures up to days, weeks, months and
//     the whole account. Percents are always recomputed from the sums.
//   - Ingestion: resumable cycles that merge newly fetched transactions into
//     the persisted ledger without applying any of them twice.
//   - Data Persistence: a stable, versioned JSON encoding of the ledger that
//     still reads the older day log arrays.
//
// This package serves as the foundational logic for the `tj` command-line
// tool and its HTTP server.
package journal
