package stake

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	journal "github.com/etnz/tradejournal"
)

/*
	{
	    "marketDataList": [
	        {
	            "symbol": "AAPL",
	            "lastTrade": 189.84,
	            ...
	        }
	    ]
	}
*/

// Prices returns the last traded price of symbols. Quotes are reused for the
// configured TTL. Symbols the API does not know are absent from the result.
func (c *Client) Prices(ctx context.Context, symbols []string) (journal.Prices, error) {
	prices := make(journal.Prices, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		if p, found := c.quotes.Get(symbol); found {
			prices[symbol] = p.(journal.Money)
			continue
		}
		missing = append(missing, symbol)
	}
	if len(missing) == 0 {
		return prices, nil
	}

	escaped := make([]string, len(missing))
	for i, symbol := range missing {
		escaped[i] = url.PathEscape(symbol)
	}
	var jobj any
	uri := "quotes/marketData/" + strings.Join(escaped, ",")
	if err := c.do(ctx, "GET", uri, nil, &jobj); err != nil {
		return nil, fmt.Errorf("failed to load market data: %w", err)
	}
	quotes, err := parseQuotes(jobj)
	if err != nil {
		return nil, err
	}
	for symbol, last := range quotes {
		p := journal.M(last, c.currency)
		c.quotes.Set(symbol, p, cache.DefaultExpiration)
		prices[symbol] = p
	}
	c.log.Debug().Int("asked", len(missing)).Int("received", len(quotes)).Msg("quotes loaded")
	return prices, nil
}

// parseQuotes reads the last trade of each entry of the market data list.
func parseQuotes(jobj any) (map[string]decimal.Decimal, error) {
	path := "$.marketDataList[*]"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing market data: %q %w", path, err)
	}
	list, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("error parsing market data: %q is not a list", path)
	}

	quotes := make(map[string]decimal.Decimal, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		symbol, _ := entry["symbol"].(string)
		if symbol == "" {
			continue
		}
		// sometimes the value is a string
		var last decimal.Decimal
		switch v := entry["lastTrade"].(type) {
		case float64:
			last = decimal.NewFromFloat(v)
		case string:
			if last, err = decimal.NewFromString(v); err != nil {
				return nil, fmt.Errorf("invalid lastTrade %q for %s: %w", v, symbol, err)
			}
		default:
			continue
		}
		if !last.IsPositive() {
			continue
		}
		quotes[symbol] = last
	}
	return quotes, nil
}
