package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"PatternScout/internal/model"
	"PatternScout/internal/normalize"
)

// YahooProvider is the primary tier, backed by the Yahoo Finance chart API.
type YahooProvider struct {
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooProvider creates a Yahoo Finance provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat maps a raw JSON cell to float64, NaN when null (holidays etc.);
// the normalizer drops rows with missing OHLC.
func toFloat(v interface{}) float64 {
	if v == nil {
		return math.NaN()
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return math.NaN()
	}
}

func yahooRange(period model.Period) string {
	switch period {
	case model.Period3Mo:
		return "3mo"
	case model.Period6Mo:
		return "6mo"
	case model.Period1Y:
		return "1y"
	default:
		return "2y"
	}
}

// tickerBars is one ticker's raw columns keyed by date.
type tickerBars struct {
	ticker string
	byDate map[time.Time][5]float64 // open, high, low, close, volume
}

// Fetch issues one chart call per ticker and assembles a single raw table.
// Multi-ticker requests produce the grouped (field, ticker) column layout;
// single-ticker requests produce flat columns.
func (p *YahooProvider) Fetch(ctx context.Context, tickers []string, period model.Period, interval model.Interval) (normalize.RawTable, error) {
	if len(tickers) == 0 {
		return normalize.RawTable{}, ErrEmptyResponse
	}

	all := make([]tickerBars, 0, len(tickers))
	var lastErr error
	for _, t := range tickers {
		bars, err := p.fetchChart(ctx, t, string(interval), yahooRange(period))
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, bars)
	}
	if len(all) == 0 {
		if lastErr != nil {
			return normalize.RawTable{}, lastErr
		}
		return normalize.RawTable{}, ErrEmptyResponse
	}

	table := assembleTable(all)
	table.Interval = interval
	return table, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol, interval, rng string) (tickerBars, error) {
	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s",
		url.PathEscape(p.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return tickerBars{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return tickerBars{}, &TransientError{Provider: "yahoo", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tickerBars{}, &TransientError{Provider: "yahoo", Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return tickerBars{}, &TransientError{Provider: "yahoo", Err: fmt.Errorf("rate limited: %s", body)}
	}
	if resp.StatusCode != http.StatusOK {
		return tickerBars{}, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return tickerBars{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return tickerBars{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return tickerBars{}, ErrEmptyResponse
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return tickerBars{}, ErrEmptyResponse
	}
	quote := result.Indicators.Quote[0]

	bars := tickerBars{ticker: symbol, byDate: make(map[time.Time][5]float64, len(result.Timestamp))}
	for i, ts := range result.Timestamp {
		day := time.Unix(ts, 0).UTC()
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		bars.byDate[day] = [5]float64{
			toFloat(at5(quote.Open, i)),
			toFloat(at5(quote.High, i)),
			toFloat(at5(quote.Low, i)),
			toFloat(at5(quote.Close, i)),
			toFloat(at5(quote.Volume, i)),
		}
	}
	return bars, nil
}

func at5(values []interface{}, i int) interface{} {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// assembleTable aligns per-ticker bars on the union of their dates.
func assembleTable(all []tickerBars) normalize.RawTable {
	dateSet := make(map[time.Time]bool)
	for _, tb := range all {
		for d := range tb.byDate {
			dateSet[d] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := normalize.RawTable{Dates: dates}
	fields := []string{"Open", "High", "Low", "Close", "Volume"}
	multi := len(all) > 1

	for _, tb := range all {
		for fi, field := range fields {
			col := normalize.Column{Key1: field, Values: make([]float64, len(dates))}
			if multi {
				col.Key2 = tb.ticker
			}
			for di, d := range dates {
				if row, ok := tb.byDate[d]; ok {
					col.Values[di] = row[fi]
				} else {
					col.Values[di] = math.NaN()
				}
			}
			table.Columns = append(table.Columns, col)
		}
	}
	return table
}
