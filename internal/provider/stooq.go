package provider

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PatternScout/internal/model"
	"PatternScout/internal/normalize"
)

// StooqProvider is the secondary tier, backed by Stooq's free CSV endpoint.
// The free tier serves daily candles for one ticker per call; any other
// request shape is reported as ErrUnsupported rather than attempted.
type StooqProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewStooqProvider creates a Stooq provider. baseURL defaults to the public
// endpoint when empty.
func NewStooqProvider(baseURL, proxyURL string) *StooqProvider {
	if baseURL == "" {
		baseURL = "https://stooq.com"
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &StooqProvider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *StooqProvider) Name() string { return "stooq" }

func periodDays(period model.Period) int {
	switch period {
	case model.Period3Mo:
		return 66
	case model.Period6Mo:
		return 132
	case model.Period1Y:
		return 260
	default:
		return 520
	}
}

// Fetch downloads the daily CSV history for one ticker and trims it to the
// requested period.
func (p *StooqProvider) Fetch(ctx context.Context, tickers []string, period model.Period, interval model.Interval) (normalize.RawTable, error) {
	if len(tickers) != 1 {
		return normalize.RawTable{}, fmt.Errorf("stooq: batched request: %w", ErrUnsupported)
	}
	if interval != model.IntervalDaily {
		return normalize.RawTable{}, fmt.Errorf("stooq: interval %s: %w", interval, ErrUnsupported)
	}
	symbol := strings.ToLower(tickers[0]) + ".us"

	u := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", p.BaseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return normalize.RawTable{}, err
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return normalize.RawTable{}, &TransientError{Provider: "stooq", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return normalize.RawTable{}, fmt.Errorf("stooq: status %d", resp.StatusCode)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return normalize.RawTable{}, fmt.Errorf("stooq csv: %w", err)
	}
	if len(records) < 2 {
		return normalize.RawTable{}, ErrEmptyResponse
	}

	// Header: Date,Open,High,Low,Close,Volume
	table := normalize.RawTable{
		Interval: model.IntervalDaily,
		Columns: []normalize.Column{
			{Key1: "Open"}, {Key1: "High"}, {Key1: "Low"}, {Key1: "Close"}, {Key1: "Volume"},
		},
	}
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}
		table.Dates = append(table.Dates, date)
		for i := 0; i < 5; i++ {
			table.Columns[i].Values = append(table.Columns[i].Values, parseFloat(rec[i+1]))
		}
	}
	if len(table.Dates) == 0 {
		return normalize.RawTable{}, ErrEmptyResponse
	}

	// Trim to the requested period.
	if keep := periodDays(period); len(table.Dates) > keep {
		start := len(table.Dates) - keep
		table.Dates = table.Dates[start:]
		for i := range table.Columns {
			table.Columns[i].Values = table.Columns[i].Values[start:]
		}
	}
	return table, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
