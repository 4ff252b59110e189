package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"PatternScout/internal/model"
	"PatternScout/internal/normalize"
)

const stooqCSV = `Date,Open,High,Low,Close,Volume
2024-03-01,10,11,9,10.5,1000
2024-03-04,10.5,12,10,11.5,2000
2024-03-05,11.5,12.5,11,12,1500
`

func TestStooq_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		w.Write([]byte(stooqCSV))
	}))
	defer srv.Close()

	p := NewStooqProvider(srv.URL, "")
	table, err := p.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalDaily)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "s=aapl.us&i=d" {
		t.Errorf("unexpected query: %s", gotPath)
	}

	series, err := normalize.Normalize(table, "AAPL")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 candles, got %d", series.Len())
	}
	if series.Candles[2].Close != 12 || series.Candles[2].Volume != 1500 {
		t.Errorf("unexpected last candle: %+v", series.Candles[2])
	}
}

func TestStooq_RejectsBatchedRequests(t *testing.T) {
	p := NewStooqProvider("http://unused", "")
	_, err := p.Fetch(context.Background(), []string{"AAPL", "MSFT"}, model.Period1Y, model.IntervalDaily)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for a batch, got %v", err)
	}
}

func TestStooq_RejectsNonDaily(t *testing.T) {
	p := NewStooqProvider("http://unused", "")
	_, err := p.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalWeekly)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for weekly bars, got %v", err)
	}
}

func TestStooq_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
	}))
	defer srv.Close()

	p := NewStooqProvider(srv.URL, "")
	_, err := p.Fetch(context.Background(), []string{"AAPL"}, model.Period1Y, model.IntervalDaily)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}
