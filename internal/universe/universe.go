// Package universe resolves the ticker list to scan: a local override
// file when present, otherwise the NASDAQ-listed directory, otherwise a
// small builtin fallback so a scan can always run.
package universe

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// OpenPositions reports tickers the operator currently holds. Open tickers
// are scanned first so their results are never lost to a partial run.
type OpenPositions interface {
	Open() []string
}

// NoPositions is the default OpenPositions with no holdings.
type NoPositions struct{}

func (NoPositions) Open() []string { return nil }

// Source resolves the scan universe.
type Source struct {
	DirectoryURL string
	OverrideFile string
	MaxTickers   int
	Positions    OpenPositions
	Client       *http.Client
}

// NewSource creates a universe source. positions may be nil.
func NewSource(directoryURL, overrideFile string, maxTickers int, positions OpenPositions) *Source {
	if positions == nil {
		positions = NoPositions{}
	}
	return &Source{
		DirectoryURL: directoryURL,
		OverrideFile: overrideFile,
		MaxTickers:   maxTickers,
		Positions:    positions,
		Client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Tickers resolves the universe: override file, then directory download,
// then the builtin fallback. The result is uppercase, deduped, capped at
// MaxTickers, with open positions moved to the front.
func (s *Source) Tickers(ctx context.Context) []string {
	tickers, src := s.resolve(ctx)
	tickers = clean(tickers)
	if s.MaxTickers > 0 && len(tickers) > s.MaxTickers {
		tickers = tickers[:s.MaxTickers]
	}
	tickers = prioritize(tickers, s.Positions.Open())
	log.Printf("[INFO] Universe: %d tickers from %s", len(tickers), src)
	return tickers
}

func (s *Source) resolve(ctx context.Context) ([]string, string) {
	if s.OverrideFile != "" {
		if tickers, err := readOverride(s.OverrideFile); err == nil && len(tickers) > 0 {
			return tickers, "override file"
		}
	}
	if s.DirectoryURL != "" {
		tickers, err := s.fetchDirectory(ctx)
		if err != nil {
			log.Printf("[WARN] Universe directory fetch failed: %v", err)
		} else if len(tickers) > 0 {
			return tickers, "directory"
		}
	}
	return builtinUniverse(), "builtin fallback"
}

// readOverride reads one ticker per line; blank lines and # comments are
// skipped.
func readOverride(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, line)
	}
	return tickers, sc.Err()
}

// fetchDirectory downloads the pipe-separated NASDAQ directory. Row layout:
// Symbol|Security Name|...|Test Issue|...; test issues and the trailing
// file-creation footer are skipped.
func (s *Source) fetchDirectory(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.DirectoryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: status %d", resp.StatusCode)
	}

	var tickers []string
	sc := bufio.NewScanner(resp.Body)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first { // header row
			first = false
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			continue
		}
		symbol := strings.TrimSpace(fields[0])
		if symbol == "" || strings.HasPrefix(symbol, "File Creation Time") {
			continue
		}
		if fields[3] == "Y" { // test issue
			continue
		}
		// Skip units, warrants and anything with class suffixes encoded
		// via special characters.
		if strings.ContainsAny(symbol, ".$^") {
			continue
		}
		tickers = append(tickers, symbol)
	}
	return tickers, sc.Err()
}

// clean uppercases, dedupes and sorts.
func clean(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// prioritize moves open positions to the front, preserving order among the
// rest. Open tickers absent from the universe are appended so they are
// still scanned.
func prioritize(tickers, open []string) []string {
	if len(open) == 0 {
		return tickers
	}
	openSet := make(map[string]bool, len(open))
	for _, t := range open {
		openSet[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	front := make([]string, 0, len(open))
	rest := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if openSet[t] {
			front = append(front, t)
			delete(openSet, t)
		} else {
			rest = append(rest, t)
		}
	}
	for t := range openSet {
		front = append(front, t)
	}
	sort.Strings(front[len(front)-len(openSet):])
	return append(front, rest...)
}

func builtinUniverse() []string {
	return []string{
		"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AVGO",
		"AMD", "NFLX", "CRM", "ADBE", "QCOM", "INTC", "PLTR", "SHOP",
		"SQ", "COIN", "MRVL", "PANW", "CRWD", "DDOG", "NET", "SNOW",
	}
}
