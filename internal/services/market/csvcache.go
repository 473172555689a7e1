package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
)

// CSVCache downloads a market CSV once and serves the text afterwards.
// Failed downloads are not cached.
type CSVCache struct {
	client *http.Client

	mu     sync.Mutex
	text   string
	cached bool
}

func NewCSVCache(client *http.Client) *CSVCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &CSVCache{client: client}
}

// Fetch returns the cached body, downloading url on the first successful call.
// Concurrent callers wait for the in-flight download.
func (c *CSVCache) Fetch(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached {
		return c.text, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("market csv request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("market csv fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("market csv fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("market csv read: %w", err)
	}
	c.text, c.cached = string(body), true
	return c.text, nil
}

// Cached reports whether a body is held.
func (c *CSVCache) Cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

var ErrNoPriceColumn = errors.New("market csv: missing price column")

var columnAliases = map[string]string{
	"date":         "date",
	"arrival_date": "date",
	"mandi":        "mandi",
	"mandi_name":   "mandi",
	"market":       "mandi",
	"commodity":    "commodity",
	"price":        "price",
	"modal_price":  "price",
}

// ParseCSV reads a header row and maps known columns onto market rows.
// Unknown columns are ignored; rows shorter than the header are padded.
func ParseCSV(text string) ([]model.MarketRow, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("market csv header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := columnAliases[name]; ok {
			if _, seen := idx[col]; !seen {
				idx[col] = i
			}
		}
	}
	if _, ok := idx["price"]; !ok {
		return nil, ErrNoPriceColumn
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []model.MarketRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("market csv row %d: %w", len(rows)+1, err)
		}
		row := model.MarketRow{
			Date:      field(rec, "date"),
			Mandi:     field(rec, "mandi"),
			Commodity: field(rec, "commodity"),
			Price:     field(rec, "price"),
		}
		if row == (model.MarketRow{}) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
