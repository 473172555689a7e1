package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MaxMarketRows caps every rendered market table.
const MaxMarketRows = 10

// MarketRow is one mandi quote. Price is kept as display text.
type MarketRow struct {
	Date      string `json:"date"`
	Mandi     string `json:"mandi"`
	Commodity string `json:"commodity"`
	Price     string `json:"price"`
}

// UnmarshalJSON accepts "mandi" or "mandi_name" and prices as number or string.
// Rows that are not JSON objects decode to an empty row.
func (r *MarketRow) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		*r = MarketRow{}
		return nil
	}
	r.Date = asText(m["date"])
	if v := asText(m["mandi"]); v != "" {
		r.Mandi = v
	} else {
		r.Mandi = asText(m["mandi_name"])
	}
	r.Commodity = asText(m["commodity"])
	r.Price = asText(m["price"])
	return nil
}

// PriceValue parses Price, tolerating thousands separators.
func (r MarketRow) PriceValue() (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(r.Price), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// asText renders scalars the way the page shows them; zero and empty become "".
func asText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == 0 {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
	}
	return ""
}
