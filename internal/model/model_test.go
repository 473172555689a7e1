package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketRowAcceptsAlternateMandiKey(t *testing.T) {
	var rows []MarketRow
	err := json.Unmarshal([]byte(`[
		{"date":"2025-01-15","mandi":"Patiala","commodity":"Wheat","price":"2450"},
		{"date":"2025-01-16","mandi_name":"Moga","commodity":"Gram","price":5200},
		{"commodity":"Maize"},
		"garbage"
	]`), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, MarketRow{Date: "2025-01-15", Mandi: "Patiala", Commodity: "Wheat", Price: "2450"}, rows[0])
	assert.Equal(t, "Moga", rows[1].Mandi)
	assert.Equal(t, "5200", rows[1].Price)
	assert.Equal(t, MarketRow{Commodity: "Maize"}, rows[2])
	assert.Equal(t, MarketRow{}, rows[3])
}

func TestMarketRowPriceValue(t *testing.T) {
	v, ok := MarketRow{Price: "6,800"}.PriceValue()
	require.True(t, ok)
	assert.Equal(t, 6800.0, v)

	_, ok = MarketRow{Price: "n/a"}.PriceValue()
	assert.False(t, ok)
}

func TestWeatherDecoding(t *testing.T) {
	t.Run("numbers as strings", func(t *testing.T) {
		var w Weather
		require.NoError(t, json.Unmarshal([]byte(`{"district":"Ludhiana","temperature":"31.46","humidity":"55","description":"haze","wind_speed":3.2}`), &w))
		assert.True(t, w.HasTemperature)
		assert.InDelta(t, 31.46, w.Temperature, 1e-9)
		assert.Equal(t, 55.0, w.Humidity)
		assert.Equal(t, 3.2, w.WindSpeed)
		assert.Equal(t, "haze", w.Description)
	})

	t.Run("missing temperature", func(t *testing.T) {
		var w Weather
		require.NoError(t, json.Unmarshal([]byte(`{"district":"Moga","humidity":40}`), &w))
		assert.False(t, w.HasTemperature)
	})

	t.Run("null temperature", func(t *testing.T) {
		var w Weather
		require.NoError(t, json.Unmarshal([]byte(`{"district":"Moga","temperature":null}`), &w))
		assert.False(t, w.HasTemperature)
	})
}

func TestAsFloat(t *testing.T) {
	v, ok := AsFloat(" 12.5 ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	for _, in := range []any{nil, "n/a", true, map[string]any{}} {
		_, ok := AsFloat(in)
		assert.False(t, ok, in)
	}
}

func TestSectionIDsOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"hero", "features", "demo", "market", "weather", "seasonality", "cases", "help"},
		SectionIDs())
}
