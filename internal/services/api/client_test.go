package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := NewMetrics(prometheus.NewRegistry())
	return NewClient(Config{BaseURL: srv.URL + "/api/", Timeout: time.Second, Metrics: m}), m
}

func TestCallSuccess(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ping", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"pong":true}`)
	})

	res := c.Call(context.Background(), "/ping", "", nil)
	v, ok := res.Get()
	require.True(t, ok)
	assert.Equal(t, true, v["pong"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("/ping", OutcomeOK)))
}

func TestCallFailuresBecomeUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, `{"crop":`) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newTestClient(t, tt.handler)
			res := c.Call(context.Background(), "/x", http.MethodGet, nil)
			assert.False(t, res.OK())
			assert.Nil(t, res.Value())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("/x", OutcomeError)))
		})
	}
}

func TestCallTransportError(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.False(t, c.Call(context.Background(), "/recommend", http.MethodPost, map[string]any{"a": 1}).OK())
}

func TestGetDoesNotSendBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Empty(t, b)
		_, _ = io.WriteString(w, `{}`)
	})
	assert.True(t, c.Call(context.Background(), "/weather", http.MethodGet, map[string]string{"x": "y"}).OK())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewMetrics(prometheus.NewRegistry())
	c := NewClient(Config{BaseURL: srv.URL, BreakerFailures: 2, BreakerOpenFor: time.Minute, Metrics: m})

	for i := 0; i < 4; i++ {
		assert.False(t, c.Call(context.Background(), "/weather?district=moga", http.MethodGet, nil).OK())
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("/weather", OutcomeBreakerOpen)))
}

func TestCallerCancellationLeavesBreakerClosed(t *testing.T) {
	slow := make(chan struct{})
	defer close(slow)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") != "" {
			select {
			case <-slow:
			case <-r.Context().Done():
			}
			return
		}
		_, _ = io.WriteString(w, `{"crop":"Wheat"}`)
	}))
	defer srv.Close()

	m := NewMetrics(prometheus.NewRegistry())
	c := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, BreakerFailures: 2, BreakerOpenFor: time.Minute, Metrics: m})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		assert.False(t, c.Call(cancelled, "/recommend", http.MethodPost, map[string]any{"district": "moga"}).OK())
	}
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		assert.False(t, c.Call(ctx, "/recommend?slow=1", http.MethodPost, nil).OK())
		cancel()
	}

	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
	assert.Equal(t, 8.0, testutil.ToFloat64(m.calls.WithLabelValues("/recommend", OutcomeCanceled)))
	rec, ok := c.Recommend(context.Background(), RecommendQuery{District: "Moga"}).Get()
	require.True(t, ok)
	assert.Equal(t, "Wheat", rec.Crop)
}

func TestRecommend(t *testing.T) {
	t.Run("payload normalization", func(t *testing.T) {
		var got map[string]any
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/recommend", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = io.WriteString(w, `{"crop":"Wheat"}`)
		})

		res := c.Recommend(context.Background(), RecommendQuery{
			District: "Patiala", Taluk: "Rajpura", Nitrogen: "120", Phosphorus: "abc", Potassium: "", PH: "0",
		})
		require.True(t, res.OK())
		assert.Equal(t, map[string]any{
			"district": "patiala", "nitrogen": 120.0, "phosphorus": 0.0, "potassium": 0.0, "ph": 7.0, "last_crop": "",
		}, got)
		assert.Equal(t, "Patiala", res.Value().District)
	})

	t.Run("missing crop", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"soil_type":"Loamy","confidence":0.9}`)
		})
		assert.False(t, c.Recommend(context.Background(), RecommendQuery{District: "Moga"}).OK())
	})

	t.Run("synthesized reasoning and gap defaults", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"crop":"Rice","soil_type":"Alluvial","fertilizer_gap":{"nitrogen_gap":12.5},"confidence":0.8}`)
		})
		rec, ok := c.Recommend(context.Background(), RecommendQuery{District: "Amritsar"}).Get()
		require.True(t, ok)
		assert.Equal(t, "Rice", rec.Crop)
		assert.Equal(t, "Alluvial", rec.SoilType)
		assert.Equal(t, 12.5, rec.NeedN)
		assert.Zero(t, rec.NeedP)
		assert.Zero(t, rec.NeedK)
		assert.Equal(t, DefaultPestTip, rec.PestTip)
		assert.Contains(t, rec.Reason, "80%")
	})

	t.Run("numeric strings are coerced", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"crop":"Rice","confidence":"0.8","fertilizer_gap":{"nitrogen_gap":"12","potassium_gap":"n/a"}}`)
		})
		rec, ok := c.Recommend(context.Background(), RecommendQuery{District: "Ludhiana"}).Get()
		require.True(t, ok)
		assert.Equal(t, "Rice", rec.Crop)
		assert.Equal(t, 12.0, rec.NeedN)
		assert.Zero(t, rec.NeedK)
		assert.Equal(t, "AI recommendation (80% conf.)", rec.Reason)
	})

	t.Run("odd shapes default to zero", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"crop":"Maize","confidence":null,"fertilizer_gap":"none"}`)
		})
		rec, ok := c.Recommend(context.Background(), RecommendQuery{}).Get()
		require.True(t, ok)
		assert.Zero(t, rec.NeedN)
		assert.Equal(t, "AI recommendation (0% conf.)", rec.Reason)
	})

	t.Run("explicit reasoning wins", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"crop":"Cotton","reasoning":"Black soil suits cotton","confidence":0.4}`)
		})
		rec, ok := c.Recommend(context.Background(), RecommendQuery{}).Get()
		require.True(t, ok)
		assert.Equal(t, "Black soil suits cotton", rec.Reason)
	})
}

func TestConfidenceReason(t *testing.T) {
	assert.Equal(t, "AI recommendation (0% conf.)", confidenceReason(0))
	assert.Equal(t, "AI recommendation (87% conf.)", confidenceReason(0.865))
	assert.Equal(t, "AI recommendation (100% conf.)", confidenceReason(1))
}

func TestWeather(t *testing.T) {
	t.Run("escapes district", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Sri Muktsar Sahib", r.URL.Query().Get("district"))
			_, _ = io.WriteString(w, `{"district":"Sri Muktsar Sahib","temperature":29.94,"humidity":61,"description":"clear sky","wind_speed":2.1}`)
		})
		w, ok := c.Weather(context.Background(), "Sri Muktsar Sahib").Get()
		require.True(t, ok)
		assert.Equal(t, 29.94, w.Temperature)
	})

	t.Run("no temperature", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"district":"Moga","error":"upstream down"}`)
		})
		assert.False(t, c.Weather(context.Background(), "Moga").OK())
	})
}

func TestMarketPrices(t *testing.T) {
	t.Run("district filter and rows", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/market-prices", r.URL.Path)
			assert.Equal(t, "Moga", r.URL.Query().Get("district"))
			_, _ = io.WriteString(w, `{"prices":[{"date":"2025-01-15","mandi_name":"Moga","commodity":"Gram","price":5200}]}`)
		})
		rows, ok := c.MarketPrices(context.Background(), "Moga").Get()
		require.True(t, ok)
		require.Len(t, rows, 1)
		assert.Equal(t, "Moga", rows[0].Mandi)
	})

	t.Run("no filter", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			_, _ = io.WriteString(w, `{"prices":[]}`)
		})
		rows, ok := c.MarketPrices(context.Background(), "").Get()
		assert.True(t, ok)
		assert.Empty(t, rows)
	})

	for name, body := range map[string]string{
		"missing prices": `{"status":"ok"}`,
		"prices not list": `{"prices":"none"}`,
		"null prices":     `{"prices":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			assert.False(t, c.MarketPrices(context.Background(), "").OK())
		})
	}
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/market-prices", endpointLabel("/market-prices?district=moga"))
	assert.Equal(t, "/recommend", endpointLabel("/recommend"))
	assert.True(t, strings.HasPrefix(DefaultBaseURL, "http://"))
}
