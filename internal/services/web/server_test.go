package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/alerts"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/api"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/market"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/progress"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/render"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/speech"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/voicenav"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/i18n"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/localstore"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/schedule"
)

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/weather", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"district":"`+r.URL.Query().Get("district")+`","temperature":29.94,"humidity":61,"description":"clear sky","wind_speed":2.5}`)
	})
	mux.HandleFunc("GET /api/market-prices", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"prices":[{"date":"2025-01-15","mandi_name":"Rajpura","commodity":"Wheat","price":2450}]}`)
	})
	mux.HandleFunc("POST /api/recommend", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"crop":"Wheat","soil_type":"Loamy","fertilizer_gap":{"nitrogen_gap":12},"confidence":0.8}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	srv      *httptest.Server
	doc      *dom.Memory
	speech   *speech.LogEngine
	opener   *alerts.LogOpener
	clock    *schedule.Manual
	brokerUp atomic.Bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := backend(t)
	reg := prometheus.NewRegistry()
	client := api.NewClient(api.Config{BaseURL: be.URL + "/api", Metrics: api.NewMetrics(reg)})

	doc := NewPage(i18n.Default(), "en")
	clock := schedule.NewManual()
	engine := speech.NewLogEngine(nil)
	opener := &alerts.LogOpener{}
	st, err := localstore.Open(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{doc: doc, speech: engine, opener: opener, clock: clock}
	f.brokerUp.Store(true)
	s := NewServer(Deps{
		Doc:      doc,
		Renderer: render.New(doc, client),
		Progress: progress.New(doc, clock, progress.Config{}),
		Market:   market.NewFallback(doc, clock, 0, nil),
		Voice:    voicenav.New(doc, speech.NewSpeaker(engine, nil), i18n.Default()),
		Alerts:   alerts.New(alerts.Config{Store: st, Opener: opener}),
		Gatherer: reg,
		Checks: []Check{
			{Name: "store", Probe: st.Ping},
			{Name: "broker", Optional: true, Probe: func(context.Context) error {
				if !f.brokerUp.Load() {
					return errors.New("not connected")
				}
				return nil
			}},
		},
	})
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) post(t *testing.T, path string, form url.Values, out any) int {
	t.Helper()
	resp, err := f.srv.Client().PostForm(f.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := f.srv.Client().Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestWeatherAction(t *testing.T) {
	f := newFixture(t)

	var res actionResult
	require.Equal(t, http.StatusOK, f.post(t, "/actions/weather", url.Values{"district": {"Ludhiana"}}, &res))
	assert.True(t, res.Available)
	assert.Contains(t, res.HTML, "Current Weather in Ludhiana")
	assert.Contains(t, res.HTML, "29.9°C")

	code, body := f.get(t, "/fragments/"+dom.WeatherBoxMain)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "clear sky")
}

func TestMarketActions(t *testing.T) {
	f := newFixture(t)

	var res actionResult
	f.post(t, "/actions/market", url.Values{"district": {"Patiala"}}, &res)
	assert.True(t, res.Available)
	assert.Contains(t, res.HTML, "<td>Rajpura</td>")
	assert.Contains(t, res.HTML, "₹/qtl")

	f.post(t, "/actions/market/static", nil, &res)
	assert.Contains(t, res.HTML, "₹/quintal")
	assert.Contains(t, res.HTML, "Kapurthala")
}

func TestRecommendAction(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"district":"Patiala","nitrogen":40}`)
	resp, err := f.srv.Client().Post(f.srv.URL+"/actions/recommend", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Available      bool `json:"available"`
		Recommendation struct {
			Crop   string  `json:"crop"`
			NeedN  float64 `json:"need_n"`
			Reason string  `json:"reason"`
		} `json:"recommendation"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Available)
	assert.Equal(t, "Wheat", out.Recommendation.Crop)
	assert.Equal(t, 12.0, out.Recommendation.NeedN)
	assert.Equal(t, "AI recommendation (80% conf.)", out.Recommendation.Reason)

	text, _ := f.doc.TextContent(dom.RecProgressText)
	assert.Equal(t, "100%", text)
	_, card := f.get(t, "/fragments/"+dom.RecResult)
	assert.Contains(t, card, "Recommended crop: Wheat")
}

func TestDecodeQueryAcceptsJSONNumbers(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/actions/recommend",
		strings.NewReader(`{"district":"Moga","nitrogen":40,"phosphorus":12.5,"potassium":"","ph":6.8,"last_crop":null}`))
	r.Header.Set("Content-Type", "application/json")

	q, err := decodeQuery(r)
	require.NoError(t, err)
	assert.Equal(t, api.RecommendQuery{
		District: "Moga", Nitrogen: "40", Phosphorus: "12.5", PH: "6.8",
	}, q)

	bad := httptest.NewRequest(http.MethodPost, "/actions/recommend", strings.NewReader(`[1,2]`))
	bad.Header.Set("Content-Type", "application/json")
	_, err = decodeQuery(bad)
	assert.Error(t, err)
}

func TestProgressActions(t *testing.T) {
	f := newFixture(t)
	type state struct {
		Value   float64 `json:"value"`
		Visible bool    `json:"visible"`
	}

	var st state
	f.post(t, "/actions/progress/start", nil, &st)
	assert.True(t, st.Visible)
	f.clock.Advance(5 * progress.DefaultStep)
	f.post(t, "/actions/progress/set", url.Values{"value": {"140"}}, &st)
	assert.Equal(t, 100.0, st.Value)
	assert.Equal(t, http.StatusBadRequest, f.post(t, "/actions/progress/set", url.Values{"value": {"x"}}, nil))
	assert.Equal(t, http.StatusNotFound, f.post(t, "/actions/progress/bogus", nil, nil))

	f.post(t, "/actions/progress/complete", nil, &st)
	f.clock.Advance(progress.DefaultHideDelay)
	d, _ := f.doc.Style(dom.AppProgress, "display")
	assert.Equal(t, "none", d)
}

func TestVoiceActions(t *testing.T) {
	f := newFixture(t)
	type state struct {
		Enabled bool   `json:"enabled"`
		Cursor  int    `json:"cursor"`
		Section string `json:"section"`
	}

	var st state
	f.post(t, "/voice/next", nil, &st)
	assert.False(t, st.Enabled)
	assert.Empty(t, f.speech.Spoken())

	f.post(t, "/voice/start", url.Values{"lang": {"hi"}}, &st)
	f.post(t, "/voice/prev", nil, &st)
	assert.Equal(t, "help", st.Section)
	spoken := f.speech.Spoken()
	require.Len(t, spoken, 2)
	assert.Equal(t, "hi-IN", spoken[0].Lang)

	f.post(t, "/voice/read", nil, &st)
	spoken = f.speech.Spoken()
	last := spoken[len(spoken)-1]
	assert.Equal(t, "hi-IN", last.Lang)
	assert.True(t, strings.HasPrefix(last.Text, "Smart crop advice for every farmer. "))
}

func TestAlertActions(t *testing.T) {
	f := newFixture(t)

	var sent alertResult
	f.post(t, "/alerts/random", url.Values{"district": {"Moga"}}, &sent)
	assert.False(t, sent.Sent)
	assert.Contains(t, alerts.Messages, sent.Message)

	var phone struct {
		Notices []string `json:"notices"`
	}
	f.post(t, "/alerts/phone", url.Values{"phone": {"919812345678"}}, &phone)
	assert.Equal(t, []string{alerts.PhoneSaved}, phone.Notices)

	f.post(t, "/alerts/send", url.Values{"district": {"Moga"}, "message": {"Hail likely."}}, &sent)
	assert.True(t, sent.Sent)
	require.Len(t, f.opener.Opened(), 1)
	assert.Contains(t, f.opener.Opened()[0], "https://wa.me/919812345678?text=Weather%20Alert%20for%20Moga")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	code, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)

	f.brokerUp.Store(false)
	_, body = f.get(t, "/healthz")
	assert.Contains(t, body, `"status":"degraded"`)
	code, _ = f.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, code, "optional checks do not gate readiness")

	f.post(t, "/actions/weather", url.Values{"district": {"Moga"}}, nil)
	code, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "advisor_api_calls_total")

	code, _ = f.get(t, "/fragments/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReadyFailsOnRequiredCheck(t *testing.T) {
	h := NewReadyHandler([]Check{{Name: "store", Probe: func(context.Context) error { return errors.New("closed") }}}, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler([]Check{{Name: "store", Probe: func(context.Context) error { return errors.New("closed") }}}, 0).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, rec.Body.String(), `"status":"down"`)
}
