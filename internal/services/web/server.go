// Package web serves the advisory page fragments and the actions that update
// them over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/alerts"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/api"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/market"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/progress"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/render"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/voicenav"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
)

// Deps are the components the HTTP surface drives. Nil components answer 404.
type Deps struct {
	Doc      *dom.Memory
	Renderer *render.Renderer
	Progress *progress.Indicator
	Market   *market.Fallback
	Voice    *voicenav.Navigator
	Alerts   *alerts.Service
	Gatherer prometheus.Gatherer
	Checks   []Check
	Logger   *zap.Logger
}

type Server struct {
	d   Deps
	log *zap.Logger
}

func NewServer(d Deps) *Server {
	return &Server{d: d, log: logging.OrNop(d.Logger)}
}

// Handler returns the routed mux wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", NewHealthHandler(s.d.Checks, 2*time.Second))
	mux.Handle("GET /readyz", NewReadyHandler(s.d.Checks, 2*time.Second))
	if s.d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.d.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /fragments/{id}", s.fragment)
	mux.HandleFunc("POST /actions/weather", s.weather)
	mux.HandleFunc("POST /actions/market", s.market)
	mux.HandleFunc("POST /actions/market/static", s.marketStatic)
	mux.HandleFunc("POST /actions/recommend", s.recommend)
	mux.HandleFunc("POST /actions/progress/{op}", s.progress)
	mux.HandleFunc("POST /voice/{op}", s.voice)
	mux.HandleFunc("POST /alerts/phone", s.alertPhone)
	mux.HandleFunc("POST /alerts/send", s.alertSend)
	mux.HandleFunc("POST /alerts/random", s.alertRandom)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Debug("http request",
			zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Int("status", sw.code), zap.Duration("elapsed", time.Since(start)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) fragment(w http.ResponseWriter, r *http.Request) {
	if s.d.Doc == nil {
		http.NotFound(w, r)
		return
	}
	inner, ok := s.d.Doc.HTML(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(inner))
}

func (s *Server) html(id string) string {
	if s.d.Doc == nil {
		return ""
	}
	inner, _ := s.d.Doc.HTML(id)
	return inner
}

type actionResult struct {
	Available bool   `json:"available"`
	HTML      string `json:"html,omitempty"`
}

func (s *Server) weather(w http.ResponseWriter, r *http.Request) {
	if s.d.Renderer == nil {
		http.NotFound(w, r)
		return
	}
	district := strings.TrimSpace(r.FormValue("district"))
	ok := s.d.Renderer.LoadWeather(r.Context(), district)
	inner := s.html(dom.WeatherBox)
	writeJSON(w, http.StatusOK, actionResult{Available: ok, HTML: inner})
}

func (s *Server) market(w http.ResponseWriter, r *http.Request) {
	if s.d.Renderer == nil {
		http.NotFound(w, r)
		return
	}
	district := strings.TrimSpace(r.FormValue("district"))
	ok := s.d.Renderer.LoadMarket(r.Context(), district)
	inner := s.html(dom.MarketTable)
	writeJSON(w, http.StatusOK, actionResult{Available: ok, HTML: inner})
}

func (s *Server) marketStatic(w http.ResponseWriter, r *http.Request) {
	if s.d.Market == nil {
		http.NotFound(w, r)
		return
	}
	s.d.Market.RenderStatic()
	inner := s.html(dom.MarketTable)
	writeJSON(w, http.StatusOK, actionResult{Available: true, HTML: inner})
}

// recommend accepts the query as JSON or form fields and runs the progress bar
// around the lookup.
func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	if s.d.Renderer == nil {
		http.NotFound(w, r)
		return
	}
	q, err := decodeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.d.Progress != nil {
		s.d.Progress.Start()
	}
	res := s.d.Renderer.ShowRecommendation(r.Context(), q)
	if s.d.Progress != nil {
		s.d.Progress.Complete()
	}
	out := struct {
		Available      bool                  `json:"available"`
		Recommendation *model.Recommendation `json:"recommendation,omitempty"`
	}{Available: res.OK()}
	if rec, ok := res.Get(); ok {
		out.Recommendation = &rec
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeQuery(r *http.Request) (api.RecommendQuery, error) {
	var q api.RecommendQuery
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var m map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return q, errors.New("invalid recommendation query")
		}
		q = api.RecommendQuery{
			District:   queryValue(m["district"]),
			Taluk:      queryValue(m["taluk"]),
			Nitrogen:   queryValue(m["nitrogen"]),
			Phosphorus: queryValue(m["phosphorus"]),
			Potassium:  queryValue(m["potassium"]),
			PH:         queryValue(m["ph"]),
			LastCrop:   queryValue(m["last_crop"]),
		}
		return q, nil
	}
	q = api.RecommendQuery{
		District:   r.FormValue("district"),
		Taluk:      r.FormValue("taluk"),
		Nitrogen:   r.FormValue("nitrogen"),
		Phosphorus: r.FormValue("phosphorus"),
		Potassium:  r.FormValue("potassium"),
		PH:         r.FormValue("ph"),
		LastCrop:   r.FormValue("last_crop"),
	}
	return q, nil
}

// queryValue renders a JSON field the way a form would carry it. Numbers keep
// their literal text; other shapes read as blank.
func queryValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return ""
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	p := s.d.Progress
	if p == nil {
		http.NotFound(w, r)
		return
	}
	switch r.PathValue("op") {
	case "start":
		p.Start()
	case "set":
		v, err := strconv.ParseFloat(r.FormValue("value"), 64)
		if err != nil {
			http.Error(w, "value must be a number", http.StatusBadRequest)
			return
		}
		p.Set(v)
	case "complete":
		p.Complete()
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Value   float64 `json:"value"`
		Visible bool    `json:"visible"`
	}{p.Value(), p.Visible()})
}

func (s *Server) voice(w http.ResponseWriter, r *http.Request) {
	n := s.d.Voice
	if n == nil {
		http.NotFound(w, r)
		return
	}
	if lang := r.FormValue("lang"); lang != "" && s.d.Doc != nil {
		s.d.Doc.SetValue(dom.LangSelect, lang)
	}
	switch r.PathValue("op") {
	case "start":
		n.Start()
	case "next":
		n.Next()
	case "prev":
		n.Previous()
	case "stop":
		n.Stop()
	case "read":
		n.ReadFullPage()
	default:
		http.NotFound(w, r)
		return
	}
	cur := n.Current()
	writeJSON(w, http.StatusOK, struct {
		Enabled bool   `json:"enabled"`
		Cursor  int    `json:"cursor"`
		Section string `json:"section"`
	}{n.Enabled(), n.Cursor(), cur.ID})
}

func (s *Server) alertPhone(w http.ResponseWriter, r *http.Request) {
	if s.d.Alerts == nil {
		http.NotFound(w, r)
		return
	}
	p := &alerts.FixedPrompter{Answer: strings.TrimSpace(r.FormValue("phone"))}
	s.d.Alerts.CollectPhone(r.Context(), p)
	writeJSON(w, http.StatusOK, struct {
		Notices []string `json:"notices"`
	}{p.Notices()})
}

type alertResult struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

func (s *Server) alertSend(w http.ResponseWriter, r *http.Request) {
	if s.d.Alerts == nil {
		http.NotFound(w, r)
		return
	}
	msg := r.FormValue("message")
	sent := s.d.Alerts.SendWeatherAlert(r.Context(), r.FormValue("district"), msg)
	writeJSON(w, http.StatusOK, alertResult{Sent: sent, Message: msg})
}

func (s *Server) alertRandom(w http.ResponseWriter, r *http.Request) {
	if s.d.Alerts == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	sent := s.d.Alerts.Phone(ctx) != ""
	msg := s.d.Alerts.GetWeatherAlerts(ctx, r.FormValue("district"))
	writeJSON(w, http.StatusOK, alertResult{Sent: sent, Message: msg})
}

// Run serves until ctx is cancelled, then shuts down within grace.
func Run(ctx context.Context, addr string, h http.Handler, grace time.Duration, log *zap.Logger) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("http shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return hs.Shutdown(shCtx)
}
