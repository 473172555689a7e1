// Package render turns backend lookups into page fragments, substituting
// fixed "unavailable" text whenever the backend returns nothing usable.
package render

import (
	"context"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/api"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
)

var (
	WeatherTargets = []string{dom.WeatherBoxMain, dom.WeatherBox}
	MarketTargets  = []string{dom.MarketTableMain, dom.MarketTable}
)

// Source is the subset of the backend client the renderer needs.
type Source interface {
	Recommend(ctx context.Context, q api.RecommendQuery) api.Result[model.Recommendation]
	Weather(ctx context.Context, district string) api.Result[model.Weather]
	MarketPrices(ctx context.Context, district string) api.Result[[]model.MarketRow]
}

// PriceRecorder receives every successfully fetched market table.
type PriceRecorder interface {
	Record(ctx context.Context, district string, rows []model.MarketRow)
}

type Renderer struct {
	doc     dom.Document
	src     Source
	history PriceRecorder
	log     *zap.Logger
}

type Option func(*Renderer)

func WithHistory(h PriceRecorder) Option { return func(r *Renderer) { r.history = h } }

func WithLogger(l *zap.Logger) Option { return func(r *Renderer) { r.log = logging.OrNop(l) } }

func New(doc dom.Document, src Source, opts ...Option) *Renderer {
	r := &Renderer{doc: doc, src: src, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LoadWeather fills every weather box with current conditions or fallback text.
func (r *Renderer) LoadWeather(ctx context.Context, district string) bool {
	w, ok := r.src.Weather(ctx, district).Get()
	if ok {
		html, err := WeatherHTML(w, district)
		if err == nil {
			writeHTML(r.doc, WeatherTargets, html)
			return true
		}
		r.log.Error("render weather", zap.Error(err))
	}
	writeText(r.doc, WeatherTargets, "Weather data unavailable for "+district+". Please try again later.")
	return false
}

// LoadMarket fills every market table with up to ten live rows or fallback text.
func (r *Renderer) LoadMarket(ctx context.Context, district string) bool {
	rows, ok := r.src.MarketPrices(ctx, district).Get()
	if ok {
		html, err := MarketTableHTML(rows, UnitQtl)
		if err == nil {
			writeHTML(r.doc, MarketTargets, html)
			if r.history != nil {
				r.history.Record(ctx, district, rows)
			}
			return true
		}
		r.log.Error("render market", zap.Error(err))
	}
	msg := "Market data unavailable"
	if district != "" {
		msg += " for " + district
	}
	writeText(r.doc, MarketTargets, msg+". Please try again later.")
	return false
}

// ShowRecommendation looks up a crop and renders the card into recResult.
func (r *Renderer) ShowRecommendation(ctx context.Context, q api.RecommendQuery) api.Result[model.Recommendation] {
	res := r.src.Recommend(ctx, q)
	if rec, ok := res.Get(); ok {
		html, err := RecommendationHTML(rec)
		if err == nil {
			r.doc.SetHTML(dom.RecResult, html)
			return res
		}
		r.log.Error("render recommendation", zap.Error(err))
	}
	r.doc.SetText(dom.RecResult, "Recommendation service unavailable. Please try again later.")
	return res
}

func writeHTML(doc dom.Document, ids []string, html string) {
	for _, id := range ids {
		doc.SetHTML(id, html)
	}
}

func writeText(doc dom.Document, ids []string, text string) {
	for _, id := range ids {
		doc.SetText(id, text)
	}
}
