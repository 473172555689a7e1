// Package market covers the non-API market data paths: the built-in price
// table, the cached CSV download and the price history sink.
package market

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/render"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/schedule"
)

const DefaultRefresh = 30 * time.Minute

const staticDate = "2025-01-15"

// StaticRows is the built-in Punjab mandi table shown when live prices are off.
var StaticRows = []model.MarketRow{
	{Date: staticDate, Mandi: "Patiala", Commodity: "Wheat", Price: "2450"},
	{Date: staticDate, Mandi: "Amritsar", Commodity: "Rice (Basmati)", Price: "3200"},
	{Date: staticDate, Mandi: "Ludhiana", Commodity: "Maize", Price: "1950"},
	{Date: staticDate, Mandi: "Bathinda", Commodity: "Cotton", Price: "6800"},
	{Date: staticDate, Mandi: "Sangrur", Commodity: "Mustard", Price: "5800"},
	{Date: staticDate, Mandi: "Moga", Commodity: "Gram", Price: "5200"},
	{Date: staticDate, Mandi: "Jalandhar", Commodity: "Potato", Price: "1800"},
	{Date: staticDate, Mandi: "Fazilka", Commodity: "Bajra", Price: "2200"},
	{Date: staticDate, Mandi: "Hoshiarpur", Commodity: "Sugarcane", Price: "340"},
	{Date: staticDate, Mandi: "Kapurthala", Commodity: "Vegetables", Price: "2800"},
}

// Fallback renders StaticRows and keeps them fresh on a fixed period.
type Fallback struct {
	doc      dom.Document
	sched    schedule.Scheduler
	interval time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	task schedule.Task
	stop func() bool
}

func NewFallback(doc dom.Document, sched schedule.Scheduler, interval time.Duration, log *zap.Logger) *Fallback {
	if sched == nil {
		sched = schedule.Real{}
	}
	if interval <= 0 {
		interval = DefaultRefresh
	}
	return &Fallback{doc: doc, sched: sched, interval: interval, log: logging.OrNop(log)}
}

// RenderStatic writes the built-in table into every market target present.
func (f *Fallback) RenderStatic() {
	html, err := render.MarketTableHTML(StaticRows, render.UnitQuintal)
	if err != nil {
		f.log.Error("render static market table", zap.Error(err))
		return
	}
	for _, id := range render.MarketTargets {
		f.doc.SetHTML(id, html)
	}
}

// AutoRefresh re-renders every interval until ctx ends or Stop is called.
// Calling it again replaces the previous refresh loop.
func (f *Fallback) AutoRefresh(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.task = f.sched.Every(f.interval, f.RenderStatic)
	task := f.task
	f.stop = context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.task == task {
			f.stopLocked()
		}
	})
	f.log.Debug("market auto-refresh armed", zap.Duration("interval", f.interval))
}

func (f *Fallback) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
}

// Running reports whether an auto-refresh loop is armed.
func (f *Fallback) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.task != nil
}

func (f *Fallback) stopLocked() {
	if f.task != nil {
		f.task.Stop()
		f.task = nil
	}
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}
