// Package progress drives the page's determinate progress bar.
package progress

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/schedule"
)

const (
	DefaultStep      = 120 * time.Millisecond
	DefaultCeiling   = 90.0
	DefaultHideDelay = 800 * time.Millisecond
)

type Config struct {
	Step      time.Duration // auto-increment period
	Ceiling   float64       // auto-increment stops here
	HideDelay time.Duration // bar stays at 100% this long after Complete
}

func (c Config) withDefaults() Config {
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	if c.Ceiling <= 0 || c.Ceiling > 100 {
		c.Ceiling = DefaultCeiling
	}
	if c.HideDelay <= 0 {
		c.HideDelay = DefaultHideDelay
	}
	return c
}

// Indicator owns the progress value and its timers. Safe for concurrent use.
type Indicator struct {
	doc   dom.Document
	sched schedule.Scheduler
	cfg   Config

	mu    sync.Mutex
	value float64
	auto  schedule.Task
	hide  schedule.Task
}

func New(doc dom.Document, sched schedule.Scheduler, cfg Config) *Indicator {
	if sched == nil {
		sched = schedule.Real{}
	}
	return &Indicator{doc: doc, sched: sched, cfg: cfg.withDefaults()}
}

// Start shows the bar at 0% and begins creeping towards the ceiling.
func (p *Indicator) Start() {
	if !p.doc.Exists(dom.AppProgress) || !p.doc.Exists(dom.AppProgressBar) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimers()
	p.doc.SetStyle(dom.AppProgress, "display", "block")
	p.doc.SetStyle(dom.AppProgressBar, "width", "0%")
	p.value = 0
	if p.doc.SetStyle(dom.RecProgressText, "display", "inline") {
		p.doc.SetText(dom.RecProgressText, "0%")
	}

	var task schedule.Task
	task = p.sched.Every(p.cfg.Step, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// a tick already queued when Start ran again or Complete fired
		if p.auto != task {
			return
		}
		if p.value >= p.cfg.Ceiling {
			p.auto.Stop()
			p.auto = nil
			return
		}
		p.set(p.value + 1)
	})
	p.auto = task
}

// Set moves the bar to v, clamped to [0,100]. The auto-increment keeps running.
func (p *Indicator) Set(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(v)
}

// Complete jumps to 100% and hides the bar after the configured delay.
func (p *Indicator) Complete() {
	if !p.doc.Exists(dom.AppProgress) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimers()
	p.set(100)
	var task schedule.Task
	task = p.sched.After(p.cfg.HideDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.hide != task {
			return
		}
		p.hide = nil
		p.doc.SetStyle(dom.AppProgress, "display", "none")
	})
	p.hide = task
}

func (p *Indicator) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Visible reports whether the bar container is displayed.
func (p *Indicator) Visible() bool {
	d, ok := p.doc.Style(dom.AppProgress, "display")
	return ok && d != "" && d != "none"
}

// ActiveTimers counts the auto-increment and pending hide that are still armed.
func (p *Indicator) ActiveTimers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	if p.auto != nil {
		n++
	}
	if p.hide != nil {
		n++
	}
	return n
}

// Stop cancels every timer without touching the page.
func (p *Indicator) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimers()
}

func (p *Indicator) stopTimers() {
	if p.auto != nil {
		p.auto.Stop()
		p.auto = nil
	}
	if p.hide != nil {
		p.hide.Stop()
		p.hide = nil
	}
}

func (p *Indicator) set(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	p.value = math.Max(0, math.Min(100, v))
	pct := strconv.FormatFloat(p.value, 'f', -1, 64)
	p.doc.SetStyle(dom.AppProgressBar, "width", pct+"%")
	p.doc.SetAttr(dom.AppProgressBar, "aria-valuenow", pct)
	p.doc.SetText(dom.RecProgressText, strconv.Itoa(int(math.Round(p.value)))+"%")
}
