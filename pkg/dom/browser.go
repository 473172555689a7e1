package dom

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// BrowserConfig selects the Chrome instance and page a Browser document drives.
type BrowserConfig struct {
	DebuggerURL string // ws:// control URL; empty launches a local Chrome
	Headless    bool
	PageURL     string
	OpTimeout   time.Duration
	Logger      *zap.Logger
}

// Browser is a Document backed by a live page over the DevTools protocol.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	log     *zap.Logger
}

// ConnectBrowser attaches to (or launches) Chrome and opens cfg.PageURL.
func ConnectBrowser(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		u, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: cfg.PageURL})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page %s: %w", cfg.PageURL, err)
	}
	if err := page.Timeout(30 * time.Second).WaitLoad(); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("wait load %s: %w", cfg.PageURL, err)
	}
	logger.Info("browser page attached", zap.String("url", cfg.PageURL))
	return &Browser{browser: b, page: page, timeout: timeout, log: logger}, nil
}

// Rod exposes the underlying browser (new tabs, speech engine).
func (b *Browser) Rod() *rod.Browser { return b.browser }

// Page exposes the attached page.
func (b *Browser) Page() *rod.Page { return b.page }

func (b *Browser) Close() error { return b.browser.Close() }

func (b *Browser) element(id string) (*rod.Element, bool) {
	has, el, err := b.page.Timeout(b.timeout).Has("#" + id)
	if err != nil {
		b.log.Debug("element lookup failed", zap.String("id", id), zap.Error(err))
		return nil, false
	}
	if !has {
		return nil, false
	}
	return el.Timeout(b.timeout), true
}

func (b *Browser) eval(id, js string, args ...interface{}) (*proto.RuntimeRemoteObject, bool) {
	el, ok := b.element(id)
	if !ok {
		return nil, false
	}
	res, err := el.Eval(js, args...)
	if err != nil {
		b.log.Warn("element eval failed", zap.String("id", id), zap.Error(err))
		return nil, false
	}
	return res, true
}

func (b *Browser) evalString(id, js string, args ...interface{}) (string, bool) {
	res, ok := b.eval(id, js, args...)
	if !ok {
		return "", false
	}
	return res.Value.Str(), true
}

func (b *Browser) Exists(id string) bool {
	_, ok := b.element(id)
	return ok
}

func (b *Browser) HTML(id string) (string, bool) {
	return b.evalString(id, `() => this.innerHTML`)
}

func (b *Browser) SetHTML(id, inner string) bool {
	_, ok := b.eval(id, `(v) => { this.innerHTML = v }`, inner)
	return ok
}

func (b *Browser) SetText(id, text string) bool {
	return b.SetHTML(id, html.EscapeString(text))
}

func (b *Browser) TextContent(id string) (string, bool) {
	return b.evalString(id, `() => this.textContent || ''`)
}

func (b *Browser) HeadingText(id string) (string, bool) {
	return b.evalString(id, `() => {
		const h = this.querySelector('h1, h2, h3, h4, h5, h6');
		return h ? (h.textContent || '') : '';
	}`)
}

func (b *Browser) Style(id, prop string) (string, bool) {
	return b.evalString(id, `(p) => this.style.getPropertyValue(p)`, prop)
}

func (b *Browser) SetStyle(id, prop, value string) bool {
	_, ok := b.eval(id, `(p, v) => { this.style.setProperty(p, v) }`, prop, value)
	return ok
}

func (b *Browser) Attr(id, name string) (string, bool) {
	el, ok := b.element(id)
	if !ok {
		return "", false
	}
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (b *Browser) SetAttr(id, name, value string) bool {
	_, ok := b.eval(id, `(n, v) => { this.setAttribute(n, v) }`, name, value)
	return ok
}

func (b *Browser) Value(id string) (string, bool) {
	return b.evalString(id, `() => (this.value === undefined || this.value === null) ? '' : String(this.value)`)
}

func (b *Browser) ScrollIntoView(id string) bool {
	_, ok := b.eval(id, `() => { this.scrollIntoView({ behavior: 'smooth' }) }`)
	return ok
}

var _ Document = (*Browser)(nil)
