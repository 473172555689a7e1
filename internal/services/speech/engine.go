package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
)

// LogEngine writes utterances to a logger instead of audio. It is the server
// default when no browser is attached.
type LogEngine struct {
	log    *zap.Logger
	voices []Voice

	mu     sync.Mutex
	spoken []Utterance
}

func NewLogEngine(log *zap.Logger, voices ...Voice) *LogEngine {
	return &LogEngine{log: logging.OrNop(log), voices: voices}
}

func (e *LogEngine) Voices() []Voice { return e.voices }

func (e *LogEngine) Cancel() {}

func (e *LogEngine) Speak(u Utterance) error {
	voice := ""
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	e.log.Info("speak",
		zap.String("lang", u.Lang), zap.String("voice", voice),
		zap.Float64("rate", u.Rate), zap.String("text", u.Text))
	e.mu.Lock()
	e.spoken = append(e.spoken, u)
	e.mu.Unlock()
	return nil
}

// Spoken returns every utterance so far.
func (e *LogEngine) Spoken() []Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Utterance(nil), e.spoken...)
}

// BrowserEngine drives window.speechSynthesis on a rod page.
type BrowserEngine struct {
	page *rod.Page
}

func NewBrowserEngine(page *rod.Page) *BrowserEngine {
	return &BrowserEngine{page: page}
}

func (e *BrowserEngine) Voices() []Voice {
	res, err := e.page.Eval(`() => ('speechSynthesis' in window)
		? speechSynthesis.getVoices().map(v => ({name: v.name, lang: v.lang || ''}))
		: []`)
	if err != nil {
		return nil
	}
	var voices []Voice
	for _, v := range res.Value.Arr() {
		voices = append(voices, Voice{Name: v.Get("name").Str(), Lang: v.Get("lang").Str()})
	}
	return voices
}

func (e *BrowserEngine) Cancel() {
	_, _ = e.page.Eval(`() => { if ('speechSynthesis' in window) speechSynthesis.cancel() }`)
}

func (e *BrowserEngine) Speak(u Utterance) error {
	voice := ""
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	payload, err := json.Marshal(map[string]any{"text": u.Text, "lang": u.Lang, "voice": voice, "rate": u.Rate})
	if err != nil {
		return err
	}
	_, err = e.page.Eval(`(raw) => {
		if (!('speechSynthesis' in window)) return false;
		const p = JSON.parse(raw);
		const utter = new SpeechSynthesisUtterance(p.text);
		utter.lang = p.lang;
		const v = speechSynthesis.getVoices().find(v => v.name === p.voice);
		if (v) utter.voice = v;
		utter.rate = p.rate;
		speechSynthesis.speak(utter);
		return true;
	}`, string(payload))
	if err != nil {
		return fmt.Errorf("browser speak: %w", err)
	}
	return nil
}

// Wait blocks until the page has nothing left to say or ctx ends.
func (e *BrowserEngine) Wait(ctx context.Context) error {
	for {
		res, err := e.page.Context(ctx).Eval(`() => ('speechSynthesis' in window) && (speechSynthesis.speaking || speechSynthesis.pending)`)
		if err != nil {
			return fmt.Errorf("browser speech state: %w", err)
		}
		if !res.Value.Bool() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}
