// Package speech reads page text aloud through a pluggable synthesis engine.
package speech

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
)

// Rate is the speaking rate used for every utterance.
const Rate = 0.95

type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type Utterance struct {
	Text  string
	Lang  string // BCP-47 tag, e.g. hi-IN
	Voice *Voice // nil lets the engine choose
	Rate  float64
}

// Engine is a speech synthesis backend.
type Engine interface {
	Voices() []Voice
	// Cancel drops anything queued or playing.
	Cancel()
	Speak(u Utterance) error
}

var langTags = map[string]string{
	"en": "en-IN",
	"hi": "hi-IN",
	"pa": "pa-IN",
	"kn": "kn-IN",
	"te": "te-IN",
}

// LangTag maps a page language code to the utterance tag, defaulting to en-IN.
func LangTag(lang string) string {
	if tag, ok := langTags[lang]; ok {
		return tag
	}
	return "en-IN"
}

// Speaker keeps at most one utterance active. A nil engine makes it a no-op.
type Speaker struct {
	engine Engine
	log    *zap.Logger

	mu     sync.Mutex
	voices []Voice
}

func NewSpeaker(engine Engine, log *zap.Logger) *Speaker {
	s := &Speaker{engine: engine, log: logging.OrNop(log)}
	s.ReloadVoices()
	return s
}

// Available reports whether an engine is attached.
func (s *Speaker) Available() bool { return s != nil && s.engine != nil }

// ReloadVoices refreshes the cached voice list from the engine.
func (s *Speaker) ReloadVoices() {
	if !s.Available() {
		return
	}
	var voices []Voice
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Warn("voice list unavailable", zap.Any("panic", r))
				voices = nil
			}
		}()
		voices = s.engine.Voices()
	}()
	s.mu.Lock()
	s.voices = voices
	s.mu.Unlock()
}

// PickVoice chooses a voice for a page language code, or nil when none fits.
func (s *Speaker) PickVoice(lang string) *Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pickVoice(s.voices, lang)
}

func pickVoice(voices []Voice, lang string) *Voice {
	prefix := "en"
	if _, ok := langTags[lang]; ok {
		prefix = lang
	}
	for _, match := range []string{prefix + "-", prefix, "en-in", "en"} {
		for i := range voices {
			if strings.HasPrefix(strings.ToLower(voices[i].Lang), match) {
				v := voices[i]
				return &v
			}
		}
	}
	return nil
}

// Speak cancels any current speech and reads text in lang. Empty text and
// engine failures are silent.
func (s *Speaker) Speak(text, lang string) {
	if !s.Available() {
		return
	}
	clean := strings.TrimSpace(text)
	if clean == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("speech engine panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()

	s.engine.Cancel()
	u := Utterance{Text: clean, Lang: LangTag(lang), Voice: pickVoice(s.voices, lang), Rate: Rate}
	if err := s.engine.Speak(u); err != nil {
		s.log.Warn("speak failed", zap.String("lang", u.Lang), zap.Error(err))
	}
}
