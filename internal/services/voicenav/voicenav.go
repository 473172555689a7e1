// Package voicenav steps through the page sections by voice and reads the
// whole page aloud.
package voicenav

import (
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/i18n"
)

// excerptLen is how many characters of each section ReadFullPage speaks.
const excerptLen = 100

var navInstructions = map[string]string{
	"en": "Press next or previous to navigate.",
	"hi": "अगले या पिछले पर दबाकर नेविगेट करें।",
	"pa": "ਅਗਲੇ ਜਾਂ ਪਿਛਲੇ 'ਤੇ ਦਬਾ ਕੇ ਨੈਵੀਗੇਟ ਕਰੋ।",
	"kn": "ಮುಂದೆ ಅಥವಾ ಹಿಂದೆ ಒತ್ತಿ ನ್ಯಾವಿಗೇಟ್ ಮಾಡಿ।",
	"te": "తదుపరి లేదా మునుపటి నొక్కి నావిగేట్ చేయండి।",
}

// Speaker is the speech output the navigator announces through.
type Speaker interface {
	Speak(text, lang string)
}

// Navigator owns the voice-mode flag and section cursor.
type Navigator struct {
	doc     dom.Document
	speaker Speaker
	locales i18n.Table

	mu      sync.Mutex
	enabled bool
	cursor  int
}

func New(doc dom.Document, speaker Speaker, locales i18n.Table) *Navigator {
	if locales == nil {
		locales = i18n.Table{}
	}
	return &Navigator{doc: doc, speaker: speaker, locales: locales}
}

// Start enters voice mode at the first section and announces it.
func (n *Navigator) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = true
	n.cursor = 0
	n.announce()
}

// Next moves to the following section, wrapping to the first.
func (n *Navigator) Next() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.enabled {
		return
	}
	n.cursor = (n.cursor + 1) % len(model.Sections)
	n.announce()
}

// Previous moves to the preceding section, wrapping to the last.
func (n *Navigator) Previous() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.enabled {
		return
	}
	if n.cursor == 0 {
		n.cursor = len(model.Sections) - 1
	} else {
		n.cursor--
	}
	n.announce()
}

// Stop leaves voice mode; the cursor is kept until the next Start.
func (n *Navigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = false
}

func (n *Navigator) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

func (n *Navigator) Cursor() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor
}

// Current is the section under the cursor.
func (n *Navigator) Current() model.Section {
	n.mu.Lock()
	defer n.mu.Unlock()
	return model.Sections[n.cursor]
}

// Lang is the selected page language, "en" when unset.
func (n *Navigator) Lang() string {
	if v, ok := n.doc.Value(dom.LangSelect); ok && v != "" {
		return v
	}
	return i18n.DefaultLang
}

// Announcement builds the spoken text for a section in lang.
func (n *Navigator) Announcement(s model.Section, lang string) string {
	instr, ok := navInstructions[lang]
	if !ok {
		instr = navInstructions["en"]
	}
	return n.locales.Text(lang, s.TitleKey) + ". " + n.locales.Text(lang, s.DescKey) + ". " + instr
}

func (n *Navigator) announce() {
	s := model.Sections[n.cursor]
	lang := n.Lang()
	n.doc.ScrollIntoView(s.ID)
	if n.speaker != nil {
		n.speaker.Speak(n.Announcement(s, lang), lang)
	}
}

// PageText is what ReadFullPage speaks: heading and opening text of every
// section present on the page.
func (n *Navigator) PageText() string {
	var b strings.Builder
	for _, id := range model.SectionIDs() {
		if !n.doc.Exists(id) {
			continue
		}
		heading, _ := n.doc.HeadingText(id)
		content, _ := n.doc.TextContent(id)
		b.WriteString(heading)
		b.WriteString(". ")
		b.WriteString(truncate(content, excerptLen))
		b.WriteString(". ")
	}
	return b.String()
}

// ReadFullPage speaks PageText as one utterance in the selected language.
func (n *Navigator) ReadFullPage() {
	if n.speaker == nil {
		return
	}
	n.speaker.Speak(n.PageText(), n.Lang())
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
