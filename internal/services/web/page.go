package web

import (
	"html"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/i18n"
)

// NewPage builds the server-side page: every section with its localized
// heading and description, plus the empty widget targets.
func NewPage(locales i18n.Table, lang string) *dom.Memory {
	if lang == "" {
		lang = i18n.DefaultLang
	}
	doc := dom.NewMemory(
		dom.WeatherBoxMain, dom.WeatherBox,
		dom.MarketTableMain, dom.MarketTable,
		dom.AppProgress, dom.AppProgressBar, dom.RecProgressText,
		dom.RecResult, dom.LangSelect,
	)
	for _, s := range model.Sections {
		doc.Add(s.ID, "<h2>"+html.EscapeString(locales.Text(lang, s.TitleKey))+"</h2><p>"+
			html.EscapeString(locales.Text(lang, s.DescKey))+"</p>")
	}
	doc.SetStyle(dom.AppProgress, "display", "none")
	doc.SetValue(dom.LangSelect, lang)
	return doc
}
