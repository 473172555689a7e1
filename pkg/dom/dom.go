// Package dom abstracts the advisory page: elements addressed by id whose
// inner HTML, inline style, attributes and form value can be read and written.
package dom

// Element ids used across the advisory page.
const (
	WeatherBoxMain  = "weatherBoxMain"
	WeatherBox      = "weatherBox"
	MarketTableMain = "marketTableMain"
	MarketTable     = "marketTable"
	AppProgress     = "appProgress"
	AppProgressBar  = "appProgressBar"
	RecProgressText = "recProgressText"
	RecResult       = "recResult"
	LangSelect      = "langSelect"
)

// Document is the page an advisory component mutates. Every method reports
// false when the element does not exist; callers treat that as "skip".
type Document interface {
	Exists(id string) bool
	HTML(id string) (string, bool)
	SetHTML(id, html string) bool
	// SetText replaces the element content with escaped plain text.
	SetText(id, text string) bool
	// TextContent is the concatenated text of the element and its descendants.
	TextContent(id string) (string, bool)
	// HeadingText is the text of the first h1..h6 inside the element, "" if none.
	HeadingText(id string) (string, bool)
	Style(id, prop string) (string, bool)
	SetStyle(id, prop, value string) bool
	Attr(id, name string) (string, bool)
	SetAttr(id, name, value string) bool
	Value(id string) (string, bool)
	// ScrollIntoView smoothly scrolls the element into the viewport.
	ScrollIntoView(id string) bool
}
