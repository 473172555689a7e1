package model

// Section is a page region reachable by voice navigation. TitleKey and DescKey
// are localization keys.
type Section struct {
	ID       string
	TitleKey string
	DescKey  string
}

// Sections is the fixed navigation order.
var Sections = []Section{
	{ID: "hero", TitleKey: "hero_title", DescKey: "hero_sub"},
	{ID: "features", TitleKey: "features_title", DescKey: "feat_soil_sub"},
	{ID: "demo", TitleKey: "demo_title", DescKey: "results_intro"},
	{ID: "market", TitleKey: "market_title", DescKey: "market_placeholder"},
	{ID: "weather", TitleKey: "weather_title", DescKey: "weather_placeholder"},
	{ID: "seasonality", TitleKey: "seasonality_title", DescKey: "season_kharif_items"},
	{ID: "cases", TitleKey: "cases_title", DescKey: "case1_desc"},
	{ID: "help", TitleKey: "help_title", DescKey: "help_ivr_text"},
}

// SectionIDs returns the section ids in navigation order.
func SectionIDs() []string {
	ids := make([]string, len(Sections))
	for i, s := range Sections {
		ids[i] = s.ID
	}
	return ids
}
