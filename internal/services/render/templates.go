package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
)

// Price column headers: live quotes and the static fallback label differently.
const (
	UnitQtl     = "₹/qtl"
	UnitQuintal = "₹/quintal"
)

var weatherTmpl = template.Must(template.New("weather").Parse(`
<div class="weather-info">
  <h6>Current Weather in {{.District}}</h6>
  <div class="row g-2">
    <div class="col-6">
      <strong>Temperature:</strong> {{.Temperature}}°C
    </div>
    <div class="col-6">
      <strong>Humidity:</strong> {{.Humidity}}%
    </div>
    <div class="col-6">
      <strong>Conditions:</strong> {{.Description}}
    </div>
    <div class="col-6">
      <strong>Wind:</strong> {{.WindSpeed}} m/s
    </div>
  </div>
</div>
`))

var marketTmpl = template.Must(template.New("market").Parse(
	`<table class="table table-sm"><thead><tr><th>Date</th><th>Mandi</th><th>Commodity</th><th>Price ({{.Unit}})</th></tr></thead><tbody>` +
		`{{range .Rows}}<tr><td>{{.Date}}</td><td>{{.Mandi}}</td><td>{{.Commodity}}</td><td>₹ {{.Price}}</td></tr>{{end}}` +
		`</tbody></table>`))

var recommendationTmpl = template.Must(template.New("recommendation").Parse(`
<div class="rec-card">
  <h5>Recommended crop: {{.Crop}}</h5>
  <p><strong>Soil type:</strong> {{.SoilType}}</p>
  <ul class="fert-gaps">
    <li>Nitrogen gap: {{.NeedN}} kg/ha</li>
    <li>Phosphorus gap: {{.NeedP}} kg/ha</li>
    <li>Potassium gap: {{.NeedK}} kg/ha</li>
  </ul>
  <p><strong>Pest tip:</strong> {{.PestTip}}</p>
  <p class="text-muted">{{.Reason}}</p>
</div>
`))

type weatherView struct {
	District    string
	Temperature string
	Humidity    string
	Description string
	WindSpeed   string
}

// WeatherHTML renders the weather block; fallbackDistrict is shown when the
// snapshot carries no district.
func WeatherHTML(w model.Weather, fallbackDistrict string) (string, error) {
	district := w.District
	if district == "" {
		district = fallbackDistrict
	}
	var buf bytes.Buffer
	err := weatherTmpl.Execute(&buf, weatherView{
		District:    district,
		Temperature: strconv.FormatFloat(w.Temperature, 'f', 1, 64),
		Humidity:    number(w.Humidity),
		Description: w.Description,
		WindSpeed:   number(w.WindSpeed),
	})
	return buf.String(), err
}

// MarketTableHTML renders at most model.MaxMarketRows rows.
func MarketTableHTML(rows []model.MarketRow, unit string) (string, error) {
	if len(rows) > model.MaxMarketRows {
		rows = rows[:model.MaxMarketRows]
	}
	var buf bytes.Buffer
	err := marketTmpl.Execute(&buf, struct {
		Unit string
		Rows []model.MarketRow
	}{unit, rows})
	return buf.String(), err
}

func RecommendationHTML(rec model.Recommendation) (string, error) {
	var buf bytes.Buffer
	err := recommendationTmpl.Execute(&buf, struct {
		model.Recommendation
		NeedN, NeedP, NeedK string
	}{rec, number(rec.NeedN), number(rec.NeedP), number(rec.NeedK)})
	return buf.String(), err
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
