package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
)

// DefaultPestTip accompanies every recommendation.
const DefaultPestTip = "Monitor for common pests; use neem-based spray if early signs appear."

// RecommendQuery carries the form values as typed by the farmer.
type RecommendQuery struct {
	District   string `json:"district"`
	Taluk      string `json:"taluk"` // accepted, not sent
	Nitrogen   string `json:"nitrogen"`
	Phosphorus string `json:"phosphorus"`
	Potassium  string `json:"potassium"`
	PH         string `json:"ph"`
	LastCrop   string `json:"last_crop"`
}

type recommendRequest struct {
	District   string  `json:"district"`
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	PH         float64 `json:"ph"`
	LastCrop   string  `json:"last_crop"`
}

// recommendResponse tolerates partial payloads: gaps and confidence may be
// numbers, numeric strings or missing, and default to 0.
type recommendResponse struct {
	Crop          string
	SoilType      string
	NitrogenGap   float64
	PhosphorusGap float64
	PotassiumGap  float64
	Reasoning     string
	Confidence    float64
}

func (r *recommendResponse) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	r.Crop, _ = m["crop"].(string)
	r.SoilType, _ = m["soil_type"].(string)
	r.Reasoning, _ = m["reasoning"].(string)
	r.Confidence, _ = model.AsFloat(m["confidence"])
	if gap, ok := m["fertilizer_gap"].(map[string]any); ok {
		r.NitrogenGap, _ = model.AsFloat(gap["nitrogen_gap"])
		r.PhosphorusGap, _ = model.AsFloat(gap["phosphorus_gap"])
		r.PotassiumGap, _ = model.AsFloat(gap["potassium_gap"])
	}
	return nil
}

// Recommend asks the backend for a crop. The result is unavailable when the
// backend cannot be reached or answers without a crop.
func (c *Client) Recommend(ctx context.Context, q RecommendQuery) Result[model.Recommendation] {
	payload := recommendRequest{
		District:   strings.ToLower(q.District),
		Nitrogen:   parseNumber(q.Nitrogen, 0),
		Phosphorus: parseNumber(q.Phosphorus, 0),
		Potassium:  parseNumber(q.Potassium, 0),
		PH:         parseNumber(q.PH, 7.0),
		LastCrop:   q.LastCrop,
	}
	res := Fetch[recommendResponse](ctx, c, "/recommend", http.MethodPost, payload)
	data, ok := res.Get()
	if !ok || data.Crop == "" {
		return Unavailable[model.Recommendation]()
	}

	rec := model.Recommendation{
		Crop:     data.Crop,
		SoilType: data.SoilType,
		NeedN:    data.NitrogenGap,
		NeedP:    data.PhosphorusGap,
		NeedK:    data.PotassiumGap,
		PestTip:  DefaultPestTip,
		Reason:   data.Reasoning,
		District: q.District,
	}
	if rec.Reason == "" {
		rec.Reason = confidenceReason(data.Confidence)
	}
	return Success(rec)
}

func confidenceReason(confidence float64) string {
	return fmt.Sprintf("AI recommendation (%d%% conf.)", int(math.Round(confidence*100)))
}

// parseNumber reads a form value; blank, unparsable, zero and non-finite
// values fall back to def.
func parseNumber(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
