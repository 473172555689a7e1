package model

// Recommendation is the normalized crop advice returned for one soil sample.
type Recommendation struct {
	Crop     string  `json:"crop"`
	SoilType string  `json:"soil_type"`
	NeedN    float64 `json:"need_n"` // kg/ha nitrogen gap
	NeedP    float64 `json:"need_p"`
	NeedK    float64 `json:"need_k"`
	PestTip  string  `json:"pest_tip"`
	Reason   string  `json:"reason"`
	District string  `json:"district"`
}
