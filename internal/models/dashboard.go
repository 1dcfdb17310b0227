package models

import "encoding/json"

// KPI is one dashboard card.
type KPI struct {
	Key   string      `json:"key"`
	Label string      `json:"label"`
	Value json.Number `json:"value"`
	// Tag is the lead report the card links to, empty when it links nowhere.
	Tag string `json:"tag,omitempty"`
}
