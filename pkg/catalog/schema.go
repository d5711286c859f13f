// pkg/catalog/schema.go
package catalog

// File is the on-disk catalog document.
type File struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Cards       []Entry `json:"cards"`
}

// Entry is one card a user could apply for. Categories maps canonical
// category names to earn rates in percent.
type Entry struct {
	Name           string             `json:"name"`
	Bank           string             `json:"bank"`
	RewardType     string             `json:"reward_type"`
	AnnualFee      float64            `json:"annual_fee"`
	KeyBenefits    []string           `json:"key_benefits"`
	TargetAudience string             `json:"target_audience,omitempty"`
	MinIncome      *float64           `json:"min_income,omitempty"`
	Categories     map[string]float64 `json:"categories"`
	Notes          string             `json:"notes,omitempty"`
}

const fileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "cards"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "lastUpdated": {"type": "string"},
    "cards": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "bank", "reward_type", "annual_fee"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "bank": {"type": "string", "minLength": 1},
          "reward_type": {"enum": ["points", "miles", "cashback"]},
          "annual_fee": {"type": "number", "minimum": 0},
          "key_benefits": {"type": "array", "items": {"type": "string"}},
          "target_audience": {"enum": ["", "travel", "cashback", "balanced"]},
          "min_income": {"type": ["number", "null"], "minimum": 0},
          "notes": {"type": "string"},
          "categories": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "travel":   {"$ref": "#/definitions/rate"},
              "dining":   {"$ref": "#/definitions/rate"},
              "shopping": {"$ref": "#/definitions/rate"},
              "online":   {"$ref": "#/definitions/rate"},
              "fuel":     {"$ref": "#/definitions/rate"},
              "general":  {"$ref": "#/definitions/rate"},
              "other":    {"$ref": "#/definitions/rate"}
            }
          }
        }
      }
    }
  },
  "definitions": {
    "rate": {"type": "number", "minimum": 0, "maximum": 100}
  }
}`
