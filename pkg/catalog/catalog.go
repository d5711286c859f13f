// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"
)

var schema = validation.MustCompileSchema(fileSchema)

// Load reads and validates a catalog file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates data against the catalog schema and decodes it. Cards
// repeating an earlier (name, bank) pair are rejected.
func Parse(data []byte) (*File, error) {
	if err := schema.ValidateBytes(data); err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]int, len(f.Cards))
	for i, e := range f.Cards {
		key := strings.ToLower(strings.TrimSpace(e.Name)) + "|" + strings.ToLower(strings.TrimSpace(e.Bank))
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("cards[%d] duplicates cards[%d] (%s, %s)", i, prev, e.Name, e.Bank)
		}
		seen[key] = i
	}
	return &f, nil
}

// AvailableCards converts the entries into catalog models.
func (f *File) AvailableCards() []models.AvailableCard {
	out := make([]models.AvailableCard, 0, len(f.Cards))
	for _, e := range f.Cards {
		rt, _ := models.ParseRewardType(e.RewardType)
		pref, _ := models.ParsePreference(e.TargetAudience)

		rates := make(map[models.Category]float64, len(e.Categories))
		for name, rate := range e.Categories {
			if cat, ok := models.ParseCategory(name); ok {
				rates[cat] = rate
			}
		}

		benefits := e.KeyBenefits
		if benefits == nil {
			benefits = []string{}
		}
		out = append(out, models.AvailableCard{
			Name:           strings.TrimSpace(e.Name),
			Bank:           strings.TrimSpace(e.Bank),
			RewardType:     rt,
			AnnualFee:      e.AnnualFee,
			KeyBenefits:    benefits,
			TargetAudience: pref,
			MinIncome:      e.MinIncome,
			CategoryRates:  rates,
		})
	}
	return out
}
