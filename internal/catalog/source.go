package catalog

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Source produces the entries an index is built from.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// FileSource reads a bundled menu from a YAML (or JSON) document with a
// top-level "items" list.
type FileSource struct {
	Path string
}

type fileEntry struct {
	ID                int64    `koanf:"id"`
	VariantID         int64    `koanf:"variant_id"`
	Name              string   `koanf:"name"`
	Description       string   `koanf:"description"`
	Category          string   `koanf:"category"`
	Price             string   `koanf:"price"`
	Image             string   `koanf:"image"`
	Restaurant        string   `koanf:"restaurant"`
	SpicinessLevel    int      `koanf:"spiciness_level"`
	SweetnessLevel    int      `koanf:"sweetness_level"`
	DietaryPreference []string `koanf:"dietary_preference"`
	HealthinessScore  int      `koanf:"healthiness_score"`
	Popularity        int      `koanf:"popularity"`
	CaffeineLevel     string   `koanf:"caffeine_level"`
	SufficientFor     int      `koanf:"sufficient_for"`
}

func (s FileSource) Load(ctx context.Context) ([]Entry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", s.Path, err)
	}

	var raw []fileEntry
	if err := k.Unmarshal("items", &raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", s.Path, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		price, err := parsePrice(r.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog id %d: %w", r.ID, err)
		}
		entries = append(entries, Entry{
			ID:                r.ID,
			VariantID:         r.VariantID,
			Name:              r.Name,
			Description:       r.Description,
			Category:          r.Category,
			Price:             price,
			Image:             r.Image,
			Restaurant:        r.Restaurant,
			SpicinessLevel:    r.SpicinessLevel,
			SweetnessLevel:    r.SweetnessLevel,
			DietaryPreference: r.DietaryPreference,
			HealthinessScore:  r.HealthinessScore,
			Popularity:        r.Popularity,
			CaffeineLevel:     r.CaffeineLevel,
			SufficientFor:     r.SufficientFor,
		})
	}
	return entries, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return d, nil
}

// Load builds an index from src.
func Load(ctx context.Context, src Source) (*Index, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog source returned no entries")
	}
	return New(entries)
}
