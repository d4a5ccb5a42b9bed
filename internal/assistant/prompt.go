package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
)

const formatInstruction = `Return the response strictly in the format { "text": "", "items": [{ "id": number, "name": string, "price": string }], "conclusion": "" }, ` +
	`where "text" is a short, playful answer of around 25 words, "items" lists the matching menu items with only id, name and price, ` +
	`and "conclusion" is a brief closing remark. Include at least 2 and at most 6 items, fewer only when the request clearly calls for it. ` +
	`Do not add any other text, explanation or formatting.`

// promptEntry is the slice of a catalog entry the model needs.
type promptEntry struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	Price             string   `json:"price"`
	SpicinessLevel    int      `json:"spicinessLevel,omitempty"`
	SweetnessLevel    int      `json:"sweetnessLevel,omitempty"`
	DietaryPreference []string `json:"dietaryPreference,omitempty"`
	HealthinessScore  int      `json:"healthinessScore,omitempty"`
	CaffeineLevel     string   `json:"caffeineLevel,omitempty"`
	SufficientFor     int      `json:"sufficientFor,omitempty"`
}

func menuJSON(entries []catalog.Entry) (string, error) {
	items := make([]promptEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, promptEntry{
			ID:                e.ID,
			Name:              e.Name,
			Description:       e.Description,
			Category:          e.Category,
			Price:             e.Price.StringFixed(2),
			SpicinessLevel:    e.SpicinessLevel,
			SweetnessLevel:    e.SweetnessLevel,
			DietaryPreference: e.DietaryPreference,
			HealthinessScore:  e.HealthinessScore,
			CaffeineLevel:     e.CaffeineLevel,
			SufficientFor:     e.SufficientFor,
		})
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal menu: %w", err)
	}
	return string(b), nil
}

// buildTextPrompt embeds the menu, the prior conversation and the query.
func buildTextPrompt(menu, history, query string) string {
	var b strings.Builder
	b.WriteString("Here is the menu data: ")
	b.WriteString(menu)
	b.WriteString(".\n")
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	b.WriteString("Based on this, answer the user's query: ")
	b.WriteString(query)
	b.WriteString("\n")
	b.WriteString(formatInstruction)
	return b.String()
}

// buildImagePrompt asks for matches to an image description.
func buildImagePrompt(menu, history, description string) string {
	var b strings.Builder
	b.WriteString("Here is the menu data: ")
	b.WriteString(menu)
	b.WriteString(".\n")
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Based on this image description: %q, suggest matching menu items.\n", description)
	b.WriteString(formatInstruction)
	return b.String()
}
