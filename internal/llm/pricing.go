package llm

import "strings"

// ModelCost holds USD prices per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown. Dated
// or vendor-prefixed IDs ("claude-sonnet-4-5-20250929",
// "anthropic/claude-sonnet-4.5") fall back to the longest known prefix.
func LookupCost(modelID string) *ModelCost {
	id := modelID
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	id = strings.ReplaceAll(id, ".", "-")

	if c, ok := modelCosts[id]; ok {
		return &c
	}
	best := ""
	for name := range modelCosts {
		if strings.HasPrefix(id, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return nil
	}
	c := modelCosts[best]
	return &c
}

// modelCosts covers the models the provider defaults resolve to, plus
// common overrides. Keys use dashes in place of dots.
var modelCosts = map[string]ModelCost{
	// Anthropic
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4":   {3, 15},
	"claude-sonnet-4-5": {3, 15},
	"claude-opus-4-1":   {15, 75},
	"claude-opus-4-5":   {5, 25},

	// OpenAI
	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4-1":      {2, 8},
	"gpt-4-1-mini": {0.4, 1.6},
	"gpt-5":        {1.25, 10},
	"gpt-5-mini":   {0.25, 2},

	// Google
	"gemini-2-0-flash":      {0.1, 0.4},
	"gemini-2-5-flash":      {0.3, 2.5},
	"gemini-2-5-flash-lite": {0.1, 0.4},
	"gemini-2-5-pro":        {1.25, 10},
}
