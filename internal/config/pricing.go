package config

// ModelPricing is the input and output cost per million tokens in USD.
type ModelPricing struct {
	Input  float64
	Output float64
}

// Fallback pricing for models not in the table, chosen conservative.
const (
	unknownInputPerM  = 1.0
	unknownOutputPerM = 5.0
)

// pricingTable is hardcoded for popular OpenRouter models.
var pricingTable = map[string]ModelPricing{
	// Anthropic
	"anthropic/claude-opus-4.6":   {Input: 15.00, Output: 75.00},
	"anthropic/claude-opus-4.5":   {Input: 15.00, Output: 75.00},
	"anthropic/claude-sonnet-4.5": {Input: 3.00, Output: 15.00},
	"anthropic/claude-haiku-4.5":  {Input: 0.80, Output: 4.00},
	"anthropic/claude-3.5-haiku":  {Input: 0.80, Output: 4.00},
	// OpenAI
	"openai/gpt-5":        {Input: 2.50, Output: 10.00},
	"openai/gpt-4.1":      {Input: 2.00, Output: 8.00},
	"openai/gpt-4.1-mini": {Input: 0.40, Output: 1.60},
	"openai/gpt-4.1-nano": {Input: 0.10, Output: 0.40},
	"openai/o3":           {Input: 10.00, Output: 40.00},
	"openai/o4-mini":      {Input: 1.10, Output: 4.40},
	// Google
	"google/gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
	"google/gemini-2.5-flash": {Input: 0.15, Output: 0.60},
	"google/gemini-2.0-flash": {Input: 0.10, Output: 0.40},
	// Meta
	"meta-llama/llama-4-maverick": {Input: 0.50, Output: 0.70},
	"meta-llama/llama-4-scout":    {Input: 0.15, Output: 0.40},
	// DeepSeek
	"deepseek/deepseek-r1":           {Input: 0.55, Output: 2.19},
	"deepseek/deepseek-chat-v3-0324": {Input: 0.27, Output: 1.10},
	// Mistral
	"mistralai/mistral-large": {Input: 2.00, Output: 6.00},
	"mistralai/mistral-small": {Input: 0.10, Output: 0.30},
}

// GetModelPricing returns pricing for a model slug and whether it is known.
func GetModelPricing(model string) (ModelPricing, bool) {
	p, ok := pricingTable[model]
	return p, ok
}

// EstimateCost estimates the USD cost of a request from its token counts.
// Unknown models use a conservative fallback rate.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricingTable[model]
	if !ok {
		p = ModelPricing{Input: unknownInputPerM, Output: unknownOutputPerM}
	}
	return float64(inputTokens)*p.Input/1_000_000 + float64(outputTokens)*p.Output/1_000_000
}
