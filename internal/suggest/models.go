package suggest

// Suggestion is one recommended action returned by the model.
// Confidence is kept verbatim ("high", "0.85", "85%").
type Suggestion struct {
	Text       string `json:"text" jsonschema:"description=Actionable suggestion"`
	Confidence string `json:"confidence" jsonschema:"description=low|medium|high or a number or a percentage"`
	Reasoning  string `json:"reasoning" jsonschema:"description=Short explanation for this suggestion"`
}

// SuggestionBatch is the validated payload of a model response.
type SuggestionBatch struct {
	Suggestions []Suggestion `json:"suggestions" jsonschema:"minItems=1"`
}

// requiredFields is the order in which suggestion fields are checked.
var requiredFields = []string{"text", "confidence", "reasoning"}
