package entities

// GenerationRequest is what a text generator receives for one interaction.
type GenerationRequest struct {
	Interaction InteractionRecord
	Prompt      string
}

// AnalysisInput selects the text source for an analysis: an uploaded image
// id resolved by the text extractor, or lines that were already extracted.
type AnalysisInput struct {
	ImageID string   `json:"image_id,omitempty"`
	Lines   []string `json:"lines,omitempty"`
}
