package entities

// EventType tags a StreamEvent.
type EventType string

const (
	EventInit        EventType = "init"
	EventInteraction EventType = "interaction"
	EventDone        EventType = "done"
	EventError       EventType = "error"
)

// StreamEvent is one message of a streaming analysis. Payload is one of
// InitPayload, InteractionPayload, DonePayload or ErrorPayload.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type InitPayload struct {
	AnalysisID        string              `json:"analysis_id"`
	DetectedDrugs     []string            `json:"detected_drugs"`
	InteractionCount  int                 `json:"interaction_count"`
	InteractionsBasic []InteractionRecord `json:"interactions_basic"`
	Message           string              `json:"message,omitempty"`
	Disclaimer        string              `json:"disclaimer"`
}

type InteractionPayload struct {
	Index       int               `json:"index"`
	Interaction InteractionResult `json:"interaction"`
	Error       string            `json:"error,omitempty"`
}

type DonePayload struct{}

type ErrorPayload struct {
	Detail string `json:"detail"`
}
