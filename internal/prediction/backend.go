package prediction

// Health is the body of GET /health.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Message     string `json:"message,omitempty"`
}

// ModelInfo is the body of GET /model-info. Informational only.
type ModelInfo struct {
	Architecture  string   `json:"architecture"`
	InputFeatures int      `json:"input_features"`
	NumClasses    int      `json:"num_classes"`
	Classes       []string `json:"classes"`
	Accuracy      string   `json:"accuracy"`
	SampleRate    int      `json:"sample_rate"`
}

// NotesCatalog is the body of GET /notes.
type NotesCatalog struct {
	Notes        []string                `json:"notes"`
	Count        int                     `json:"count"`
	CulturalInfo map[string]CulturalInfo `json:"cultural_info"`
}

// AvailabilityStatus describes what the last health probe found.
type AvailabilityStatus int

const (
	// StatusUnknown is the state before the first probe resolves.
	StatusUnknown AvailabilityStatus = iota
	// StatusReady means the backend answered and its model is loaded.
	StatusReady
	// StatusModelNotLoaded means the backend answered without a loaded model.
	StatusModelNotLoaded
	// StatusOffline means the backend could not be reached or is not configured.
	StatusOffline
)

func (s AvailabilityStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusReady:
		return "ready"
	case StatusModelNotLoaded:
		return "model not loaded"
	case StatusOffline:
		return "offline"
	default:
		return "invalid"
	}
}

// Availability gates whether submissions are permitted.
type Availability struct {
	Status AvailabilityStatus
	Reason string
}

// Available reports whether submission is currently permitted.
func (a Availability) Available() bool {
	return a.Status == StatusReady
}
