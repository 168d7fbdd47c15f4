// -----------------------------------------------------------------------
// Callback - Wire contract of the external worker's webhook calls
// -----------------------------------------------------------------------

package models

// Callback phases reported by the external worker
const (
	CallbackPhaseProgress  = "progress"
	CallbackPhaseCompleted = "completed"
	CallbackPhaseFailed    = "failed"
)

// CallbackPayload is the JSON body of a worker webhook call
type CallbackPayload struct {
	JobID    string                 `json:"jobId"`
	Phase    string                 `json:"phase"`
	Step     string                 `json:"step,omitempty"`
	Progress int                    `json:"progress,omitempty"` // 0-100
	Message  string                 `json:"message,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`

	// Auth fields; the body token takes priority over headers
	CallbackToken string `json:"callbackToken,omitempty"`
	ErrorMessage  string `json:"error,omitempty"`
}

// TranscriptionText returns data.transcription.text, if present
func (p *CallbackPayload) TranscriptionText() (string, bool) {
	return p.nestedString("transcription", "text")
}

// TranscriptionHTML returns data.transcription.html, if present
func (p *CallbackPayload) TranscriptionHTML() (string, bool) {
	return p.nestedString("transcription", "html")
}

// StructuredData returns data.structured_data as a map, if present and well formed
func (p *CallbackPayload) StructuredData() (map[string]interface{}, bool) {
	raw, ok := p.Data["structured_data"]
	if !ok {
		return nil, false
	}
	m, ok := raw.(map[string]interface{})
	return m, ok
}

// HasFinalData reports whether the payload carries the final result of the
// job's primary operation. A final transcription payload must not be
// misclassified as generic progress even when phase says "progress".
func (p *CallbackPayload) HasFinalData() bool {
	if _, ok := p.TranscriptionText(); ok {
		return true
	}
	if _, ok := p.TranscriptionHTML(); ok {
		return true
	}
	if _, ok := p.StructuredData(); ok {
		return true
	}
	return false
}

func (p *CallbackPayload) nestedString(outer, inner string) (string, bool) {
	raw, ok := p.Data[outer]
	if !ok {
		return "", false
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := m[inner].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// CallbackAck is the acknowledgment envelope returned to the worker
type CallbackAck struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}
