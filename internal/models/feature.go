package models

// FeatureRequest optionally carries the client's current form values. When
// absent the stored document is used as prompt input.
type FeatureRequest struct {
	Inputs *DailyRecord `json:"inputs,omitempty"`
}

// FeatureResult is the outcome of one AI feature run.
type FeatureResult struct {
	Feature   string       `json:"feature"`
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
	Fields    Fields       `json:"fields,omitempty"`
	Persisted bool         `json:"persisted"`
	Record    *DailyRecord `json:"record,omitempty"`
}

type DispatchRequest struct {
	StudentID string `json:"studentId"`
	Content   string `json:"content,omitempty"`
	Date      string `json:"date,omitempty"`
}

type DispatchResponse struct {
	Message string `json:"message"`
}
