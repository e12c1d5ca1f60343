package model

// Severity ranks how urgent a detected issue is.
type Severity string

// Severity levels, highest first.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is one pattern match reported by the rule engine.
type Issue struct {
	File     Path     `json:"file"`
	Line     int      `json:"line"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Snippet  string   `json:"snippet,omitempty"`
}
