package probe

import "time"

// Outcome is the classified result of a probe.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeUnauthorized     Outcome = "unauthorized"
	OutcomeUnexpectedStatus Outcome = "unexpected_status"
	OutcomeNetworkError     Outcome = "network_error"
)

// OK reports whether the outcome counts as a verified login.
func (o Outcome) OK() bool {
	return o == OutcomeSuccess
}

// Plant is the part of a search hit the report shows. Absent fields are "N/A".
type Plant struct {
	Symbol string
	Blurb  string
}

// PlantSummary describes a 200 body that parsed as a JSON array.
type PlantSummary struct {
	Count int
	First *Plant
}

// Result is the outcome of a single probe.
type Result struct {
	Endpoint   string
	Outcome    Outcome
	StatusCode int // 0 for network errors
	Body       string

	// Plants is nil when the body was not a JSON array. When the array
	// decoded but its first element did not, Plants carries the count
	// with a nil First. ParseErr says why in both cases.
	Plants   *PlantSummary
	ParseErr error

	Error        string
	ResponseTime time.Duration
	CheckedAt    time.Time
}
