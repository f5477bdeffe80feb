// Package optimization provides shared data structures for goal-seeking results.
package optimization

// Summary captures the outcome of one goal-seeking run in a form suitable for
// logs, JSON responses and reports.
type Summary struct {
	Scope        string   `json:"scope"`
	TargetName   string   `json:"targetName"`
	Field        string   `json:"field"`
	Method       string   `json:"method"`
	Status       string   `json:"status"`
	Target       float64  `json:"target"`
	FutureTarget float64  `json:"futureTarget"`
	Value        float64  `json:"value"`
	ValueDisplay string   `json:"valueDisplay,omitempty"`
	Achieved     float64  `json:"achieved"`
	Iterations   int      `json:"iterations"`
	Converged    bool     `json:"converged"`
	Notes        []string `json:"notes,omitempty"`
}
