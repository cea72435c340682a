// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single optimization directive. Original
// and Value are scenario lever multipliers; Achieved is the goal metric at
// Value.
type Summary struct {
	Scope           string   `json:"scope"`
	TargetName      string   `json:"targetName"`
	Field           string   `json:"field"`
	Goal            string   `json:"goal"`
	Target          float64  `json:"target"`
	Original        float64  `json:"original"`
	Value           float64  `json:"value"`
	Achieved        float64  `json:"achieved"`
	Residual        float64  `json:"residual"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Notes           []string `json:"notes,omitempty"`
	OriginalDisplay string   `json:"originalDisplay,omitempty"`
	ValueDisplay    string   `json:"valueDisplay,omitempty"`
}
