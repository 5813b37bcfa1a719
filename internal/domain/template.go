package domain

// ExecutionTemplate is a named parameter bundle consumed by the execution
// simulator. Templates are static configuration, read-only at simulation time;
// CRUD lives outside the core.
type ExecutionTemplate struct {
	Name            string  `json:"name"`
	Token           string  `json:"token"`
	SizeMin         float64 `json:"size_min"`
	SizeMax         float64 `json:"size_max"`
	TargetSpreadBps float64 `json:"target_spread_bps"`
	Leverage        float64 `json:"leverage"`
	MaxLatencyMS    float64 `json:"max_latency_ms"`
}

// ClampSize bounds a requested trade size to the template's size range.
// A zero SizeMax means unbounded above.
func (t ExecutionTemplate) ClampSize(size float64) float64 {
	if t.SizeMin > 0 && size < t.SizeMin {
		return t.SizeMin
	}
	if t.SizeMax > 0 && size > t.SizeMax {
		return t.SizeMax
	}
	return size
}
