package solver

// TraceEvent is one structured record emitted by the search when tracing is
// enabled. Traces never influence the returned assignment.
type TraceEvent struct {
	Kind     string
	Event    string
	Instance int
	Value    int
	Cost     float64
	Nodes    int
}

// Trace record kinds.
const (
	TraceAssign    = "assign"
	TraceBacktrack = "backtrack"
	TracePrune     = "prune"
	TraceIncumbent = "incumbent"
	TraceExhausted = "exhausted"
)

// Tracer receives trace records from the search.
type Tracer interface {
	Trace(event TraceEvent)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(event TraceEvent)

// Trace implements Tracer.
func (f TracerFunc) Trace(event TraceEvent) {
	f(event)
}

func emit(tracer Tracer, event TraceEvent) {
	if tracer != nil {
		tracer.Trace(event)
	}
}
