package solver

import (
	"context"
	"math"

	"github.com/example/daily-scheduler/internal/timeutil"
)

// measure orders candidate assignments: primary is the objective cost,
// secondary the raw window deviation, tertiary the deviation from the uniform
// seed targets. The secondary terms decide between equal-cost assignments so
// windowed instances settle inside their windows and unconstrained instances
// spread toward their seeds.
type measure struct {
	cost      float64
	windowDev int
	seedDev   int
}

func (m measure) better(other measure) bool {
	if m.cost != other.cost {
		return m.cost < other.cost
	}
	if m.windowDev != other.windowDev {
		return m.windowDev < other.windowDev
	}
	return m.seedDev < other.seedDev
}

// frame is one level of the explicit search stack.
type frame struct {
	variable int
	bounds   domain
	// next is the candidate value to try when control returns to this
	// frame. Descending for the latest strategy.
	next int
}

// Solve runs branch-and-bound backtracking search over the problem and
// returns the minimum-penalty feasible assignment, ordered like the problem
// variables. It returns ErrInfeasible when the search exhausts the root, and
// the context error when cancellation or a deadline is observed at a
// backtrack boundary.
func Solve(ctx context.Context, p *Problem, tracer Tracer) ([]Assignment, error) {
	if len(p.Variables) == 0 {
		return nil, ErrNoVariables
	}

	maxNodes := p.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	c := compile(p)
	for _, d := range c.domains {
		if d.empty() {
			return nil, ErrInfeasible
		}
	}

	assignment := make([]int, len(p.Variables))
	for i := range assignment {
		assignment[i] = -1
	}

	var (
		best     []int
		bestCost measure
		nodes    int
	)

	stack := make([]frame, 0, len(p.Variables))
	stack = append(stack, c.openFrame(0, assignment))

	for len(stack) > 0 {
		nodes++
		if nodes%cancellationInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if best != nil && nodes >= maxNodes {
			break
		}

		top := &stack[len(stack)-1]
		i := top.variable

		value, ok := c.nextCandidate(top, assignment)
		if !ok {
			assignment[i] = -1
			stack = stack[:len(stack)-1]
			emit(tracer, TraceEvent{Kind: TraceBacktrack, Event: p.Variables[i].Event, Instance: p.Variables[i].Index, Nodes: nodes})
			continue
		}

		assignment[i] = value
		emit(tracer, TraceEvent{Kind: TraceAssign, Event: p.Variables[i].Event, Instance: p.Variables[i].Index, Value: value, Nodes: nodes})

		if i == len(p.Variables)-1 {
			total := c.measureAssignment(assignment)
			if best == nil || total.better(bestCost) {
				best = append(best[:0], assignment...)
				bestCost = total
				emit(tracer, TraceEvent{Kind: TraceIncumbent, Cost: total.cost, Nodes: nodes})
			}
			assignment[i] = -1
			continue
		}

		if best != nil {
			partial := c.measurePrefix(assignment, i+1)
			if partial+c.remainingLowerBound(i+1) > bestCost.cost {
				assignment[i] = -1
				emit(tracer, TraceEvent{Kind: TracePrune, Event: p.Variables[i].Event, Instance: p.Variables[i].Index, Value: value, Nodes: nodes})
				continue
			}
		}

		stack = append(stack, c.openFrame(i+1, assignment))
	}

	if best == nil {
		emit(tracer, TraceEvent{Kind: TraceExhausted, Nodes: nodes})
		return nil, ErrInfeasible
	}

	result := make([]Assignment, len(best))
	for i, minutes := range best {
		result[i] = Assignment{
			Event:   p.Variables[i].Event,
			Index:   p.Variables[i].Index,
			Minutes: minutes,
		}
	}
	return result, nil
}

// openFrame prepares the candidate iterator for a variable under the current
// partial assignment. The bounds are fixed for the lifetime of the frame:
// they depend only on variables assigned below it on the stack.
func (c *compiled) openFrame(i int, assignment []int) frame {
	bounds := c.dynamicBounds(i, assignment)
	f := frame{variable: i, bounds: bounds}
	if c.problem.Strategy == Latest {
		f.next = bounds.hi
	} else {
		f.next = bounds.lo
	}
	return f
}

// nextCandidate advances the frame iterator to the next feasible value, or
// reports exhaustion.
func (c *compiled) nextCandidate(f *frame, assignment []int) (int, bool) {
	if f.bounds.empty() {
		return 0, false
	}
	if c.problem.Strategy == Latest {
		for v := f.next; v >= f.bounds.lo; v -= Granularity {
			if c.feasibleAt(f.variable, v, assignment) {
				f.next = v - Granularity
				return v, true
			}
		}
		return 0, false
	}
	for v := f.next; v <= f.bounds.hi; v += Granularity {
		if c.feasibleAt(f.variable, v, assignment) {
			f.next = v + Granularity
			return v, true
		}
	}
	return 0, false
}

// contribution is the objective contribution of assigning value v to
// variable i.
func (c *compiled) contribution(i, v int) (cost float64, windowDev, seedDev int) {
	p := c.problem

	var bias int
	if p.Strategy == Latest {
		bias = p.DayEnd - v
	} else {
		bias = v - p.DayStart
	}

	applicable := c.problem.Variables[i].SoftWindows
	if len(applicable) > 0 || len(p.GlobalWindows) > 0 {
		windowDev = math.MaxInt
		if len(applicable) > 0 {
			windowDev = timeutil.MinDist(v, applicable)
		}
		if len(p.GlobalWindows) > 0 {
			if d := timeutil.MinDist(v, p.GlobalWindows); d < windowDev {
				windowDev = d
			}
		}
	}

	seedDev = v - p.Variables[i].Seed
	if seedDev < 0 {
		seedDev = -seedDev
	}

	cost = float64(bias) + p.PenaltyWeight*float64(windowDev)
	return cost, windowDev, seedDev
}

func (c *compiled) measureAssignment(assignment []int) measure {
	return c.measureRange(assignment, len(assignment))
}

func (c *compiled) measurePrefix(assignment []int, n int) float64 {
	return c.measureRange(assignment, n).cost
}

func (c *compiled) measureRange(assignment []int, n int) measure {
	var total measure
	for i := 0; i < n; i++ {
		if assignment[i] < 0 {
			continue
		}
		cost, windowDev, seedDev := c.contribution(i, assignment[i])
		total.cost += cost
		total.windowDev += windowDev
		total.seedDev += seedDev
	}
	return total
}

// remainingLowerBound is a monotone lower bound on the cost of all variables
// from index first onward: the bias term at each variable's best static
// bound, with the non-negative penalty terms dropped.
func (c *compiled) remainingLowerBound(first int) float64 {
	p := c.problem
	var bound float64
	for i := first; i < len(p.Variables); i++ {
		if p.Strategy == Latest {
			bound += float64(p.DayEnd - c.domains[i].hi)
		} else {
			bound += float64(c.domains[i].lo - p.DayStart)
		}
	}
	return bound
}
