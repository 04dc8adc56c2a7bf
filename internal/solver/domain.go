package solver

import (
	"github.com/example/daily-scheduler/internal/timeutil"
)

// domain tracks the static feasible interval of one variable. The bounds fold
// in the day interval, clock bounds, the spacing owed to earlier and later
// instances of the same event, and the bounds propagated along ordering
// edges. Gap and separation interactions with other assigned variables are
// enforced lazily at assignment time.
type domain struct {
	lo int
	hi int
}

func (d domain) empty() bool {
	return d.lo > d.hi
}

// compiled holds the problem in index form for the search loop.
type compiled struct {
	problem *Problem

	domains []domain
	// varsOf maps an event name to its variable indices, ascending by
	// instance index.
	varsOf map[string][]int
	// prev[i] is the variable index of the previous instance of the same
	// event, or -1.
	prev []int
	// predecessors[i] lists variable indices whose events must come at or
	// before variable i's event (direct ordering edges).
	predecessors [][]int
	// separations[i] lists (other variable index, minutes) pairs that
	// variable i must stay apart from.
	separations [][]separationRef
	// tiedTo[i] lists variable indices that must share variable i's time.
	tiedTo [][]int
}

type separationRef struct {
	other   int
	minutes int
}

// snapUp aligns v to the value grid, rounding toward the day end.
func (c *compiled) snapUp(v int) int {
	base := c.problem.DayStart
	if v <= base {
		return base
	}
	offset := v - base
	if rem := offset % Granularity; rem != 0 {
		offset += Granularity - rem
	}
	return base + offset
}

// snapDown aligns v to the value grid, rounding toward the day start. A value
// below the grid base maps below it, so the resulting interval reads as empty
// against any on-grid lower bound.
func (c *compiled) snapDown(v int) int {
	base := c.problem.DayStart
	if v < base {
		return base - Granularity
	}
	offset := v - base
	offset -= offset % Granularity
	return base + offset
}

// compile builds index structures and the initial domains, then runs the
// static propagation passes over ordering edges.
func compile(p *Problem) *compiled {
	c := &compiled{
		problem:      p,
		domains:      make([]domain, len(p.Variables)),
		varsOf:       make(map[string][]int),
		prev:         make([]int, len(p.Variables)),
		predecessors: make([][]int, len(p.Variables)),
		separations:  make([][]separationRef, len(p.Variables)),
		tiedTo:       make([][]int, len(p.Variables)),
	}

	for i, v := range p.Variables {
		c.varsOf[v.Event] = append(c.varsOf[v.Event], i)
		c.prev[i] = -1
		if v.Index > 0 {
			c.prev[i] = i - 1
		}
	}

	for i, v := range p.Variables {
		lo := p.DayStart
		hi := p.DayEnd
		if v.MinClock > lo {
			lo = v.MinClock
		}
		if v.MaxClock > 0 && v.MaxClock < hi {
			hi = v.MaxClock
		}
		// Earlier instances need room below, later instances room above.
		lo += v.Index * v.Gap
		hi -= (v.Count - 1 - v.Index) * v.Gap
		c.domains[i] = domain{lo: c.snapUp(lo), hi: c.snapDown(hi)}
	}

	for _, ordering := range p.Orderings {
		beforeVars := c.varsOf[ordering.Before]
		afterVars := c.varsOf[ordering.After]
		if len(beforeVars) == 0 || len(afterVars) == 0 {
			continue
		}
		for _, i := range afterVars {
			c.predecessors[i] = append(c.predecessors[i], beforeVars...)
		}
	}

	for _, separation := range p.Separations {
		for _, i := range c.varsOf[separation.A] {
			for _, j := range c.varsOf[separation.B] {
				c.separations[i] = append(c.separations[i], separationRef{other: j, minutes: separation.Minutes})
				c.separations[j] = append(c.separations[j], separationRef{other: i, minutes: separation.Minutes})
			}
		}
	}

	for _, tie := range p.Ties {
		aVars := c.varsOf[tie.A]
		bVars := c.varsOf[tie.B]
		n := len(aVars)
		if len(bVars) < n {
			n = len(bVars)
		}
		for k := 0; k < n; k++ {
			c.tiedTo[aVars[k]] = append(c.tiedTo[aVars[k]], bVars[k])
			c.tiedTo[bVars[k]] = append(c.tiedTo[bVars[k]], aVars[k])
		}
	}

	c.propagateStatic()
	return c
}

// propagateStatic narrows domains to a fixpoint over ordering edges, the
// intra-event spacing chain, and tie intersections. The passes are
// deterministic; the loop terminates because bounds only ever tighten on a
// finite grid.
func (c *compiled) propagateStatic() {
	for changed := true; changed; {
		changed = false

		for i := range c.domains {
			// Instance chain: this instance sits at least Gap above the
			// previous one's lower bound and Gap below the next one's
			// upper bound.
			if p := c.prev[i]; p >= 0 {
				if lo := c.snapUp(c.domains[p].lo + c.problem.Variables[i].Gap); lo > c.domains[i].lo {
					c.domains[i].lo = lo
					changed = true
				}
				if hi := c.snapDown(c.domains[i].hi - c.problem.Variables[i].Gap); hi < c.domains[p].hi {
					c.domains[p].hi = hi
					changed = true
				}
			}

			// Ordering edges: every predecessor instance bounds this one
			// from below, and is bounded by this one from above.
			for _, p := range c.predecessors[i] {
				if c.domains[p].lo > c.domains[i].lo {
					c.domains[i].lo = c.domains[p].lo
					changed = true
				}
				if c.domains[i].hi < c.domains[p].hi {
					c.domains[p].hi = c.domains[i].hi
					changed = true
				}
			}

			// Ties share a single feasible interval.
			for _, t := range c.tiedTo[i] {
				if c.domains[t].lo > c.domains[i].lo {
					c.domains[i].lo = c.domains[t].lo
					changed = true
				}
				if c.domains[t].hi < c.domains[i].hi {
					c.domains[i].hi = c.domains[t].hi
					changed = true
				}
			}
		}
	}
}

// dynamicBounds returns the feasible interval of variable i given the times
// assigned so far. assignment holds -1 for unassigned variables.
func (c *compiled) dynamicBounds(i int, assignment []int) domain {
	d := c.domains[i]

	if p := c.prev[i]; p >= 0 && assignment[p] >= 0 {
		if lo := c.snapUp(assignment[p] + c.problem.Variables[i].Gap); lo > d.lo {
			d.lo = lo
		}
	}

	for _, p := range c.predecessors[i] {
		if assignment[p] >= 0 && assignment[p] > d.lo {
			d.lo = assignment[p]
		}
	}

	for _, t := range c.tiedTo[i] {
		if assignment[t] >= 0 {
			// A tied partner pins the value exactly.
			if assignment[t] < d.lo || assignment[t] > d.hi {
				return domain{lo: 1, hi: 0}
			}
			d.lo = assignment[t]
			d.hi = assignment[t]
		}
	}

	return d
}

// feasibleAt reports whether value v is admissible for variable i against the
// lazily-enforced constraints: separations from assigned variables and the
// hard global windows.
func (c *compiled) feasibleAt(i, v int, assignment []int) bool {
	for _, sep := range c.separations[i] {
		if other := assignment[sep.other]; other >= 0 {
			delta := v - other
			if delta < 0 {
				delta = -delta
			}
			if delta < sep.minutes {
				return false
			}
		}
	}

	if len(c.problem.GlobalWindows) > 0 {
		if timeutil.MinDist(v, c.problem.GlobalWindows) > c.problem.Tolerance {
			return false
		}
	}

	return true
}
