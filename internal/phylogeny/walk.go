package phylogeny

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle         = errors.New("parent chain does not terminate at the root")
	ErrMissingParent = errors.New("parent id not present in table")
)

// Step is one organism visited on a walk towards the root.
type Step struct {
	ID       int
	ParentID int
	X        float64
	Y        float64
	Fitness  float64
}

// Lineage is the chain visited from StartID towards the root, StartID first.
type Lineage struct {
	StartID int
	// LineageID is the last id visited: the root's child, the stop node, or
	// StartID itself when it is the root.
	LineageID int
	Steps     []Step
}

// StopFunc ends a walk after visiting id.
type StopFunc func(id int) bool

// Walk follows parent ids from start, visiting every organism above the
// root. It stops after an organism whose parent is the root or for which
// stop returns true.
func (t *Table) Walk(start int, stop StopFunc) (Lineage, error) {
	l := Lineage{StartID: start, LineageID: start}
	curr := start
	for curr > RootID {
		org, ok := t.byID[curr]
		if !ok {
			if curr == start {
				return Lineage{}, fmt.Errorf("%w: %d", ErrUnknownOrganism, curr)
			}
			return Lineage{}, fmt.Errorf("%w: %d", ErrMissingParent, curr)
		}
		if len(l.Steps) >= len(t.rows) {
			return Lineage{}, fmt.Errorf("%w: walk from %d exceeded %d steps", ErrCycle, start, len(t.rows))
		}
		l.Steps = append(l.Steps, Step{
			ID:       org.ID,
			ParentID: org.ParentID,
			X:        org.X,
			Y:        org.Y,
			Fitness:  org.Fitness,
		})
		l.LineageID = curr
		if org.ParentID == RootID || (stop != nil && stop(curr)) {
			break
		}
		curr = org.ParentID
	}
	return l, nil
}

// StopAt returns a StopFunc that ends the walk at id.
func StopAt(id int) StopFunc {
	return func(curr int) bool {
		return curr == id
	}
}

func (l Lineage) Len() int {
	return len(l.Steps)
}

// Fitnesses lists fitness from the start organism back towards the root.
func (l Lineage) Fitnesses() []float64 {
	out := make([]float64, len(l.Steps))
	for i, s := range l.Steps {
		out[i] = s.Fitness
	}
	return out
}

// Path renders "x y fitness" per step with two decimals, comma separated.
func (l Lineage) Path() string {
	parts := make([]string, len(l.Steps))
	for i, s := range l.Steps {
		parts[i] = fmt.Sprintf("%.2f %.2f %.2f", s.X, s.Y, s.Fitness)
	}
	return strings.Join(parts, ",")
}

// Depth counts parent hops from id to the root.
func (t *Table) Depth(id int) (int, error) {
	depth := 0
	curr := id
	for curr != RootID {
		org, ok := t.byID[curr]
		if !ok {
			if curr == id {
				return 0, fmt.Errorf("%w: %d", ErrUnknownOrganism, curr)
			}
			return 0, fmt.Errorf("%w: %d", ErrMissingParent, curr)
		}
		if depth > len(t.rows) {
			return 0, fmt.Errorf("%w: depth of %d exceeded %d", ErrCycle, id, len(t.rows))
		}
		depth++
		curr = org.ParentID
	}
	return depth, nil
}

// MRCA finds the most recent common ancestor of ids by generational
// contraction: the deepest members of the set are replaced by their parents
// until a single id remains.
func (t *Table) MRCA(ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoLiveOrganisms
	}

	depths := make(map[int]int, len(ids))
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, seen := set[id]; seen {
			continue
		}
		d, err := t.Depth(id)
		if err != nil {
			return 0, err
		}
		depths[id] = d
		set[id] = struct{}{}
	}

	for len(set) > 1 {
		deepest := -1
		for id := range set {
			if depths[id] > deepest {
				deepest = depths[id]
			}
		}
		next := make(map[int]struct{}, len(set))
		for id := range set {
			if depths[id] != deepest {
				next[id] = struct{}{}
				continue
			}
			parent := t.byID[id].ParentID
			depths[parent] = deepest - 1
			next[parent] = struct{}{}
		}
		set = next
	}

	for id := range set {
		return id, nil
	}
	return 0, ErrNoLiveOrganisms
}
