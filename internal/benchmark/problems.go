package benchmark

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownProblem = errors.New("unknown PROBLEM value")

// DefaultProblemMap maps the experiment's PROBLEM run parameter to CEC2013
// function ids.
var DefaultProblemMap = map[int]int{
	0: 4,
	1: 5,
	2: 6,
	3: 7,
	4: 10,
	5: 11,
	6: 12,
	7: 13,
}

// ProblemMap translates PROBLEM values to function ids.
type ProblemMap map[int]int

func (m ProblemMap) FunctionID(problem int) (int, error) {
	if len(m) == 0 {
		m = DefaultProblemMap
	}
	id, ok := m[problem]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownProblem, problem)
	}
	return id, nil
}

// Problems lists the known PROBLEM values in ascending order.
func (m ProblemMap) Problems() []int {
	if len(m) == 0 {
		m = DefaultProblemMap
	}
	out := make([]int, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
