package testutils

import "github.com/argus-labs/tickworld/pkg/assert"

// Enumerator walks every sequence of choices a test can make. Each run replays the choices of the
// previous run up to the last one that still has untried options, picks the next option there,
// and explores fresh choices after it from zero. Choices may depend on earlier picks, so the
// enumerated space is a tree rather than a fixed grid.
//
//	for e := testutils.NewEnumerator(); e.Next(); {
//	    if e.Bool() {
//	        n := e.Choose(3) // only reached on runs where the first pick was true
//	    }
//	}
type Enumerator struct {
	choices []choice // Choices made by the current run, in order
	pos     int      // Index of the next choice in the current run
	runs    int
}

type choice struct {
	picked  int
	options int
}

func NewEnumerator() *Enumerator {
	return &Enumerator{}
}

// Next starts the next run and reports whether one is left. The first call always starts a run.
func (e *Enumerator) Next() bool {
	if e.runs > 0 {
		// Choices the last run never reached belong to an older branch.
		e.choices = e.choices[:e.pos]
		for len(e.choices) > 0 {
			last := &e.choices[len(e.choices)-1]
			if last.picked+1 < last.options {
				last.picked++
				break
			}
			e.choices = e.choices[:len(e.choices)-1]
		}
		if len(e.choices) == 0 {
			return false
		}
	}
	e.pos = 0
	e.runs++
	return true
}

// Runs returns the number of runs started so far.
func (e *Enumerator) Runs() int {
	return e.runs
}

// Choose returns a value in [0, n). Within a run, the k-th call must pass the same n as the k-th
// call of the run it replays.
func (e *Enumerator) Choose(n int) int {
	assert.That(n > 0, "enumerator: choice %d has no options", e.pos)
	if e.pos == len(e.choices) {
		e.choices = append(e.choices, choice{options: n})
	}
	c := e.choices[e.pos]
	assert.That(c.options == n, "enumerator: choice %d had %d options, now %d", e.pos, c.options, n)
	e.pos++
	return c.picked
}

// Bool returns false and then true.
func (e *Enumerator) Bool() bool {
	return e.Choose(2) == 1
}

// Perm returns a permutation of [0, n). Over a full enumeration every permutation is returned, in
// lexicographic order.
func (e *Enumerator) Perm(n int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	perm := make([]int, 0, n)
	for len(pool) > 0 {
		k := e.Choose(len(pool))
		perm = append(perm, pool[k])
		pool = append(pool[:k], pool[k+1:]...)
	}
	return perm
}
