package cache

import "sync"

// ComputeFn produces the value for a single-flight computation.
type ComputeFn func() (interface{}, error)

type computation struct {
	done chan struct{}
	v    interface{}
	err  error
}

// OnlyOne collapses concurrent computations for the same key onto a single
// execution. All callers waiting on an in-flight key observe that
// execution's result. Once a computation completes its key is removed, so a
// failure never wedges the key for future calls.
type OnlyOne struct {
	mu       sync.Mutex
	inFlight map[interface{}]*computation
}

func NewOnlyOne() *OnlyOne {
	return &OnlyOne{
		inFlight: make(map[interface{}]*computation),
	}
}

func (c *OnlyOne) Compute(k interface{}, fn ComputeFn) (interface{}, error) {
	c.mu.Lock()
	if comp, ok := c.inFlight[k]; ok {
		c.mu.Unlock()
		<-comp.done
		return comp.v, comp.err
	}
	comp := &computation{done: make(chan struct{})}
	c.inFlight[k] = comp
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, k)
		c.mu.Unlock()
		close(comp.done)
	}()
	comp.v, comp.err = fn()
	return comp.v, comp.err
}
