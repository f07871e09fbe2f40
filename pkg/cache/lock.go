package cache

import "sync"

// ChanLocker is a keyed lock. Lock(k, fn) runs fn only in the goroutine that
// acquired k; every other concurrent caller blocks until the holder finishes
// and then returns without running its fn.
type ChanLocker struct {
	m sync.Map // key -> chan struct{}, closed on release
}

func NewChanLocker() *ChanLocker {
	return &ChanLocker{}
}

// Lock returns true if this call acquired k and ran acquireFn, false if it
// waited for another holder instead.
func (c *ChanLocker) Lock(k interface{}, acquireFn func()) bool {
	waitCh := make(chan struct{})
	actual, loaded := c.m.LoadOrStore(k, waitCh)
	if loaded {
		<-actual.(chan struct{})
		return false
	}
	defer func() {
		c.m.Delete(k)
		close(waitCh)
	}()
	acquireFn()
	return true
}
