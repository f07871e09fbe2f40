package cache

import (
	"errors"
	"math/rand"
	"time"

	lru "github.com/hnlq715/golang-lru"
)

type (
	JitterFn func() time.Duration
	SetFn    func() (v interface{}, err error)
)

var ErrCacheItemNotFound = errors.New("cache item not found")

// Params controls a GetSetCache.
type Params struct {
	// Name is a user-visible name for this cache.
	Name string
	// Size is the maximal number of entries to hold.
	Size int
	// Expiry is how long entries stay valid. Expired entries are lazily
	// superseded on the next Get, never actively purged.
	Expiry time.Duration
	// JitterFn, when set, is added to Expiry per entry to spread reloads.
	JitterFn JitterFn
}

// GetSetCache is an expiring LRU where concurrent misses for the same key
// collapse onto a single setFn call.
type GetSetCache struct {
	p      *Params
	lru    *lru.Cache
	locker *ChanLocker
}

func NewCache(size int, expiry time.Duration) *GetSetCache {
	return NewCacheByParams(&Params{Size: size, Expiry: expiry})
}

func NewCacheByParams(p *Params) *GetSetCache {
	c, err := lru.New(p.Size)
	if err != nil {
		panic(err) // only fails on non-positive size
	}
	return &GetSetCache{
		p:      p,
		lru:    c,
		locker: NewChanLocker(),
	}
}

func (c *GetSetCache) GetOrSet(k interface{}, setFn SetFn) (v interface{}, err error) {
	if v, ok := c.lru.Get(k); ok {
		return v, nil
	}
	acquired := c.locker.Lock(k, func() {
		v, err = setFn()
		if err != nil {
			return
		}
		c.lru.AddEx(k, v, c.expiry())
	})
	if acquired {
		return v, err
	}

	// someone else held the lock and should have inserted a value
	if v, ok := c.lru.Get(k); ok {
		return v, nil
	}

	// the lock holder's fetch failed, or the value already expired
	return nil, ErrCacheItemNotFound
}

// Remove evicts k so the next GetOrSet reloads it.
func (c *GetSetCache) Remove(k interface{}) {
	c.lru.Remove(k)
}

func (c *GetSetCache) Name() string { return c.p.Name }

func (c *GetSetCache) expiry() time.Duration {
	if c.p.JitterFn == nil {
		return c.p.Expiry
	}
	return c.p.Expiry + c.p.JitterFn()
}

func NewJitterFn(jitter time.Duration) JitterFn {
	return func() time.Duration {
		n := rand.Intn(int(jitter)) //nolint:gosec
		return time.Duration(n)
	}
}
