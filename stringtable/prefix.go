package stringtable

import (
	"fmt"
	"strconv"

	"github.com/arloliu/exi/errs"
)

// DefaultPrefixCapacity is the number of namespaces a PrefixCache holds.
const DefaultPrefixCapacity = 10

// PrefixCache assigns generated prefixes to namespaces while serializing with
// prefix preservation. It is a small bounded list without eviction.
type PrefixCache struct {
	namespaces []string
	capacity   int
}

// NewPrefixCache creates a cache for up to capacity namespaces. A capacity
// <= 0 selects DefaultPrefixCapacity.
func NewPrefixCache(capacity int) *PrefixCache {
	if capacity <= 0 {
		capacity = DefaultPrefixCapacity
	}

	return &PrefixCache{
		namespaces: make([]string, 0, capacity),
		capacity:   capacity,
	}
}

// Lookup returns the prefix index of ns. On a miss ns is registered and hit is
// false, telling the caller to emit a namespace declaration.
//
// Returns errs.ErrTooManyPrefixes when ns is new and the cache is full.
func (c *PrefixCache) Lookup(ns string) (idx int, hit bool, err error) {
	for i, existing := range c.namespaces {
		if existing == ns {
			return i, true, nil
		}
	}

	if len(c.namespaces) == c.capacity {
		return 0, false, fmt.Errorf("%w: cannot bind %q, %d namespaces in use", errs.ErrTooManyPrefixes, ns, c.capacity)
	}

	c.namespaces = append(c.namespaces, ns)

	return len(c.namespaces) - 1, false, nil
}

// Prefix returns the generated prefix for index idx.
func (c *PrefixCache) Prefix(idx int) string {
	return "p" + strconv.Itoa(idx)
}

// Len returns the number of bound namespaces.
func (c *PrefixCache) Len() int {
	return len(c.namespaces)
}
