// Package bloom provides probabilistic membership filters used as cheap
// negative pre-checks in front of exact URL deduplication.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// DefaultRate is the false positive rate the discovery pipelines size their
// filters with. At one percent a false positive costs one map lookup.
const DefaultRate = 0.01

// minCapacity rounds tiny filters up so a short session's burst of URLs does
// not saturate the bit array and turn every Test into a false positive.
const minCapacity = 1024

// Filter wraps a Bloom filter keyed by canonical URLs.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs with the given false
// positive rate. Capacities below 1024 are rounded up; a non-positive rate
// falls back to DefaultRate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n < minCapacity {
		n = minCapacity
	}
	if fpRate <= 0 {
		fpRate = DefaultRate
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add records a URL in the filter.
func (f *Filter) Add(url string) {
	f.f.AddString(url)
}

// Test returns true if the URL might be in the filter.
// False positives are possible; false negatives are not. Callers that need
// exactness must confirm a positive against an authoritative set.
func (f *Filter) Test(url string) bool {
	return f.f.TestString(url)
}

// TestAndAdd records the URL and reports whether it might have been present
// already, in one pass over the bit array.
func (f *Filter) TestAndAdd(url string) bool {
	return f.f.TestAndAddString(url)
}

// EstimatedCount returns the approximate number of URLs in the filter.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
