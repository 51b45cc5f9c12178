package pipeline

import (
	"context"

	"github.com/openctemio/connector/internal/armis"
)

// MitigationSource looks up mitigations by vulnerability name.
type MitigationSource interface {
	FetchMitigations(ctx context.Context, vulnerabilityName string) (*armis.MitigationsResponse, error)
}

// MitigationCache memoizes mitigation lookups for a single run.
// Entries are never evicted. It is not safe for concurrent use; the driver
// creates one per Run and uses it from that goroutine only.
type MitigationCache struct {
	source  MitigationSource
	entries map[string][]armis.Mitigation

	hits   int
	misses int
}

// NewMitigationCache creates an empty cache backed by source.
func NewMitigationCache(source MitigationSource) *MitigationCache {
	return &MitigationCache{
		source:  source,
		entries: make(map[string][]armis.Mitigation),
	}
}

// Get returns the mitigations for name, fetching them on first use.
// Failed lookups are not cached.
func (c *MitigationCache) Get(ctx context.Context, name string) ([]armis.Mitigation, bool, error) {
	if m, ok := c.entries[name]; ok {
		c.hits++
		return m, true, nil
	}

	resp, err := c.source.FetchMitigations(ctx, name)
	if err != nil {
		return nil, false, err
	}

	c.misses++
	c.entries[name] = resp.Mitigations
	return resp.Mitigations, false, nil
}

// Len returns the number of cached names.
func (c *MitigationCache) Len() int {
	return len(c.entries)
}
