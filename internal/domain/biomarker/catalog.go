package biomarker

import (
	"context"
	"fmt"
	"sync"
)

// Catalog is an in-memory snapshot of the biomarker table used for
// label matching. The snapshot is immutable between refreshes;
// Refresh swaps it atomically, so matching never observes a
// half-loaded catalog.
type Catalog struct {
	repo Repository

	mu      sync.RWMutex
	entries []entry
}

// entry pairs a catalog row with the precomputed normalized forms of
// every label it can be matched under.
type entry struct {
	bm   *Biomarker
	keys []string
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Refresh reloads the snapshot from the repository.
func (c *Catalog) Refresh(ctx context.Context) error {
	items, err := c.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load biomarker catalog: %w", err)
	}
	c.replace(items)
	return nil
}

// Replace installs the given entries as the snapshot. Used for tests
// and seed tooling; production code goes through Refresh.
func (c *Catalog) Replace(items []*Biomarker) {
	c.replace(items)
}

func (c *Catalog) replace(items []*Biomarker) {
	entries := make([]entry, 0, len(items))
	for _, bm := range items {
		keys := make([]string, 0, len(bm.Aliases)+3)
		for _, label := range candidateLabels(bm) {
			if k := normalizeLabel(label); k != "" {
				keys = append(keys, k)
			}
		}
		entries = append(entries, entry{bm: bm, keys: keys})
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

func candidateLabels(bm *Biomarker) []string {
	labels := []string{bm.CanonicalName, bm.Code}
	if bm.NameLocal != nil {
		labels = append(labels, *bm.NameLocal)
	}
	return append(labels, bm.Aliases...)
}

// Size returns the number of entries in the current snapshot.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns the biomarkers of the current snapshot in catalog
// order.
func (c *Catalog) All() []*Biomarker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Biomarker, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.bm
	}
	return out
}

func (c *Catalog) snapshot() []entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}
