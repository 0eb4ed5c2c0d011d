package origin

import (
	"maps"
	"slices"
	"time"
)

// snapshot is an immutable set of allowed origins. A published snapshot is
// never mutated; changes produce a new value that replaces it through the
// Authorizer's atomic pointer.
type snapshot struct {
	origins map[string]struct{}

	// generation increments on every full load. Write-backs keep the
	// generation of the snapshot they extend.
	generation uint64
	loadedAt   time.Time
}

func newSnapshot(generation uint64, capacity int) *snapshot {
	return &snapshot{
		origins:    make(map[string]struct{}, capacity),
		generation: generation,
		loadedAt:   time.Now(),
	}
}

func (s *snapshot) contains(origin string) bool {
	_, ok := s.origins[origin]
	return ok
}

// with returns a copy of s that also contains origin.
func (s *snapshot) with(origin string) *snapshot {
	next := &snapshot{
		origins:    maps.Clone(s.origins),
		generation: s.generation,
		loadedAt:   s.loadedAt,
	}
	next.origins[origin] = struct{}{}
	return next
}

func (s *snapshot) list() []string {
	return slices.Sorted(maps.Keys(s.origins))
}
