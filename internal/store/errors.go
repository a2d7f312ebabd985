package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMutationPending rejects a second mutation on an entity while one is
// still in flight. Overlapping optimistic mutations would capture each
// other's unconfirmed state as a rollback baseline, so they are refused
// outright rather than queued.
var ErrMutationPending = errors.New("store: a mutation for this entity is already pending")

// BulkError aggregates the failures of a bulk operation. Successful items
// stay committed; the error enumerates every failing id with its cause.
type BulkError struct {
	Op       string
	Total    int
	Failures map[int64]error
}

func (e *BulkError) Error() string {
	ids := make([]int64, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d: %v", id, e.Failures[id]))
	}
	return fmt.Sprintf("%s: %d/%d failed: %s", e.Op, len(e.Failures), e.Total, strings.Join(parts, "; "))
}
