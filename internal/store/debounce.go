package store

import (
	"context"
	"sync"
	"time"

	"feedme-console/internal/dto"
	"feedme-console/internal/pkg/logger"
)

// Lister is the slice of the conversation store the search debouncer drives.
type Lister interface {
	List(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error)
}

// SearchDebouncer coalesces keystroke-level search requests into a single
// list fetch. Each Search call re-arms the timer; only the last parameter
// set within the window reaches the backend.
type SearchDebouncer struct {
	store  Lister
	logger logger.ILogger
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *dto.ConversationListParams
	closed  bool
}

func NewSearchDebouncer(store Lister, delay time.Duration, log logger.ILogger) *SearchDebouncer {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &SearchDebouncer{
		store:  store,
		logger: log,
		delay:  delay,
	}
}

// Search schedules a list fetch for params after the debounce window,
// replacing any fetch still waiting.
func (d *SearchDebouncer) Search(params dto.ConversationListParams) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = &params
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *SearchDebouncer) flush() {
	d.mu.Lock()
	if d.closed || d.pending == nil {
		d.mu.Unlock()
		return
	}
	params := *d.pending
	d.pending = nil
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := d.store.List(ctx, params); err != nil {
		d.logger.Warn("Store", "Debounced search failed", map[string]interface{}{
			"search": params.Search,
			"error":  err.Error(),
		})
	}
}

// Close cancels any pending fetch. Further Search calls are ignored.
func (d *SearchDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
