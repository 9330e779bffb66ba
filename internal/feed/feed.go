// Package feed drives the append-only, page-by-page transaction list.
package feed

import (
	"context"
	"sync"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/txerror"
)

// Source fetches one page of transactions.
type Source func(ctx context.Context, sess models.Session, page, limit int) (models.FeedPage, error)

// State is the loading state of a Controller.
type State int

const (
	Idle State = iota
	LoadingFirst
	Ready
	LoadingNext
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingFirst:
		return "loading_first"
	case Ready:
		return "ready"
	case LoadingNext:
		return "loading_next"
	}
	return "unknown"
}

// Loading reports whether a fetch is outstanding.
func (s State) Loading() bool {
	return s == LoadingFirst || s == LoadingNext
}

// Controller accumulates pages from a Source. At most one fetch is outstanding
// at any time; load calls made while loading are ignored.
type Controller struct {
	source Source
	logger logging.Logger

	mu         sync.Mutex
	sess       models.Session
	state      State
	items      []models.Transaction
	page       int
	hasMore    bool
	totalItems int
	totalPages int
	generation uint64
}

// NewController creates an idle Controller reading from source on behalf of sess.
func NewController(source Source, sess models.Session, logger logging.Logger) *Controller {
	return &Controller{
		source: source,
		sess:   sess,
		logger: logging.OrDefault(logger),
	}
}

// LoadFirstPage drops accumulated items and fetches page 1. It is a no-op while
// a fetch is outstanding. On failure the controller returns to Idle.
func (c *Controller) LoadFirstPage(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Loading() {
		c.mu.Unlock()
		return nil
	}
	c.items = nil
	c.page = 0
	c.hasMore = false
	c.totalItems = 0
	c.totalPages = 0
	c.state = LoadingFirst
	gen, sess := c.generation, c.sess
	c.mu.Unlock()

	return c.fetch(ctx, gen, sess, 1)
}

// LoadNextPage fetches the page after the last one received and appends it.
// It is a no-op while loading, before the first page, and once a short page
// has been seen. On failure accumulated items are kept.
func (c *Controller) LoadNextPage(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Ready || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.state = LoadingNext
	gen, sess, next := c.generation, c.sess, c.page+1
	c.mu.Unlock()

	return c.fetch(ctx, gen, sess, next)
}

func (c *Controller) fetch(ctx context.Context, gen uint64, sess models.Session, page int) error {
	result, err := c.source(ctx, sess, page, models.PageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.logger.WithFields(logging.F(logging.FieldPage, page))

	if gen != c.generation {
		log.Debug("Discarding page fetched for a previous session")
		return nil
	}
	if err != nil {
		if page == 1 {
			c.state = Idle
		} else {
			c.state = Ready
		}
		log.WithError(err).Warn("Failed to fetch transactions page")
		return &txerror.FeedFetchError{Page: page, Err: err}
	}

	c.items = append(c.items, result.Items...)
	c.page = page
	c.hasMore = len(result.Items) == models.PageSize
	c.totalItems = result.TotalItems
	c.totalPages = result.TotalPages
	c.state = Ready
	log.Debug("Fetched transactions page",
		logging.F(logging.FieldCount, len(result.Items)))
	return nil
}

// Reset switches to sess and clears everything. A fetch still in flight for the
// previous session is discarded when it completes.
func (c *Controller) Reset(sess models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.sess = sess
	c.state = Idle
	c.items = nil
	c.page = 0
	c.hasMore = false
	c.totalItems = 0
	c.totalPages = 0
}

// Items returns a copy of the accumulated transactions in server order.
func (c *Controller) Items() []models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Transaction(nil), c.items...)
}

// HasMore reports whether the last page received was full.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Page returns the number of the last page received, 0 before the first.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// TotalItems returns the server's item count, or -1 when it did not report one.
func (c *Controller) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalItems
}

// TotalPages returns the server's page count, or -1 when it did not report one.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// State returns the current loading state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
