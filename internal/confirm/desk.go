package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/log"
)

// DefaultReviewTTL is how long an untouched review is kept.
const DefaultReviewTTL = 15 * time.Minute

// Desk keeps the open reviews of all users. Each review belongs to the user
// that opened it and is invisible to anyone else.
type Desk struct {
	mu      sync.Mutex
	reviews map[string]*Controller
	deps    Deps
	ttl     time.Duration
	logger  *log.Logger
}

// NewDesk returns an empty desk. A non-positive ttl selects DefaultReviewTTL.
func NewDesk(deps Deps, ttl time.Duration) *Desk {
	if ttl <= 0 {
		ttl = DefaultReviewTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	return &Desk{
		reviews: make(map[string]*Controller),
		deps:    deps,
		ttl:     ttl,
		logger:  deps.Logger.WithComponent(log.ComponentReview),
	}
}

// Open starts a new Idle review for userID.
func (d *Desk) Open(userID string) *Controller {
	c := NewController(uuid.NewString(), userID, d.deps)

	d.mu.Lock()
	d.reviews[c.ID()] = c
	d.mu.Unlock()
	return c
}

// Get returns the review with the given id if it belongs to userID and has
// not expired.
func (d *Desk) Get(userID, id string) (*Controller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.reviews[id]
	if !ok || c.UserID() != userID {
		return nil, ErrReviewNotFound
	}
	if d.expired(c) {
		delete(d.reviews, id)
		return nil, ErrReviewNotFound
	}
	return c, nil
}

// Close forgets a review.
func (d *Desk) Close(userID, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.reviews[id]; ok && c.UserID() == userID {
		delete(d.reviews, id)
	}
}

func (d *Desk) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reviews)
}

// Sweep drops expired reviews and returns how many were removed.
func (d *Desk) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, c := range d.reviews {
		if d.expired(c) {
			delete(d.reviews, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (d *Desk) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = d.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Sweep(); n > 0 {
				d.logger.Debug("Expired reviews removed", "count", n)
			}
		}
	}
}

func (d *Desk) expired(c *Controller) bool {
	return d.deps.Now().Sub(c.LastActivity()) > d.ttl
}
