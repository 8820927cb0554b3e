package repositories

import (
	"time"

	"github.com/vistav/site-api/internal/storage"
)

// windowDoc is the persisted form: identifier -> submission timestamps
// (unix seconds) inside the current window.
type windowDoc map[string][]int64

// WindowRepository enforces a sliding per-identifier submission window for
// the contact form, backed by a shared JSON file so the limit holds across
// processes.
type WindowRepository struct {
	store *storage.DocumentStore
	now   func() time.Time
}

// NewWindowRepository creates the repository over the given store.
func NewWindowRepository(store *storage.DocumentStore) *WindowRepository {
	return &WindowRepository{store: store, now: time.Now}
}

// SetNowFunc overrides the clock. Test hook.
func (r *WindowRepository) SetNowFunc(now func() time.Time) {
	r.now = now
}

// Allow reports whether identifier may submit again, recording the
// submission when allowed. Entries older than the window are pruned for all
// identifiers on every call, so the file cannot grow without bound.
func (r *WindowRepository) Allow(identifier string, limit int, window time.Duration) (bool, error) {
	now := r.now().Unix()
	cutoff := now - int64(window.Seconds())

	allowed := false
	doc := windowDoc{}
	err := r.store.Update(&doc, func(exists bool) error {
		if doc == nil {
			doc = windowDoc{}
		}
		for id, stamps := range doc {
			kept := stamps[:0]
			for _, ts := range stamps {
				if ts > cutoff {
					kept = append(kept, ts)
				}
			}
			if len(kept) == 0 {
				delete(doc, id)
			} else {
				doc[id] = kept
			}
		}

		if len(doc[identifier]) >= limit {
			return nil
		}
		doc[identifier] = append(doc[identifier], now)
		allowed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}
