package repositories

import (
	"errors"
	"time"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/storage"
)

// AttemptRepository persists the per-identifier login attempt ledger.
// A missing entry means the identifier has no failed attempts on record.
type AttemptRepository struct {
	store *storage.DocumentStore
	now   func() time.Time
}

// NewAttemptRepository creates the repository over the given store.
func NewAttemptRepository(store *storage.DocumentStore) *AttemptRepository {
	return &AttemptRepository{store: store, now: time.Now}
}

// SetNowFunc overrides the clock. Test hook.
func (r *AttemptRepository) SetNowFunc(now func() time.Time) {
	r.now = now
}

// Record notes the outcome of a login attempt. Success deletes the
// identifier's entry; failure increments its count and stamps the time.
func (r *AttemptRepository) Record(identifier string, success bool) error {
	ledger := models.AttemptLedger{}
	return r.store.Update(&ledger, func(exists bool) error {
		if ledger == nil {
			ledger = models.AttemptLedger{}
		}
		if success {
			delete(ledger, identifier)
			return nil
		}
		entry := ledger[identifier]
		entry.Count++
		entry.LastAttempt = r.now().Unix()
		ledger[identifier] = entry
		return nil
	})
}

// Get returns the identifier's attempt record, ok=false when clean.
func (r *AttemptRepository) Get(identifier string) (models.LoginAttempt, bool, error) {
	ledger := models.AttemptLedger{}
	if err := r.store.Load(&ledger); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.LoginAttempt{}, false, nil
		}
		return models.LoginAttempt{}, false, err
	}
	entry, ok := ledger[identifier]
	return entry, ok, nil
}

// Reset removes the identifier's entry, returning it to the clean state.
func (r *AttemptRepository) Reset(identifier string) error {
	if !r.store.Exists() {
		return nil
	}
	ledger := models.AttemptLedger{}
	return r.store.Update(&ledger, func(exists bool) error {
		if ledger == nil {
			ledger = models.AttemptLedger{}
		}
		delete(ledger, identifier)
		return nil
	})
}
