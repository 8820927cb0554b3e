package repositories

import (
	"errors"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/storage"
)

// SecurityConfigRepository owns the persisted guard policy. The defaults are
// written on first read so the dashboard always has a document to edit.
type SecurityConfigRepository struct {
	store *storage.DocumentStore
}

// NewSecurityConfigRepository creates the repository over the given store.
func NewSecurityConfigRepository(store *storage.DocumentStore) *SecurityConfigRepository {
	return &SecurityConfigRepository{store: store}
}

// Get returns the current policy, materializing defaults when absent.
func (r *SecurityConfigRepository) Get() (models.SecurityConfig, error) {
	var cfg models.SecurityConfig
	err := r.store.Load(&cfg)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.SecurityConfig{}, err
	}

	cfg = models.DefaultSecurityConfig()
	if err := r.store.Save(cfg); err != nil {
		return models.SecurityConfig{}, err
	}
	return cfg, nil
}

// Update applies fn to the policy under the store lock.
func (r *SecurityConfigRepository) Update(fn func(cfg *models.SecurityConfig) error) (models.SecurityConfig, error) {
	cfg := models.DefaultSecurityConfig()
	err := r.store.Update(&cfg, func(exists bool) error {
		if !exists {
			cfg = models.DefaultSecurityConfig()
		}
		return fn(&cfg)
	})
	if err != nil {
		return models.SecurityConfig{}, err
	}
	return cfg, nil
}
