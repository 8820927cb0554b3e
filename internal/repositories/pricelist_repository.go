package repositories

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/storage"
)

// PriceListRepository owns the per-language price documents.
// Saving the default language ("cs") mirrors the document to the main
// prices.json the public site reads.
type PriceListRepository struct {
	dir string
}

// NewPriceListRepository creates a repository rooted at the data directory.
func NewPriceListRepository(dir string) *PriceListRepository {
	return &PriceListRepository{dir: dir}
}

func (r *PriceListRepository) storeFor(name string) (*storage.DocumentStore, error) {
	return storage.NewDocumentStore(filepath.Join(r.dir, name))
}

// Get loads the price list for lang. A language that has never been saved
// yields an empty document, not an error.
func (r *PriceListRepository) Get(lang string) (models.PriceList, error) {
	if !models.ValidPriceListLanguage(lang) {
		return nil, fmt.Errorf("%w: unknown language %q", models.ErrBadRequest, lang)
	}
	store, err := r.storeFor(fmt.Sprintf("prices_%s.json", lang))
	if err != nil {
		return nil, err
	}

	list := models.PriceList{}
	if err := store.Load(&list); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.PriceList{}, nil
		}
		return nil, err
	}
	return list, nil
}

// Save atomically replaces the price list for lang, mirroring "cs" to the
// main document.
func (r *PriceListRepository) Save(lang string, list models.PriceList) error {
	if !models.ValidPriceListLanguage(lang) {
		return fmt.Errorf("%w: unknown language %q", models.ErrBadRequest, lang)
	}
	store, err := r.storeFor(fmt.Sprintf("prices_%s.json", lang))
	if err != nil {
		return err
	}
	if err := store.Save(list); err != nil {
		return err
	}

	if lang == "cs" {
		mirror, err := r.storeFor("prices.json")
		if err != nil {
			return err
		}
		return mirror.Save(list)
	}
	return nil
}
