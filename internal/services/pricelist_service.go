package services

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/models"
)

// PriceListStore persists one price list document per language
type PriceListStore interface {
	Get(lang string) (models.PriceList, error)
	Save(lang string, list models.PriceList) error
}

// Schema limits for price list documents. The admin UI is the only writer,
// but the documents are served verbatim so they get validated on the way in.
const (
	maxPriceCategories    = 50
	maxPriceItems         = 100
	maxPriceTitleLen      = 100
	maxPriceIconLen       = 50
	maxPriceServiceLen    = 200
	maxPriceValueLen      = 100
	maxPriceCategoryKeyLen = 50
)

// PriceListService validates and stores the public price lists.
type PriceListService struct {
	store  PriceListStore
	audit  AuditTrail
	logger *slog.Logger
}

// NewPriceListService creates a new PriceListService
func NewPriceListService(store PriceListStore, audit AuditTrail, logger *slog.Logger) *PriceListService {
	return &PriceListService{store: store, audit: audit, logger: logger}
}

// Get returns the price list for a language. A missing document is an empty
// list, not an error.
func (s *PriceListService) Get(lang string) (models.PriceList, error) {
	return s.store.Get(lang)
}

// Save validates and persists a price list, recording who changed it.
func (s *PriceListService) Save(lang string, list models.PriceList, identifier, userAgent string) error {
	if !models.ValidPriceListLanguage(lang) {
		return fmt.Errorf("%w: unsupported language %q", models.ErrBadRequest, lang)
	}
	if err := validatePriceList(list); err != nil {
		return err
	}
	if err := s.store.Save(lang, list); err != nil {
		s.logger.Error("failed to save price list",
			slog.String("language", lang),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.audit.Record(accesslog.ActionPricesSaved, identifier,
		fmt.Sprintf("language: %s, categories: %d", lang, len(list)), userAgent); err != nil {
		s.logger.Error("failed to write access log entry", slog.Any("error", err))
	}
	s.logger.Info("price list saved",
		slog.String("language", lang),
		slog.Int("categories", len(list)))
	return nil
}

func validatePriceList(list models.PriceList) error {
	fields := make(map[string]string)

	if len(list) > maxPriceCategories {
		fields["categories"] = fmt.Sprintf("at most %d categories allowed", maxPriceCategories)
	}
	for key, cat := range list {
		prefix := "categories." + key
		switch {
		case strings.TrimSpace(key) == "":
			fields["categories"] = "category keys must not be empty"
		case utf8.RuneCountInString(key) > maxPriceCategoryKeyLen:
			fields[prefix] = fmt.Sprintf("key must be at most %d characters", maxPriceCategoryKeyLen)
		}
		if strings.TrimSpace(cat.Title) == "" {
			fields[prefix+".title"] = "title is required"
		} else if utf8.RuneCountInString(cat.Title) > maxPriceTitleLen {
			fields[prefix+".title"] = fmt.Sprintf("must be at most %d characters", maxPriceTitleLen)
		}
		if utf8.RuneCountInString(cat.Icon) > maxPriceIconLen {
			fields[prefix+".icon"] = fmt.Sprintf("must be at most %d characters", maxPriceIconLen)
		}
		if len(cat.Items) > maxPriceItems {
			fields[prefix+".items"] = fmt.Sprintf("at most %d items allowed", maxPriceItems)
		}
		for i, item := range cat.Items {
			itemPrefix := fmt.Sprintf("%s.items.%d", prefix, i)
			if strings.TrimSpace(item.Service) == "" {
				fields[itemPrefix+".service"] = "service name is required"
			} else if utf8.RuneCountInString(item.Service) > maxPriceServiceLen {
				fields[itemPrefix+".service"] = fmt.Sprintf("must be at most %d characters", maxPriceServiceLen)
			}
			if strings.TrimSpace(item.Price) == "" {
				fields[itemPrefix+".price"] = "price is required"
			} else if utf8.RuneCountInString(item.Price) > maxPriceValueLen {
				fields[itemPrefix+".price"] = fmt.Sprintf("must be at most %d characters", maxPriceValueLen)
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
