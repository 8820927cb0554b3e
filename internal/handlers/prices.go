package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/services"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// PricesHandler handles price list reads and admin edits
type PricesHandler struct {
	service  *services.PriceListService
	ipConfig *pkghttp.IPConfig
}

// NewPricesHandler creates a new PricesHandler
func NewPricesHandler(service *services.PriceListService, ipConfig *pkghttp.IPConfig) *PricesHandler {
	return &PricesHandler{service: service, ipConfig: ipConfig}
}

// Get handles GET /admin/prices/{lang}
func (h *PricesHandler) Get(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")

	list, err := h.service.Get(lang)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Unsupported language")
			return
		}
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, list)
}

// Put handles PUT /admin/prices/{lang}
func (h *PricesHandler) Put(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")

	var list models.PriceList
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	if err := h.service.Save(lang, list, identifier, r.UserAgent()); err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_failed",
				"Price list is not valid", verr.Fields)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Unsupported language")
		default:
			pkghttp.WriteInternalError(w, "Something went wrong")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Price list saved"})
}
