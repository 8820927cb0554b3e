package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vistav/site-api/internal/middleware"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/services"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// ContactHandler handles the public contact form
type ContactHandler struct {
	service  *services.LeadService
	ipConfig *pkghttp.IPConfig
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service *services.LeadService, ipConfig *pkghttp.IPConfig) *ContactHandler {
	return &ContactHandler{service: service, ipConfig: ipConfig}
}

// TokenResponse carries what the form needs before it can submit
type TokenResponse struct {
	CSRFToken      string `json:"csrf_token"`
	MinFillSeconds int    `json:"min_fill_seconds"`
}

// Token handles GET /contact/token. The public site calls it when rendering
// the form; submitting without it always fails the token check.
func (h *ContactHandler) Token(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	token, err := h.service.IssueToken(sess)
	if err != nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TokenResponse{
		CSRFToken:      token,
		MinFillSeconds: h.service.MinFillSeconds(),
	})
}

// Submit handles POST /contact. Silently discarded submissions get the same
// success response as saved ones.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in services.SubmitLeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	_, err := h.service.Submit(r.Context(), sess, in, identifier, r.UserAgent())
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_failed",
				"Please check the highlighted fields", verr.Fields)
		case errors.Is(err, models.ErrCSRFInvalid), errors.Is(err, models.ErrSubmissionTooFast):
			// One generic message for both; no hints for bots
			pkghttp.WriteBadRequest(w, "Please reload the page and try again")
		case errors.Is(err, models.ErrRateLimited):
			pkghttp.WriteTooManyRequests(w, "Too many submissions. Please try again later.", 0)
		default:
			pkghttp.WriteInternalError(w, "Something went wrong")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Děkujeme za Vaši poptávku. Brzy se Vám ozveme.",
	})
}
