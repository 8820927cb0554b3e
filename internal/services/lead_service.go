package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/metrics"
	"github.com/vistav/site-api/internal/models"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// LeadWriter appends accepted submissions to the durable ledger
type LeadWriter interface {
	Append(lead models.Lead) error
}

// SubmissionWindow tracks per-identifier submission counts over a sliding window
type SubmissionWindow interface {
	Allow(identifier string, limit int, window time.Duration) (bool, error)
}

// LeadNotifier pushes an accepted lead to an external channel
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead models.Lead) error
	Channel() string
}

// LeadConfig holds the contact form guard settings
type LeadConfig struct {
	RateLimit      int           // submissions per identifier per window
	RateWindow     time.Duration //
	MinFillSeconds int           // forms completed faster than this are bots
	BypassLoopback bool          // skip the window check for loopback callers
}

// DefaultLeadConfig returns the production guard settings.
func DefaultLeadConfig() LeadConfig {
	return LeadConfig{
		RateLimit:      5,
		RateWindow:     time.Hour,
		MinFillSeconds: 3,
	}
}

// SubmitLeadInput is the contact form payload. The Website field is a
// honeypot; humans never see it, so any value means a bot filled the form.
type SubmitLeadInput struct {
	Name       string `json:"name" validate:"required,min=2,max=100,person_name"`
	Phone      string `json:"phone" validate:"required,phone_number"`
	Email      string `json:"email" validate:"required,email,max=254"`
	ClientType string `json:"client_type" validate:"required,oneof=individual company"`
	Company    string `json:"company" validate:"max=200"`
	Service    string `json:"service" validate:"required,oneof=commercial residential renovation"`
	Message    string `json:"message" validate:"max=2000"`
	Consent    string `json:"privacy_consent" validate:"required"`
	Language   string `json:"language"`
	Website    string `json:"website"`
	CSRFToken  string `json:"csrf_token"`
}

// ValidationError lists per-field problems with a submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == models.ErrBadRequest
}

var (
	nameRe  = regexp.MustCompile(`^[\p{L}][\p{L}\s.'-]*$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9\s\-()]{9,20}$`)
	urlRe   = regexp.MustCompile(`https?://`)
)

// Obvious spam markers. Matching submissions are dropped without telling the
// sender.
var spamKeywords = []string{
	"viagra", "cialis", "casino", "lottery", "bitcoin", "crypto",
	"forex", "seo service", "backlink", "escort",
}

// LeadService runs the contact form guard pipeline and persists accepted
// submissions.
type LeadService struct {
	leads     LeadWriter
	window    SubmissionWindow
	sessions  *auth.SessionManager
	notifier  LeadNotifier // nil when no channel is configured
	audit     AuditTrail
	logger    *slog.Logger
	config    LeadConfig
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewLeadService creates a new LeadService
func NewLeadService(leads LeadWriter, window SubmissionWindow, sessions *auth.SessionManager, notifier LeadNotifier, audit AuditTrail, config LeadConfig, logger *slog.Logger) *LeadService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})

	return &LeadService{
		leads:     leads,
		window:    window,
		sessions:  sessions,
		notifier:  notifier,
		audit:     audit,
		logger:    logger,
		config:    config,
		validate:  v,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// IssueToken prepares the caller's session for a later submission: it issues
// a CSRF token and starts the minimum fill timer.
func (s *LeadService) IssueToken(sess *auth.Session) (string, error) {
	token, err := s.sessions.IssueCSRF(sess)
	if err != nil {
		return "", err
	}
	s.sessions.MarkFormIssued(sess)
	return token, nil
}

// MinFillSeconds reports the configured minimum form fill time.
func (s *LeadService) MinFillSeconds() int {
	return s.config.MinFillSeconds
}

// Submit runs the guard pipeline in order: submission window, honeypot, CSRF
// token, fill-time trap, field validation, spam filter. The honeypot and the
// spam filter discard silently, returning (nil, nil) so the handler reports
// success and the bot learns nothing.
func (s *LeadService) Submit(ctx context.Context, sess *auth.Session, in SubmitLeadInput, identifier, userAgent string) (*models.Lead, error) {
	if !s.config.BypassLoopback || !pkghttp.IsLoopback(identifier) {
		allowed, err := s.window.Allow(identifier, s.config.RateLimit, s.config.RateWindow)
		if err != nil {
			s.logger.Error("failed to check submission window", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if !allowed {
			metrics.LeadsDiscardedTotal.WithLabelValues("rate_limited").Inc()
			s.recordAudit(accesslog.ActionRateLimited, identifier, "contact form submission limit reached", userAgent)
			return nil, models.ErrRateLimited
		}
	}

	if strings.TrimSpace(in.Website) != "" {
		metrics.LeadsDiscardedTotal.WithLabelValues("honeypot").Inc()
		s.logger.Info("honeypot tripped, discarding submission", slog.String("identifier", identifier))
		return nil, nil
	}

	if !s.sessions.ValidateCSRF(sess, in.CSRFToken) {
		metrics.LeadsDiscardedTotal.WithLabelValues("csrf").Inc()
		return nil, models.ErrCSRFInvalid
	}

	if err := s.sessions.ConsumeFormIssued(sess, s.config.MinFillSeconds); err != nil {
		metrics.LeadsDiscardedTotal.WithLabelValues("too_fast").Inc()
		return nil, err
	}

	s.sanitizeInput(&in)

	if err := s.validate.Struct(in); err != nil {
		metrics.LeadsDiscardedTotal.WithLabelValues("validation").Inc()
		return nil, s.fieldErrors(err)
	}
	if in.ClientType == models.ClientTypeCompany && strings.TrimSpace(in.Company) == "" {
		metrics.LeadsDiscardedTotal.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Fields: map[string]string{"company": "company name is required"}}
	}

	if s.looksLikeSpam(in) {
		metrics.LeadsDiscardedTotal.WithLabelValues("spam").Inc()
		s.logger.Info("spam filter tripped, discarding submission", slog.String("identifier", identifier))
		return nil, nil
	}

	lead := models.Lead{
		ID:         uuid.New().String(),
		CreatedAt:  s.now(),
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		ClientType: in.ClientType,
		Company:    in.Company,
		Service:    in.Service,
		Message:    in.Message,
		Language:   in.Language,
		IPAddress:  identifier,
		UserAgent:  userAgent,
	}
	if err := s.leads.Append(lead); err != nil {
		s.logger.Error("failed to append lead", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	metrics.LeadsSavedTotal.Inc()
	s.recordAudit(accesslog.ActionLeadSaved, identifier, fmt.Sprintf("service: %s", lead.Service), userAgent)
	s.logger.Info("lead saved",
		slog.String("lead_id", lead.ID),
		slog.String("service", lead.Service))

	s.notify(ctx, lead)
	return &lead, nil
}

// notify is best effort. A broken channel must never lose the lead.
func (s *LeadService) notify(ctx context.Context, lead models.Lead) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyLead(ctx, lead); err != nil {
		metrics.NotificationsTotal.WithLabelValues(s.notifier.Channel(), "error").Inc()
		s.logger.Error("failed to send lead notification",
			slog.String("channel", s.notifier.Channel()),
			slog.Any("error", err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues(s.notifier.Channel(), "ok").Inc()
}

func (s *LeadService) sanitizeInput(in *SubmitLeadInput) {
	clean := func(v string) string {
		v = s.sanitizer.Sanitize(v)
		v = html.UnescapeString(v)
		return strings.TrimSpace(v)
	}
	in.Name = clean(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.ClientType = strings.TrimSpace(in.ClientType)
	in.Company = clean(in.Company)
	in.Service = strings.TrimSpace(in.Service)
	in.Message = clean(in.Message)
	in.Language = strings.TrimSpace(in.Language)
}

func (s *LeadService) fieldErrors(err error) error {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.ErrBadRequest
	}
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = validationMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "invalid value"
	case "person_name":
		return "contains invalid characters"
	case "phone_number":
		return "invalid phone number"
	default:
		return "invalid value"
	}
}

func (s *LeadService) looksLikeSpam(in SubmitLeadInput) bool {
	haystack := strings.ToLower(in.Name + " " + in.Company + " " + in.Message)
	for _, kw := range spamKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	// More than two links in a renovation enquiry is not a customer
	return len(urlRe.FindAllStringIndex(haystack, -1)) > 2
}

func (s *LeadService) recordAudit(action, identifier, details, userAgent string) {
	if err := s.audit.Record(action, identifier, details, userAgent); err != nil {
		s.logger.Error("failed to write access log entry",
			slog.String("action", action),
			slog.Any("error", err))
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *LeadService) SetNowFunc(now func() time.Time) {
	s.now = now
}
