package contact

import (
	"context"
	"errors"
	"strings"

	"github.com/crestline/perf/pkg/logger"
)

// ErrRateLimited is returned when a client exceeded its submission budget
var ErrRateLimited = errors.New("too many submissions")

// ValidationError carries every failing field
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid submission: " + strings.Join(names, ", ")
}

// Service accepts contact-form submissions. Accepted submissions are
// logged, never stored.
type Service struct {
	limiter *Limiter
	logger  *logger.Logger
}

// NewService creates a new contact service
func NewService(limiter *Limiter, log *logger.Logger) *Service {
	return &Service{
		limiter: limiter,
		logger:  log,
	}
}

// Submit rate-limits, normalizes and validates sub, then logs it
func (s *Service) Submit(ctx context.Context, clientKey string, sub Submission) (Submission, error) {
	if !s.limiter.Allow(ctx, clientKey) {
		s.logger.WithField("client", clientKey).Warn("Contact submission rate limited")
		return Submission{}, ErrRateLimited
	}

	clean := sub.Normalize()
	if errs := clean.Validate(); len(errs) > 0 {
		return clean, &ValidationError{Fields: errs}
	}

	s.logger.WithFields(map[string]interface{}{
		"client":         clientKey,
		"name":           clean.Name,
		"email":          clean.Email,
		"company":        clean.Company,
		"subject":        clean.Subject,
		"message_length": len(clean.Message),
	}).Info("Contact submission received")

	return clean, nil
}

// Cleanup drops idle rate limit buckets
func (s *Service) Cleanup() int {
	return s.limiter.Cleanup()
}
