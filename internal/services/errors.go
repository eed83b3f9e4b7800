package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFeedUnreachable       = errors.New("feed unreachable")
	ErrFeedMalformed         = errors.New("feed malformed")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrAnalysisSchemaInvalid = errors.New("analysis schema invalid")
	ErrRateLimited           = errors.New("rate limited")
	ErrServiceUnavailable    = errors.New("service unavailable")
	ErrStoreWriteConflict    = errors.New("store write conflict")
	ErrConfiguration         = errors.New("configuration error")
	ErrValidation            = errors.New("validation error")
)

// Category is a stable, log- and metric-friendly name for a failure class.
type Category string

const (
	CategoryNone                  Category = ""
	CategoryFeedUnreachable       Category = "feed_unreachable"
	CategoryFeedMalformed         Category = "feed_malformed"
	CategoryTranscriptUnavailable Category = "transcript_unavailable"
	CategoryAnalysisSchemaInvalid Category = "analysis_schema_invalid"
	CategoryRateLimited           Category = "rate_limited"
	CategoryServiceUnavailable    Category = "service_unavailable"
	CategoryStoreWriteConflict    Category = "store_write_conflict"
	CategoryConfiguration         Category = "configuration"
	CategoryValidation            Category = "validation"
	CategoryCanceled              Category = "canceled"
	CategoryUnknown               Category = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrServiceUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error chain onto its failure category. Markers win over
// context errors so a timeout surfaced by an HTTP client that was already
// tagged as ServiceUnavailable keeps its tag.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrFeedUnreachable):
		return CategoryFeedUnreachable
	case errors.Is(err, ErrFeedMalformed):
		return CategoryFeedMalformed
	case errors.Is(err, ErrTranscriptUnavailable):
		return CategoryTranscriptUnavailable
	case errors.Is(err, ErrAnalysisSchemaInvalid):
		return CategoryAnalysisSchemaInvalid
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrServiceUnavailable):
		return CategoryServiceUnavailable
	case errors.Is(err, ErrStoreWriteConflict):
		return CategoryStoreWriteConflict
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryServiceUnavailable
	default:
		return CategoryUnknown
	}
}

// Retryable reports whether the failure is transient from the caller's view.
func Retryable(err error) bool {
	switch Classify(err) {
	case CategoryRateLimited, CategoryServiceUnavailable:
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
