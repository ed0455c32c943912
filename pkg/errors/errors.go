package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network or timeout errors during retrieval
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeRateLimit represents a marketplace asking us to back off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeRenderTimeout represents a ready marker that never appeared
	ErrorTypeRenderTimeout ErrorType = "render_timeout"
	// ErrorTypeUnsupportedPlatform represents a platform missing from the dispatch table
	ErrorTypeUnsupportedPlatform ErrorType = "unsupported_platform"
	// ErrorTypeExtraction represents a document that could not be parsed
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeRepository represents persistence failures
	ErrorTypeRepository ErrorType = "repository"
	// ErrorTypeDispatch represents alert delivery failures
	ErrorTypeDispatch ErrorType = "dispatch"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInternal represents a recovered panic
	ErrorTypeInternal ErrorType = "internal"
)

// CheckError represents an error raised while checking a single target
type CheckError struct {
	Type     ErrorType
	Platform string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Platform, e.Message)
}

// Unwrap returns the underlying error
func (e *CheckError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the next scheduled cycle may succeed where this one failed.
// There is never an in-cycle retry.
func (e *CheckError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeRenderTimeout:
		return true
	default:
		return false
	}
}

// New creates a new CheckError
func New(errType ErrorType, platform, message string, err error) *CheckError {
	return &CheckError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(platform, message string, err error) *CheckError {
	return New(ErrorTypeFetch, platform, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(platform string, duration time.Duration) *CheckError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, platform, message, nil)
}

// NewRenderTimeout creates a new render timeout error
func NewRenderTimeout(platform, selector string, err error) *CheckError {
	return New(ErrorTypeRenderTimeout, platform, fmt.Sprintf("ready marker %q never appeared", selector), err)
}

// NewUnsupportedPlatform creates a new unsupported platform error
func NewUnsupportedPlatform(platform string) *CheckError {
	return New(ErrorTypeUnsupportedPlatform, platform, "platform is not supported", nil)
}

// NewExtraction creates a new extraction error
func NewExtraction(platform, message string, err error) *CheckError {
	return New(ErrorTypeExtraction, platform, message, err)
}

// NewRepository creates a new repository error
func NewRepository(platform, message string, err error) *CheckError {
	return New(ErrorTypeRepository, platform, message, err)
}

// NewDispatch creates a new dispatch error
func NewDispatch(platform, message string, err error) *CheckError {
	return New(ErrorTypeDispatch, platform, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CheckError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first CheckError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var ce *CheckError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsType reports whether err's chain contains a CheckError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// WithPlatform fills in the platform of the first CheckError in err's chain when it is empty
func WithPlatform(err error, platform string) error {
	var ce *CheckError
	if stderrors.As(err, &ce) && ce.Platform == "" {
		ce.Platform = platform
	}
	return err
}
