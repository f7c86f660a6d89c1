// Package errors provides centralized error definitions and error handling
// utilities for the Encore codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ProtocolError: malformed or out-of-window events from providers
//   - VocabError: errors related to vocabulary resource loading
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewProtocolError("bid for closed session", errors.ErrNoSession)
//	err = err.WithProvider("spotify-skill").WithPhrase("jazz")
//
//	// Semantic error
//	err := errors.NewNotFoundError("vocabulary", "converse_resume")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrNoSession) { ... }
//
//	var protoErr *errors.ProtocolError
//	if errors.As(err, &protoErr) { ... }
//
//	if errors.IsProtocolViolation(err) { ... }
//
// # Error Classification
//
// Protocol violations are expected in normal operation (late replies,
// duplicate bids) and are logged at diagnostic level, never surfaced to the
// user. Vocabulary lookups are the only fail-fast path: a missing .voc file
// aborts the operation instead of degrading.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Query session sentinel errors
var (
	// ErrNoSession indicates that no open query session exists for a phrase.
	ErrNoSession = New("no open session for phrase")
	// ErrDuplicateBid indicates that a provider already submitted a final bid.
	ErrDuplicateBid = New("provider already submitted a bid")
	// ErrEmptyPhrase indicates that a query was issued with an empty phrase.
	ErrEmptyPhrase = New("search phrase is empty")
)

// Vocabulary sentinel errors
var (
	// ErrVocabNotFound indicates that a required .voc file could not be found.
	ErrVocabNotFound = New("vocabulary file not found")
)

// Playback sentinel errors
var (
	// ErrNotPlaying indicates that a control action was requested while idle.
	ErrNotPlaying = New("nothing is playing")
)

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ProtocolError represents a protocol violation by an external provider:
// a malformed, late, or duplicate event. Violations are dropped after
// diagnostic logging and never abort the hosting process.
//
// Example:
//
//	err := errors.NewProtocolError("late bid", errors.ErrNoSession)
//	err = err.WithProvider("spotify-skill").WithPhrase("jazz")
type ProtocolError struct {
	message  string
	cause    error
	Provider string
	Phrase   string
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{message: message, cause: cause}
}

// WithProvider adds the offending provider ID to the error context.
func (e *ProtocolError) WithProvider(id string) *ProtocolError {
	e.Provider = id
	return e
}

// WithPhrase adds the search phrase to the error context.
func (e *ProtocolError) WithPhrase(phrase string) *ProtocolError {
	e.Phrase = phrase
	return e
}

// Error returns the formatted error message.
func (e *ProtocolError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	if e.Phrase != "" {
		parts = append(parts, fmt.Sprintf("phrase=%q", e.Phrase))
	}

	prefix := "protocol violation"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("protocol violation [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *ProtocolError) Is(target error) bool {
	if _, ok := target.(*ProtocolError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// VocabError represents errors related to vocabulary resource loading.
//
// Example:
//
//	err := errors.NewVocabError("failed to read vocabulary", readErr)
//	err = err.WithFile("converse_resume.voc").WithLang("en-us")
type VocabError struct {
	message string
	cause   error
	File    string
	Lang    string
}

// NewVocabError creates a new VocabError.
func NewVocabError(message string, cause error) *VocabError {
	return &VocabError{message: message, cause: cause}
}

// WithFile adds the vocabulary file name to the error context.
func (e *VocabError) WithFile(file string) *VocabError {
	e.File = file
	return e
}

// WithLang adds the language code to the error context.
func (e *VocabError) WithLang(lang string) *VocabError {
	e.Lang = lang
	return e
}

// Error returns the formatted error message.
func (e *VocabError) Error() string {
	var parts []string
	if e.File != "" {
		parts = append(parts, fmt.Sprintf("file=%s", e.File))
	}
	if e.Lang != "" {
		parts = append(parts, fmt.Sprintf("lang=%s", e.Lang))
	}

	prefix := "vocab error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("vocab error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *VocabError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *VocabError) Is(target error) bool {
	if _, ok := target.(*VocabError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("vocabulary", "converse_resume")
//	fmt.Println(err) // "vocabulary 'converse_resume' not found"
type NotFoundError struct {
	cause        error
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("confidence out of range")
//	err = err.WithField("conf").WithValue(1.7)
type ValidationError struct {
	message string
	cause   error
	Field   string
	Value   any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsProtocolViolation returns true if the error represents a protocol
// violation by an external provider. Violations are logged at diagnostic
// level and dropped; they never produce a user-visible effect.
func IsProtocolViolation(err error) bool {
	if err == nil {
		return false
	}

	var protoErr *ProtocolError
	if As(err, &protoErr) {
		return true
	}

	return Is(err, ErrNoSession) || Is(err, ErrDuplicateBid)
}

// IsUserFacing returns true if the error message is safe to display to end
// users. Protocol violations are internal; vocabulary and validation errors
// may be surfaced.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	if IsProtocolViolation(err) {
		return false
	}

	var notFound *NotFoundError
	var validation *ValidationError
	var vocab *VocabError

	return As(err, &notFound) || As(err, &validation) || As(err, &vocab)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to resolve query")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to resolve query for %q", phrase)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
