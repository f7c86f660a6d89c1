package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "arbiter.base_timeout_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// providerIDRegex validates provider identifier characters
var providerIDRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateArbiter()...)
	errors = append(errors, c.validateSkill()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateProviders()...)

	return errors
}

func (c *Config) validateArbiter() []ValidationError {
	var errors []ValidationError

	if c.Arbiter.BaseTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "arbiter.base_timeout_ms",
			Value:   c.Arbiter.BaseTimeoutMs,
			Message: "must be positive",
		})
	}
	if c.Arbiter.ExtensionTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "arbiter.extension_timeout_ms",
			Value:   c.Arbiter.ExtensionTimeoutMs,
			Message: "must be positive",
		})
	}
	if c.Arbiter.ExtensionTimeoutMs < c.Arbiter.BaseTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "arbiter.extension_timeout_ms",
			Value:   c.Arbiter.ExtensionTimeoutMs,
			Message: "must not be shorter than the base timeout",
		})
	}
	if c.Arbiter.SettleTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "arbiter.settle_timeout_ms",
			Value:   c.Arbiter.SettleTimeoutMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateSkill() []ValidationError {
	var errors []ValidationError

	if c.Skill.PlayTrigger == "" {
		errors = append(errors, ValidationError{
			Field:   "skill.play_trigger",
			Value:   c.Skill.PlayTrigger,
			Message: "must not be empty",
		})
	}
	if c.Skill.Lang == "" {
		errors = append(errors, ValidationError{
			Field:   "skill.lang",
			Value:   c.Skill.Lang,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateProviders() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)

		if !providerIDRegex.MatchString(p.ID) {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   p.ID,
				Message: "must start with a letter and contain only letters, digits, '.', '_' or '-'",
			})
		}
		if seen[p.ID] {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   p.ID,
				Message: "duplicate provider id",
			})
		}
		seen[p.ID] = true

		if p.Confidence < 0 || p.Confidence > 1 {
			errors = append(errors, ValidationError{
				Field:   field + ".confidence",
				Value:   p.Confidence,
				Message: "must be between 0.0 and 1.0",
			})
		}
		if p.BidDelayMs < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".bid_delay_ms",
				Value:   p.BidDelayMs,
				Message: "must not be negative",
			})
		}
		if p.SearchTimeMs < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".search_time_ms",
				Value:   p.SearchTimeMs,
				Message: "must not be negative",
			})
		}
	}

	return errors
}
