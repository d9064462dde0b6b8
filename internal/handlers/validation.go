package handlers

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/giannis84/character-browser/internal/models"
)

const maxNameLength = 255

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// validate collects errors and returns a *ValidationError if any exist.
func validate(checks ...func() string) error {
	var errs []string
	for _, check := range checks {
		if msg := check(); msg != "" {
			errs = append(errs, msg)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func requireNonEmpty(field, value string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s is required", field)
	}
	return ""
}

func checkMaxLength(field, value string, max int) string {
	if len(value) > max {
		return fmt.Sprintf("%s exceeds maximum length of %d", field, max)
	}
	return ""
}

func checkPositiveInt(field, value string) string {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Sprintf("%s must be an integer", field)
	}
	if n < 1 {
		return fmt.Sprintf("%s must be at least 1", field)
	}
	return ""
}

func checkStatus(field, value string) string {
	if _, ok := models.ParseStatusFilter(value); ok {
		return ""
	}
	allowed := make([]string, len(models.StatusFilters))
	for i, s := range models.StatusFilters {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s has invalid value %q (allowed: %s)", field, value, strings.Join(allowed, ", "))
}

func checkEmail(field, value string) string {
	if _, err := mail.ParseAddress(value); err != nil {
		return fmt.Sprintf("%s is not a valid email address", field)
	}
	return ""
}
