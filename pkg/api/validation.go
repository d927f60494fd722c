package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
	}
}

// ValidateCompletionRequest checks the minimal shape of an inbound completion
// request. It returns an *APIError describing the first failure, or nil.
// Forwarded params are never inspected.
func ValidateCompletionRequest(req *CompletionRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d entries", cfg.MaxMessages))
	}

	total := 0
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("invalid role %q: must be system, user, or assistant", m.Role))
		}
		total += len(m.Content)
	}

	if cfg.MaxContentSize > 0 && total > cfg.MaxContentSize {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("total content exceeds maximum of %d bytes", cfg.MaxContentSize))
	}

	return nil
}
