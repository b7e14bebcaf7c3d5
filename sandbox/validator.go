package sandbox

import (
	"fmt"
	"unicode/utf8"
)

// ExecuteRequest represents the parameters for code execution
type ExecuteRequest struct {
	Code     string  `json:"code"`
	Language string  `json:"language"`
	Input    *string `json:"input,omitempty"` // nil when the caller supplied no stdin
}

// Limits bounds the size of an incoming request. Lengths count characters.
type Limits struct {
	MaxCodeLen  int
	MaxInputLen int
}

// ValidationError reports why a request was rejected before any work started.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ValidateRequest checks req in a fixed order and stops at the first failure.
// It has no side effects.
func ValidateRequest(req ExecuteRequest, limits Limits) (Language, error) {
	if req.Code == "" || req.Language == "" {
		return "", &ValidationError{Field: "code", Reason: "Code and language are required"}
	}

	lang, ok := ParseLanguage(req.Language)
	if !ok {
		return "", &ValidationError{Field: "language", Reason: fmt.Sprintf("Unsupported language: %.32s", req.Language)}
	}

	if utf8.RuneCountInString(req.Code) > limits.MaxCodeLen {
		return "", &ValidationError{
			Field:  "code",
			Reason: fmt.Sprintf("Code exceeds maximum length of %d characters", limits.MaxCodeLen),
		}
	}

	if req.Input != nil && utf8.RuneCountInString(*req.Input) > limits.MaxInputLen {
		return "", &ValidationError{
			Field:  "input",
			Reason: fmt.Sprintf("Input exceeds maximum length of %d characters", limits.MaxInputLen),
		}
	}

	return lang, nil
}
