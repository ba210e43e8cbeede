package shared

import "errors"

// Violation is a business-rule rejection surfaced to the caller as-is.
// Code is stable and machine readable; Message is shown to users.
// Field optionally names the input that failed.
type Violation struct {
	Code    string
	Message string
	Field   string
}

// NewViolation constructs a Violation sentinel.
func NewViolation(code, message string) *Violation {
	return &Violation{Code: code, Message: message}
}

func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	return v.Message
}

// WithField returns a copy of v bound to an input field and message.
func (v *Violation) WithField(field, message string) *Violation {
	return &Violation{Code: v.Code, Message: message, Field: field}
}

// Is matches any Violation carrying the same code.
func (v *Violation) Is(target error) bool {
	var other *Violation
	if !errors.As(target, &other) || v == nil || other == nil {
		return false
	}
	return v.Code == other.Code
}

// ViolationCode returns the code of the first Violation in err's chain.
func ViolationCode(err error) (string, bool) {
	var v *Violation
	if errors.As(err, &v) && v != nil {
		return v.Code, true
	}
	return "", false
}
