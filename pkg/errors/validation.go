package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds node names accepted from importers.
const maxNameLength = 512

// ValidateNodeName validates a node name received from an importer.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - Maximum length of 512 characters
//
// Names are diagnostics and naming seeds only; uniqueness is not required.
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "node name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "node name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node name %q contains control characters", name)
		}
	}

	return nil
}

// ValidateOpType validates an operator type tag. Op types are identifiers
// such as "Mul" or "ReadValue": letters, digits and underscores only.
func ValidateOpType(op string) error {
	if op == "" {
		return New(ErrCodeInvalidInput, "op type cannot be empty")
	}
	if strings.IndexFunc(op, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}) >= 0 {
		return New(ErrCodeInvalidInput, "invalid op type: %q", op)
	}
	return nil
}
