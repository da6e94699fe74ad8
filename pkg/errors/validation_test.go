package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "mul_0", false},
		{"slashes allowed", "block1/gelu/Mul_1", false},
		{"marker suffix", "out/TBD", false},
		{"empty", "", true},
		{"control char", "mul\x00", true},
		{"newline", "mul\n", true},
		{"too long", strings.Repeat("a", 513), true},
		{"max length", strings.Repeat("a", 512), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateOpType(t *testing.T) {
	tests := []struct {
		op      string
		wantErr bool
	}{
		{"Mul", false},
		{"ReadValue", false},
		{"Const_2", false},
		{"", true},
		{"Mul Add", true},
		{"Mul/1", true},
	}

	for _, tt := range tests {
		err := ValidateOpType(tt.op)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOpType(%q) error = %v, wantErr %v", tt.op, err, tt.wantErr)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidPattern,
		ErrCodeMissingAttribute,
		ErrCodeAttributeType,
		ErrCodeInvalidRewire,
		ErrCodeInvariantViolation,
		ErrCodeValidation,
		ErrCodeNotFound,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
