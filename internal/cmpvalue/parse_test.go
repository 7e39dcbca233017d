package cmpvalue

import (
	"reflect"
	"testing"
	"time"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{
			name:     "empty string becomes nil",
			input:    "",
			expected: nil,
		},
		{
			name:     "null literal",
			input:    "null",
			expected: nil,
		},
		{
			name:     "None literal",
			input:    "None",
			expected: nil,
		},
		{
			name:     "true is case-insensitive",
			input:    "True",
			expected: true,
		},
		{
			name:     "false",
			input:    "false",
			expected: false,
		},
		{
			name:     "digit-only string becomes int64",
			input:    "123",
			expected: int64(123),
		},
		{
			name:     "decimal becomes float64",
			input:    "3.14",
			expected: 3.14,
		},
		{
			name:     "negative arrives as decimal",
			input:    "-5",
			expected: float64(-5),
		},
		{
			name:     "plain text passes through",
			input:    "BACM 2006-1 A4",
			expected: "BACM 2006-1 A4",
		},
		{
			name:     "non-string passes through",
			input:    42,
			expected: 42,
		},
		{
			name:     "nil passes through",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Parse(%v) = %v (%T), want %v (%T)", tt.input, result, result, tt.expected, tt.expected)
			}
		})
	}
}

func TestParseTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "ISO without zone",
			input:    "2024-03-15T10:30:00",
			expected: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "ISO with fractional seconds",
			input:    "2024-03-15T10:30:00.500000",
			expected: time.Date(2024, 3, 15, 10, 30, 0, 500000000, time.UTC),
		},
		{
			name:     "clock shape with meridiem",
			input:    "3/15/2024 10:30 AM",
			expected: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			ts, ok := result.(time.Time)
			if !ok {
				t.Fatalf("Parse(%q) = %v (%T), want time.Time", tt.input, result, result)
			}
			if !ts.Equal(tt.expected) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, ts, tt.expected)
			}
		})
	}
}

func TestParseLists(t *testing.T) {
	t.Run("lists are parsed element-wise", func(t *testing.T) {
		result := Parse([]any{"1", "2.5", "text"})
		expected := []any{int64(1), 2.5, "text"}
		if !reflect.DeepEqual(result, expected) {
			t.Errorf("Parse() = %v, want %v", result, expected)
		}
	})

	t.Run("embedded JSON list in a string value", func(t *testing.T) {
		result := Parse(`["1", "2"]`)
		expected := []any{int64(1), int64(2)}
		if !reflect.DeepEqual(result, expected) {
			t.Errorf("Parse() = %v, want %v", result, expected)
		}
	})

	t.Run("malformed bracket text passes through", func(t *testing.T) {
		input := "[not json"
		if result := Parse(input); result != input {
			t.Errorf("Parse(%q) = %v, want the input back", input, result)
		}
	})
}
