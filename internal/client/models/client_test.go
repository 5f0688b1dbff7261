package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"single token", "Maria", "Maria", ""},
		{"two tokens", "Maria Gonzalez", "Maria", "Gonzalez"},
		{"multi-word last name", "Maria Gonzalez Lopez", "Maria", "Gonzalez Lopez"},
		{"tab separated", "Maria\tGonzalez", "Maria", "Gonzalez"},
		{"mixed whitespace", "Maria \t Gonzalez Lopez", "Maria", "Gonzalez Lopez"},
		{"surrounding whitespace", "  Maria Gonzalez  ", "Maria", "Gonzalez"},
		{"empty", "", "", ""},
		{"whitespace only", " \t ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.input)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
