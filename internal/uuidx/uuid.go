// Package uuidx generates the random identifiers assigned to users.
package uuidx

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces random identifiers in canonical hyphenated form
// (8-4-4-4-12 hex digits, version 4, variant 10). The format is
// deterministic, the value is not. Implementations have no side effects.
type Generator interface {
	Generate() (string, error)
}

// V4Generator draws identifiers from crypto/rand. Generation fails only if
// the random source itself is unavailable; such an error is not retryable.
type V4Generator struct{}

func NewV4() *V4Generator { return &V4Generator{} }

func (g *V4Generator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("random source unavailable: %w", err)
	}
	return id.String(), nil
}
