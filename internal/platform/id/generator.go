package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues time-ordered UUIDv7 strings so ledger ids sort by creation.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}

	return value.String(), nil
}

// Sequence is a deterministic generator for tests and seeds.
type Sequence struct {
	Prefix string
	next   atomic.Int64
}

func (s *Sequence) NewID() (string, error) {
	return fmt.Sprintf("%s%d", s.Prefix, s.next.Add(1)), nil
}
