// Package ids hands out aggregate identifiers.
package ids

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces new identifiers.
type Generator interface {
	New() uuid.UUID
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() uuid.UUID

func (f GeneratorFunc) New() uuid.UUID { return f() }

// Time-ordered v7 ids keep created_at pagination and index locality aligned.
type v7 struct{}

// Default returns the production generator.
func Default() Generator { return v7{} }

func (v7) New() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Sequence returns the given ids in order and random ids once exhausted.
type Sequence struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func NewSequence(ids ...uuid.UUID) *Sequence {
	return &Sequence{ids: append([]uuid.UUID(nil), ids...)}
}

func (s *Sequence) New() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return uuid.New()
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}
