package testutil

import (
	"fmt"
	"sync"
)

type Gen interface {
	New() string
}

// IDGen wraps another generator but remembers the last ID that was handed
// out in order to make assertions.
type IDGen struct {
	mu   sync.Mutex
	gen  Gen
	last string
}

// New implements the id.ID interface.
func (s *IDGen) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = s.gen.New()
	return s.last
}

// Last returns the last ID that was generated.
func (s *IDGen) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func NewIDGen(gen Gen) *IDGen {
	return &IDGen{gen: gen}
}

// SeqGen generates predictable ids: prefix-1, prefix-2, ...
type SeqGen struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *SeqGen) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

func NewSeqGen(prefix string) *SeqGen {
	return &SeqGen{prefix: prefix}
}
