package store

import (
	"sync"

	"github.com/shiv248/kolabpad/pkg/document"
)

// MemoryStore is an in-process Store backed by a map of path to event
// history. It is the default backend, and the one the session and server
// tests run against.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]document.Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]document.Event)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Push(path string, event document.Event) (SequenceId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[path] = append(s.logs[path], event)
	return SequenceId(len(s.logs[path])), nil
}

func (s *MemoryStore) Seq(path string) (SequenceId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[path]
	if !ok {
		return 0, &Error{Kind: NotFound}
	}
	return SequenceId(len(log)), nil
}

func (s *MemoryStore) Since(path string, seq SequenceId) ([]SequencedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[path]
	if !ok {
		return nil, &Error{Kind: NotFound}
	}
	if int(seq) > len(log) {
		return nil, &Error{Kind: InvalidSequenceId}
	}

	out := make([]SequencedEvent, 0, len(log)-int(seq))
	for i := int(seq); i < len(log); i++ {
		out = append(out, SequencedEvent{Seq: SequenceId(i + 1), Event: log[i]})
	}
	return out, nil
}

func (s *MemoryStore) Content(path string) (SequenceId, *document.Document, error) {
	return ReplayContent(s, path)
}

func (s *MemoryStore) ContentAt(path string, seq SequenceId) (*document.Document, error) {
	return ReplayContentAt(s, path, seq)
}
