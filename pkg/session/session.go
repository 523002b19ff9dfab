// Package session implements the document session coordinator: per-path
// join/leave/submit serialization over an event log, and per-connection
// participant streams that tail it.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/shiv248/kolabpad/pkg/document"
	"github.com/shiv248/kolabpad/pkg/logger"
	"github.com/shiv248/kolabpad/pkg/ot"
	"github.com/shiv248/kolabpad/pkg/store"
)

// Session coordinates every participant editing the document at a single
// path. It holds no document content itself - that lives entirely in the
// Store - only the bookkeeping needed to serialize writes and wake
// tailing readers: the next participant id to hand out, a cached head
// sequence, and a generation channel.
//
// Submit is the rebase-on-write critical section described by the
// system's design notes: a submitted edit is transformed against
// whatever committed after the client's base revision, optimistically,
// without holding the session lock for the (possibly large) catch-up
// read. The lock is only re-acquired to confirm nothing else advanced the
// head in the meantime before committing - if something did, the
// transform is retried against the now-larger catch-up window.
type Session struct {
	path  string
	store store.Store

	mu      sync.Mutex
	headSeq store.SequenceId
	nextID  document.ParticipantId
	notify  chan struct{}

	refs atomic.Int64
}

func newSession(path string, s store.Store) *Session {
	headSeq, _ := s.Seq(path)
	return &Session{
		path:    path,
		store:   s,
		headSeq: headSeq,
		notify:  make(chan struct{}),
	}
}

// waitChan returns the current generation channel. It is closed (and
// replaced) every time the session's head sequence advances, waking
// every tailing reader exactly once per advance.
func (s *Session) waitChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// wake must be called with s.mu held. It advances the generation,
// releasing every goroutine blocked on the previous waitChan().
func (s *Session) wake() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// Join admits a new participant, allocating it a fresh ParticipantId, and
// commits a Join event. It returns the new id and the sequence id the
// Join was committed at.
func (s *Session) Join() (document.ParticipantId, store.SequenceId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	seq, err := s.store.Push(s.path, document.Join{ID: id})
	if err != nil {
		return 0, 0, err
	}
	s.headSeq = seq
	s.wake()
	return id, seq, nil
}

// Leave commits a Leave event for id.
func (s *Session) Leave(id document.ParticipantId) (store.SequenceId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.store.Push(s.path, document.Leave{ID: id})
	if err != nil {
		return 0, err
	}
	s.headSeq = seq
	s.wake()
	return seq, nil
}

// Submit rebases an edit authored by author, built against parentSeq, onto
// the current head, commits it, and returns the sequence id it landed at
// together with the (possibly transformed) operations that were actually
// applied. See the Session doc comment for the optimistic-concurrency
// protocol this implements.
func (s *Session) Submit(author document.ParticipantId, parentSeq store.SequenceId, ops []document.Operation) (store.SequenceId, []document.Operation, error) {
	edit := document.Edit{Author: author, Operations: ops}

	for {
		s.mu.Lock()
		headSeq := s.headSeq
		s.mu.Unlock()

		catchUp, err := s.store.Since(s.path, parentSeq)
		if err != nil {
			return 0, nil, err
		}
		var localEvent document.Event = edit
		for _, se := range catchUp {
			// Bound the window to the headSeq snapshot above: Since
			// reads the live store, so a concurrent Join/Leave/Submit
			// may have appended events past headSeq by the time this
			// runs. Those belong to the *next* iteration's catch-up
			// window (after the retry below picks them up via the new
			// parentSeq) - transforming against them here too would
			// double-apply them once this retries.
			if se.Seq > headSeq {
				break
			}
			ot.TransformEvent(&localEvent, se.Event)
		}
		edit = localEvent.(document.Edit)

		s.mu.Lock()
		if s.headSeq != headSeq {
			// Something else advanced the head while we were
			// transforming; retry against the larger window.
			s.mu.Unlock()
			parentSeq = headSeq
			continue
		}

		seq, err := s.store.Push(s.path, edit)
		if err != nil {
			s.mu.Unlock()
			return 0, nil, err
		}
		s.headSeq = seq
		s.wake()
		s.mu.Unlock()

		logger.Debug("session %s: committed edit from participant %d at seq %d", s.path, author, seq)
		return seq, edit.Operations, nil
	}
}
