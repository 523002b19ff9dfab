// Package store implements the event log a DocumentSession commits
// edits to: an append-only, per-path sequence of document.Events from
// which a Document's content at any point in its history can be
// rebuilt.
package store

import "github.com/shiv248/kolabpad/pkg/document"

// SequenceId is a 1-based, dense, monotonically increasing position
// within a single path's event log. Sequence 0 denotes "before the first
// event".
type SequenceId uint64

// SequencedEvent pairs an Event with the SequenceId it was committed at.
type SequencedEvent struct {
	Seq   SequenceId
	Event document.Event
}

// Store is the minimal API a storage backend must provide. Default
// implementations of Content and ContentAt are available via
// ReplayContent/ReplayContentAt for backends that have no more
// performant way to reconstruct a Document than folding its event log;
// a backend is free to override both with something smarter.
type Store interface {
	// Push appends event to path's log, creating the path if it does
	// not exist, and returns the SequenceId it was committed at.
	Push(path string, event document.Event) (SequenceId, error)

	// Seq returns the current (highest committed) SequenceId for path,
	// or an *Error of Kind NotFound if path has never been pushed to.
	Seq(path string) (SequenceId, error)

	// Since returns every SequencedEvent committed after seq. Asking
	// for the current head is not an error and yields an empty slice;
	// asking for a sequence beyond the head is InvalidSequenceId.
	Since(path string, seq SequenceId) ([]SequencedEvent, error)

	// Content returns the current SequenceId and the Document obtained
	// by folding every event committed to path.
	Content(path string) (SequenceId, *document.Document, error)

	// ContentAt returns the Document obtained by folding every event
	// committed to path up to and including seq.
	ContentAt(path string, seq SequenceId) (*document.Document, error)
}

// Kind enumerates the ways a Store operation can fail.
type Kind int

const (
	// NotFound means the requested path has no log.
	NotFound Kind = iota
	// InvalidSequenceId means the requested SequenceId does not exist
	// for the path (either it is beyond the current head, or, for
	// Since, it is not a valid starting point).
	InvalidSequenceId
	// InvalidDocument means folding the event log produced an error -
	// the log itself is corrupt or was written by an incompatible
	// version of the event schema.
	InvalidDocument
	// ConnectionError means the backend could not be reached.
	ConnectionError
)

// Error reports why a Store operation failed.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotFound:
		return "store: path not found"
	case InvalidSequenceId:
		return "store: invalid sequence id"
	case InvalidDocument:
		return "store: invalid document: " + errString(e.Err)
	case ConnectionError:
		return "store: connection error: " + errString(e.Err)
	default:
		return "store: unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// ReplayContentAt is the fold-based ContentAt every Store implementation
// can fall back to: apply every event from the beginning of the log up
// to seq onto a fresh Document. Backends with a cheaper way to answer
// ContentAt (a snapshot table, a cache) should not use this.
func ReplayContentAt(s Store, path string, seq SequenceId) (*document.Document, error) {
	head, err := s.Seq(path)
	if err != nil {
		return nil, err
	}
	if seq > head {
		return nil, &Error{Kind: InvalidSequenceId}
	}

	events, err := s.Since(path, 0)
	if err != nil {
		return nil, err
	}

	doc := document.New("")
	for _, se := range events {
		if se.Seq > seq {
			break
		}
		if err := doc.Apply(se.Event); err != nil {
			return nil, &Error{Kind: InvalidDocument, Err: err}
		}
	}
	return doc, nil
}

// ReplayContent is Content implemented in terms of Seq and ReplayContentAt.
func ReplayContent(s Store, path string) (SequenceId, *document.Document, error) {
	seq, err := s.Seq(path)
	if err != nil {
		return 0, nil, err
	}
	doc, err := ReplayContentAt(s, path, seq)
	if err != nil {
		return 0, nil, err
	}
	return seq, doc, nil
}
