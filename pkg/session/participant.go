package session

import (
	"context"

	"github.com/shiv248/kolabpad/pkg/document"
	"github.com/shiv248/kolabpad/pkg/store"
)

// ParticipantStream is a connected client's view of a Session: it tracks
// how far that client has caught up, filters out the client's own
// events (the client already applied those optimistically when it sent
// them), and turns ClientEdit submissions into committed edits.
type ParticipantStream struct {
	manager *Manager
	session *Session
	id      document.ParticipantId

	since               store.SequenceId
	lastAckedClientSeq  uint64
}

// Join creates a ParticipantStream for path, admitting a new participant
// into its Session. The returned stream owns a reference on the session
// until Close is called.
func Join(manager *Manager, path string) (*ParticipantStream, error) {
	sess := manager.Acquire(path)

	id, seq, err := sess.Join()
	if err != nil {
		manager.Release(path)
		return nil, err
	}

	return &ParticipantStream{
		manager: manager,
		session: sess,
		id:      id,
		since:   seq,
	}, nil
}

// ID returns the ParticipantId this stream was assigned on Join.
func (p *ParticipantStream) ID() document.ParticipantId { return p.id }

// Since returns the sequence id this stream has caught up to.
func (p *ParticipantStream) Since() store.SequenceId { return p.since }

// Close commits a Leave event for this participant and releases the
// stream's reference on the underlying session.
func (p *ParticipantStream) Close() error {
	_, err := p.session.Leave(p.id)
	p.manager.Release(p.session.path)
	return err
}

// Next blocks until an event not authored by this participant is
// committed after the stream's current position, or ctx is done. It
// advances Since() past every event it skips or returns, self-authored
// or not, so a caller does not re-observe them on the next call.
func (p *ParticipantStream) Next(ctx context.Context) (store.SequencedEvent, error) {
	for {
		// Take the generation channel before reading, so a commit that
		// lands after the read still closes the channel being waited on.
		wait := p.session.waitChan()
		events, err := p.session.store.Since(p.session.path, p.since)
		if err != nil {
			return store.SequencedEvent{}, err
		}

		for _, se := range events {
			p.since = se.Seq
			if p.selfOriginated(se.Event) {
				continue
			}
			return se, nil
		}

		select {
		case <-ctx.Done():
			return store.SequencedEvent{}, ctx.Err()
		case <-wait:
		}
	}
}

func (p *ParticipantStream) selfOriginated(event document.Event) bool {
	switch e := event.(type) {
	case document.Edit:
		return e.Author == p.id
	case document.Join:
		return e.ID == p.id
	case document.Leave:
		return e.ID == p.id
	default:
		return false
	}
}

// SubmitEdit rebases and commits a client-authored edit. parentSeq is the
// sequence id the client built its operations against; clientSeq is an
// opaque client-assigned counter echoed back so the client can reconcile
// which of its optimistic edits has been acknowledged.
func (p *ParticipantStream) SubmitEdit(parentSeq store.SequenceId, clientSeq uint64, ops []document.Operation) (store.SequenceId, []document.Operation, error) {
	seq, transformed, err := p.session.Submit(p.id, parentSeq, ops)
	if err != nil {
		return 0, nil, err
	}
	// since is advanced only by Next, on the reader goroutine: events in
	// (since, seq) authored by other participants - precisely what this
	// edit was just rebased over - have not been delivered to this
	// stream yet, and skipping ahead to seq here would drop them for
	// good. The self-filter in Next already suppresses this submission's
	// own echo once it comes back around through the store.
	p.lastAckedClientSeq = clientSeq
	return seq, transformed, nil
}

// LastAckedClientSeq returns the clientSeq of the most recent edit this
// stream has had committed.
func (p *ParticipantStream) LastAckedClientSeq() uint64 { return p.lastAckedClientSeq }
