package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/shiv248/kolabpad/pkg/document"
	"github.com/shiv248/kolabpad/pkg/session"
	"github.com/shiv248/kolabpad/pkg/store"
)

func TestJoinLeaveAllocatesDistinctIDs(t *testing.T) {
	mgr := session.NewManager(store.NewMemoryStore())

	a, err := session.Join(mgr, "/doc")
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	b, err := session.Join(mgr, "/doc")
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct participant ids, got %d twice", a.ID())
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close a: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close b: %v", err)
	}

	if mgr.ActiveSessions() != 0 {
		t.Fatalf("expected session to be reclaimed once empty, got %d active", mgr.ActiveSessions())
	}
}

func TestSubmitRebasesAgainstConcurrentEdit(t *testing.T) {
	s := store.NewMemoryStore()
	mgr := session.NewManager(s)

	// b joins first and so holds the lower participant id: at equal
	// positions the higher id's insert lands first.
	b, err := session.Join(mgr, "/doc")
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	defer b.Close()
	a, err := session.Join(mgr, "/doc")
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	defer a.Close()

	base := a.Since() // both joins are now committed

	// a inserts "hello" at 0, b inserts " world" at 0, both built against
	// the same base - b's edit must be rebased to land after a's insert.
	seqA, opsA, err := a.SubmitEdit(base, 1, []document.Operation{document.Insert{Pos: 0, Content: "hello"}})
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if len(opsA) != 1 || opsA[0].(document.Insert).Pos != 0 {
		t.Fatalf("expected a's own edit untransformed, got %#v", opsA)
	}

	seqB, opsB, err := b.SubmitEdit(base, 1, []document.Operation{document.Insert{Pos: 0, Content: " world"}})
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}
	if seqB <= seqA {
		t.Fatalf("expected b's commit to land after a's, got seqA=%d seqB=%d", seqA, seqB)
	}
	insB, ok := opsB[0].(document.Insert)
	if !ok || insB.Pos != 5 {
		t.Fatalf("expected b's insert rebased to pos 5, got %#v", opsB)
	}

	_, doc, err := s.Content("/doc")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if doc.Content != "hello world" {
		t.Fatalf("content = %q, want %q", doc.Content, "hello world")
	}
}

func TestParticipantStreamFiltersSelfEvents(t *testing.T) {
	mgr := session.NewManager(store.NewMemoryStore())

	a, err := session.Join(mgr, "/doc")
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	defer a.Close()

	// a's own edit is committed before b joins; Next must skip it.
	if _, _, err := a.SubmitEdit(a.Since(), 1, []document.Operation{document.Insert{Pos: 0, Content: "x"}}); err != nil {
		t.Fatalf("submit a: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	var b *session.ParticipantStream
	go func() {
		defer close(done)
		time.Sleep(20 * time.Millisecond)
		var joinErr error
		b, joinErr = session.Join(mgr, "/doc")
		if joinErr != nil {
			t.Errorf("join b: %v", joinErr)
		}
	}()

	se, err := a.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	<-done
	defer b.Close()

	join, ok := se.Event.(document.Join)
	if !ok {
		t.Fatalf("expected Join event, got %#v", se.Event)
	}
	if join.ID != b.ID() {
		t.Fatalf("expected to observe b's join (id %d), got %d", b.ID(), join.ID)
	}
}
