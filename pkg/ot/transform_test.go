package ot_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/shiv248/kolabpad/pkg/document"
	"github.com/shiv248/kolabpad/pkg/ot"
)

func edit(author document.ParticipantId, ops ...document.Operation) document.Edit {
	return document.Edit{Author: author, Operations: ops}
}

func assertOps(t *testing.T, got []document.Operation, want ...document.Operation) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestTransformInsertBeforeInsert(t *testing.T) {
	h := edit(1, document.Insert{Pos: 0, Content: "Test"})
	ot.Transform(&h, edit(2, document.Insert{Pos: 10, Content: "foo"}))
	assertOps(t, h.Operations, document.Insert{Pos: 0, Content: "Test"})
}

func TestTransformInsertAfterInsert(t *testing.T) {
	h := edit(1, document.Insert{Pos: 10, Content: "Test"})
	ot.Transform(&h, edit(2, document.Insert{Pos: 2, Content: "foo"}))
	assertOps(t, h.Operations, document.Insert{Pos: 13, Content: "Test"})
}

func TestTransformInsertsAtSamePointChecksPriority(t *testing.T) {
	h := edit(1, document.Insert{Pos: 5, Content: "Test"})
	ot.Transform(&h, edit(2, document.Insert{Pos: 5, Content: "foo"}))
	assertOps(t, h.Operations, document.Insert{Pos: 8, Content: "Test"})

	h2 := edit(2, document.Insert{Pos: 5, Content: "Test"})
	ot.Transform(&h2, edit(1, document.Insert{Pos: 5, Content: "foo"}))
	assertOps(t, h2.Operations, document.Insert{Pos: 5, Content: "Test"})
}

func TestTransformInsertUsesCharIndexNotByteIndex(t *testing.T) {
	h := edit(1, document.Insert{Pos: 5, Content: "Test"})
	ot.Transform(&h, edit(2, document.Insert{Pos: 0, Content: "д"}))
	assertOps(t, h.Operations, document.Insert{Pos: 6, Content: "Test"})
}

func TestTransformDeleteDeleteNonOverlapping(t *testing.T) {
	h := edit(1, document.Delete{Start: 0, End: 5})
	ot.Transform(&h, edit(2, document.Delete{Start: 10, End: 15}))
	assertOps(t, h.Operations, document.Delete{Start: 0, End: 5})

	h2 := edit(1, document.Delete{Start: 5, End: 10})
	ot.Transform(&h2, edit(2, document.Delete{Start: 0, End: 1}))
	assertOps(t, h2.Operations, document.Delete{Start: 4, End: 9})
}

func TestTransformDeleteDeleteOverlappingStart(t *testing.T) {
	h := edit(1, document.Delete{Start: 5, End: 15})
	ot.Transform(&h, edit(2, document.Delete{Start: 0, End: 10}))
	assertOps(t, h.Operations, document.Delete{Start: 0, End: 5})
}

func TestTransformDeleteDeleteOverlappingEnd(t *testing.T) {
	h := edit(1, document.Delete{Start: 0, End: 4})
	ot.Transform(&h, edit(2, document.Delete{Start: 2, End: 6}))
	assertOps(t, h.Operations, document.Delete{Start: 0, End: 2})
}

func TestTransformDeleteDeleteSubset(t *testing.T) {
	h := edit(1, document.Delete{Start: 5, End: 10})
	ot.Transform(&h, edit(2, document.Delete{Start: 1, End: 20}))
	// The no-op delete is kept: it still sets the cursor position for
	// its author even though it no longer changes document content.
	assertOps(t, h.Operations, document.Delete{Start: 1, End: 1})
}

func TestTransformDeleteDeleteSuperset(t *testing.T) {
	h := edit(1, document.Delete{Start: 0, End: 17})
	ot.Transform(&h, edit(2, document.Delete{Start: 5, End: 10}))
	assertOps(t, h.Operations, document.Delete{Start: 0, End: 12})
}

func TestTransformInsertDeleteOverlappingStart(t *testing.T) {
	h := edit(1, document.Insert{Pos: 5, Content: "1234567890"})
	ot.Transform(&h, edit(2, document.Delete{Start: 0, End: 10}))
	assertOps(t, h.Operations, document.Insert{Pos: 0, Content: "1234567890"})
}

func TestTransformInsertDeleteSubset(t *testing.T) {
	h := edit(1, document.Insert{Pos: 5, Content: "12345"})
	ot.Transform(&h, edit(2, document.Delete{Start: 1, End: 20}))
	assertOps(t, h.Operations, document.Insert{Pos: 1, Content: "12345"})
}

func TestTransformDeleteInsertNonOverlappingBefore(t *testing.T) {
	h := edit(1, document.Delete{Start: 5, End: 8})
	ot.Transform(&h, edit(2, document.Insert{Pos: 0, Content: "a"}))
	assertOps(t, h.Operations, document.Delete{Start: 6, End: 9})
}

func TestTransformDeleteInsertSameStartPosition(t *testing.T) {
	h := edit(1, document.Delete{Start: 2, End: 4})
	ot.Transform(&h, edit(2, document.Insert{Pos: 2, Content: "cd"}))
	assertOps(t, h.Operations,
		document.Delete{Start: 4, End: 6},
		document.Delete{Start: 2, End: 2},
	)
}

func TestTransformDeleteInsertOverlappingEnd(t *testing.T) {
	h := edit(1, document.Delete{Start: 0, End: 4})
	ot.Transform(&h, edit(2, document.Insert{Pos: 2, Content: "abcd"}))
	assertOps(t, h.Operations,
		document.Delete{Start: 6, End: 8},
		document.Delete{Start: 0, End: 2},
	)
}

func TestTransformDeleteInsertSuperset(t *testing.T) {
	h := edit(1, document.Delete{Start: 0, End: 17})
	ot.Transform(&h, edit(2, document.Insert{Pos: 5, Content: "12345"}))
	assertOps(t, h.Operations,
		document.Delete{Start: 10, End: 22},
		document.Delete{Start: 0, End: 5},
	)
}

// concurrentEditScenario runs two replicas of doc through an edit pair in
// both orderings (after transforming each edit against the other) and asserts they
// converge on the same document.
func concurrentEditScenario(t *testing.T, base *document.Document, op1, op2 document.Operation) {
	t.Helper()

	a1 := edit(1, op1)
	b1 := edit(2, op2)
	a2 := a1.Clone()
	b2 := b1.Clone()

	ot.Transform(&a1, b1)
	ot.Transform(&b2, a2)

	doc1 := base.Clone()
	doc2 := base.Clone()

	if err := doc1.Apply(b1); err != nil {
		t.Fatalf("doc1 apply b1: %v", err)
	}
	if err := doc1.Apply(a1); err != nil {
		t.Fatalf("doc1 apply a1: %v", err)
	}

	if err := doc2.Apply(a2); err != nil {
		t.Fatalf("doc2 apply a2: %v", err)
	}
	if err := doc2.Apply(b2); err != nil {
		t.Fatalf("doc2 apply b2: %v", err)
	}

	if doc1.Content != doc2.Content {
		t.Fatalf("content diverged: %q != %q", doc1.Content, doc2.Content)
	}
	if !reflect.DeepEqual(doc1.Participants, doc2.Participants) {
		t.Fatalf("participants diverged: %#v != %#v", doc1.Participants, doc2.Participants)
	}
}

func baseDoc(content string) *document.Document {
	d := document.New(content)
	d.Participants[1] = document.Participant{}
	d.Participants[2] = document.Participant{}
	return d
}

func TestConcurrentDeleteAndInsert(t *testing.T) {
	concurrentEditScenario(t, baseDoc("ab"),
		document.Delete{Start: 0, End: 1},
		document.Insert{Pos: 1, Content: "c"},
	)
}

func TestConcurrentDeleteAndInsert2(t *testing.T) {
	concurrentEditScenario(t, baseDoc("a"),
		document.Delete{Start: 0, End: 1},
		document.Insert{Pos: 0, Content: "b"},
	)
}

func TestConcurrentDeleteAndInsert3(t *testing.T) {
	concurrentEditScenario(t, baseDoc("ab"),
		document.Delete{Start: 0, End: 2},
		document.Insert{Pos: 1, Content: "c"},
	)
}

// TestConvergenceRandomized stands in for the original's proptest suite:
// no quickcheck-style generative testing library appears anywhere in the
// retrieved example corpus, so this exercises the same property
// (convergence under both application orderings) with a seeded
// math/rand generator instead.
func TestConvergenceRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 300; i++ {
		length := 1 + rng.Intn(20)
		content := randomContent(rng, length)
		op1 := randomOp(rng, length)
		op2 := randomOp(rng, length)
		concurrentEditScenario(t, baseDoc(content), op1, op2)
	}
}

func randomContent(rng *rand.Rand, n int) string {
	alphabet := []rune("abcdefgh")
	out := make([]rune, n)
	for i := range out {
		out[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(out)
}

func randomOp(rng *rand.Rand, length int) document.Operation {
	if rng.Intn(2) == 0 {
		return document.Insert{Pos: rng.Intn(length + 1), Content: randomContent(rng, 1+rng.Intn(3))}
	}
	a := rng.Intn(length + 1)
	b := a
	for b == a {
		b = rng.Intn(length + 1)
	}
	if a > b {
		a, b = b, a
	}
	return document.Delete{Start: a, End: b}
}
