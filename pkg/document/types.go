// Package document implements the collaborative document model: its
// content, its participants, and the events that may be applied to it.
package document

// ParticipantId identifies a connection which is (or was) editing a
// Document. It must be unique among the participants concurrently
// present in a single Document.
type ParticipantId = uint64

// Participant holds the session state a Document tracks for each editor,
// namely the Unicode scalar value index of their cursor.
type Participant struct {
	CursorPos int
}

// Document is some string content at a point in time, together with the
// cursor position of every participant currently editing it.
type Document struct {
	Content      string
	Participants map[ParticipantId]Participant
}

// New creates a Document seeded with the given content and no participants.
func New(content string) *Document {
	return &Document{
		Content:      content,
		Participants: make(map[ParticipantId]Participant),
	}
}

// Clone returns a deep copy, so that independent replicas of a Document
// can be advanced through different event orderings and compared.
func (d *Document) Clone() *Document {
	participants := make(map[ParticipantId]Participant, len(d.Participants))
	for id, p := range d.Participants {
		participants[id] = p
	}
	return &Document{Content: d.Content, Participants: participants}
}

// Operation describes an incremental change to a Document's content.
// Through accumulated application of Operations, a Document's content at
// any point in its history can be derived.
type Operation interface {
	isOperation()
}

// Insert inserts Content at Pos, a Unicode scalar value offset from the
// start of the document (not a byte offset, and not a grapheme count).
type Insert struct {
	Pos     int
	Content string
}

func (Insert) isOperation() {}

// Delete removes the scalar values in [Start, End) from the document.
type Delete struct {
	Start int
	End   int
}

func (Delete) isOperation() {}

// Event describes something that happened in a DocumentSession: a
// participant joining or leaving, or an edit to the document's content.
type Event interface {
	isEvent()
}

// Join records that a new participant has joined the session.
type Join struct {
	ID ParticipantId
}

func (Join) isEvent() {}

// Leave records that a participant has left the session.
type Leave struct {
	ID ParticipantId
}

func (Leave) isEvent() {}

// Edit bundles one or more Operations made by a single author into a
// single Document change: every Operation is applied together, or none
// are.
type Edit struct {
	Author     ParticipantId
	Operations []Operation
}

func (Edit) isEvent() {}

// Clone returns a copy of the Edit with its own Operations slice, so a
// transform of one replica never mutates another's view of the same edit.
func (e Edit) Clone() Edit {
	ops := make([]Operation, len(e.Operations))
	copy(ops, e.Operations)
	return Edit{Author: e.Author, Operations: ops}
}

// ErrorKind enumerates the ways an Event can fail to apply to a Document.
type ErrorKind int

const (
	// OutsideDocument means an Operation's position or range falls
	// outside the current document.
	OutsideDocument ErrorKind = iota
	// InvalidOperation means the event is structurally invalid and
	// could not be applied meaningfully to any document.
	InvalidOperation
)

// EditError reports why an Event could not be applied to a Document.
type EditError struct {
	Kind ErrorKind
}

func (e *EditError) Error() string {
	switch e.Kind {
	case OutsideDocument:
		return "operation falls outside the document"
	case InvalidOperation:
		return "operation is invalid"
	default:
		return "unknown edit error"
	}
}
