package document

import "unicode/utf8"

// Apply applies an Event to the Document's content. Either every
// Operation the Event names is applied, or none are and an *EditError is
// returned — Apply first calls CanApply and performs no mutation if that
// fails.
func (d *Document) Apply(event Event) error {
	if err := d.CanApply(event); err != nil {
		return err
	}

	switch e := event.(type) {
	case Edit:
		for _, op := range e.Operations {
			d.performOperation(e.Author, op)
		}
	case Join:
		d.Participants[e.ID] = Participant{CursorPos: 0}
	case Leave:
		delete(d.Participants, e.ID)
	}
	return nil
}

// CanApply checks that every operation inside an Edit can be cleanly
// applied to the document without changing it, or that a Join/Leave is
// consistent with the current participant set. It never mutates the
// Document.
func (d *Document) CanApply(event Event) error {
	switch e := event.(type) {
	case Edit:
		if _, ok := d.Participants[e.Author]; !ok {
			return &EditError{Kind: InvalidOperation}
		}
		length := utf8.RuneCountInString(d.Content)

		for _, op := range e.Operations {
			if !isValid(op) {
				return &EditError{Kind: InvalidOperation}
			}
			switch v := op.(type) {
			case Insert:
				if v.Pos > length {
					return &EditError{Kind: OutsideDocument}
				}
				length += utf8.RuneCountInString(v.Content)
			case Delete:
				if v.Start > length || v.End > length {
					return &EditError{Kind: OutsideDocument}
				}
				length -= v.End - v.Start
			}
		}
		return nil
	case Join:
		if _, ok := d.Participants[e.ID]; ok {
			return &EditError{Kind: InvalidOperation}
		}
		return nil
	case Leave:
		if _, ok := d.Participants[e.ID]; !ok {
			return &EditError{Kind: InvalidOperation}
		}
		return nil
	default:
		return &EditError{Kind: InvalidOperation}
	}
}

// isValid reports whether an Operation could ever describe a meaningful
// change to some document. An Operation for which isValid returns true
// may still raise an OutsideDocument error when applied to a specific
// document whose length it does not fit.
//
// This is the stricter of the two policies the underlying algorithm
// supports: an empty Insert or a zero-width/inverted Delete can never
// change a document's content, so submitting one is rejected outright
// rather than accepted as a no-op. Operations already committed to the
// log may still contain zero-width deletes or empty inserts produced by
// Transform — those are preserved for cursor fidelity and never pass
// back through isValid.
func isValid(op Operation) bool {
	switch v := op.(type) {
	case Insert:
		return len(v.Content) > 0
	case Delete:
		return v.End > v.Start
	default:
		return false
	}
}

// performOperation mutates the Document's content and participant cursors
// for a single Operation. The caller must have already validated the
// operation with CanApply; this function panics if asked to apply an
// operation outside the document.
func (d *Document) performOperation(author ParticipantId, op Operation) {
	switch v := op.(type) {
	case Insert:
		bytePos, ok := runeByteOffset(d.Content, v.Pos)
		if !ok {
			panic("document: insert position outside document")
		}
		d.Content = d.Content[:bytePos] + v.Content + d.Content[bytePos:]

		charLen := utf8.RuneCountInString(v.Content)
		for id, p := range d.Participants {
			if id == author {
				p.CursorPos = v.Pos + charLen
			} else if p.CursorPos > v.Pos {
				p.CursorPos += charLen
			}
			d.Participants[id] = p
		}
	case Delete:
		startByte, ok1 := runeByteOffset(d.Content, v.Start)
		endByte, ok2 := runeByteOffset(d.Content, v.End)
		if !ok1 || !ok2 {
			panic("document: delete range outside document")
		}
		d.Content = d.Content[:startByte] + d.Content[endByte:]

		for id, p := range d.Participants {
			if id == author {
				p.CursorPos = v.Start
			} else if p.CursorPos > v.Start {
				p.CursorPos -= min(v.End, p.CursorPos) - v.Start
			}
			d.Participants[id] = p
		}
	}
}

// runeByteOffset converts a Unicode scalar value index into a byte offset
// into s. The index equal to the scalar value length of s is valid and
// yields len(s), matching an insert/delete at the very end of the
// document.
func runeByteOffset(s string, index int) (int, bool) {
	if index == 0 {
		return 0, true
	}
	count := 0
	for i := range s {
		if count == index {
			return i, true
		}
		count++
	}
	if count == index {
		return len(s), true
	}
	return 0, false
}
