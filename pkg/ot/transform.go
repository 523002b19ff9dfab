// Package ot implements operational transformation over position-based
// document operations: given two edits made concurrently against the
// same base document, Transform rewrites one so it can be applied after
// the other while preserving both authors' intent.
package ot

import (
	"github.com/shiv248/kolabpad/pkg/document"
)

// hasPriority reports whether an edit authored by a takes precedence
// over one authored by b when their operations conflict at the same
// position. Higher author ids win ties; this only matters when two
// inserts land at the exact same position.
func hasPriority(a, b document.ParticipantId) bool {
	return a > b
}

// TransformEvent rewrites local in place to account for a concurrent
// event which has already been applied. Join and Leave events carry no
// position information and never need transforming; only the Edit/Edit
// case does any work.
func TransformEvent(local *document.Event, concurrent document.Event) {
	localEdit, ok := (*local).(document.Edit)
	if !ok {
		return
	}
	concurrentEdit, ok := concurrent.(document.Edit)
	if !ok {
		return
	}
	Transform(&localEdit, concurrentEdit)
	*local = localEdit
}

// Transform rewrites local.Operations in place so that, having already
// applied concurrent to a shared base document, applying local afterward
// produces the same result as applying local first and transforming
// concurrent by local the other way around (TP1 convergence).
//
// Operations within local are transformed one at a time against each
// operation in concurrent, in order. A Delete that straddles a
// concurrent Insert must be split into two Deletes so the newly inserted
// text is not clobbered; the earlier half is appended to local's
// operation list after the current pass over concurrent.operations
// finishes, which keeps it applied after the later half so cursors land
// in the right place.
//
// Some resulting operations (zero-width deletes, empty inserts) no
// longer change a document's content. They are intentionally preserved
// rather than dropped: removing them would desynchronize the cursor
// position they are responsible for updating, and convergence depends on
// every participant ending up with the same (possibly no-op) history.
func Transform(local *document.Edit, concurrent document.Edit) {
	var newOperations []document.Operation

	for _, op := range concurrent.Operations {
		for i, operation := range local.Operations {
			switch this := operation.(type) {
			case document.Insert:
				switch other := op.(type) {
				case document.Insert:
					if other.Pos < this.Pos ||
						(other.Pos == this.Pos && hasPriority(concurrent.Author, local.Author)) {
						this.Pos += runeCount(other.Content)
					}
					local.Operations[i] = this
				case document.Delete:
					if other.Start < this.Pos {
						end := minInt(this.Pos, other.End)
						this.Pos -= end - other.Start
					}
					local.Operations[i] = this
				}
			case document.Delete:
				switch other := op.(type) {
				case document.Insert:
					if other.Pos < this.Start {
						length := runeCount(other.Content)
						this.Start += length
						this.End += length
						local.Operations[i] = this
					} else if other.Pos < this.End && this.End-this.Start > 0 {
						// Split the delete into two parts so the new
						// insert isn't clobbered by the original range.
						// Only split when the delete is non-empty -
						// otherwise it would just produce a duplicate
						// no-op event.
						split := document.Delete{Start: this.Start, End: other.Pos}

						length := runeCount(other.Content)
						this.Start = other.Pos + length
						this.End += length
						local.Operations[i] = this

						newOperations = append(newOperations, split)
					}
				case document.Delete:
					var deletedBefore int
					if other.Start < this.Start {
						end := minInt(this.Start, other.End)
						deletedBefore = end - other.Start
					}
					var deletedInside int
					if other.Start < this.Start {
						if other.End > this.Start {
							end := minInt(this.End, other.End)
							deletedInside = end - this.Start
						}
					} else if other.Start < this.End {
						end := minInt(this.End, other.End)
						deletedInside = end - other.Start
					}
					this.Start -= deletedBefore
					this.End -= deletedBefore + deletedInside
					local.Operations[i] = this
				}
			}
		}
		local.Operations = append(local.Operations, newOperations...)
		newOperations = newOperations[:0]
	}
}

func runeCount(s string) int {
	return len([]rune(s))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
