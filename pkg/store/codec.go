package store

import (
	"encoding/json"
	"fmt"

	"github.com/shiv248/kolabpad/pkg/document"
)

// eventRow is the on-disk JSON encoding of a document.Event, one
// tagged field per concrete Event type. Mirrors the single-non-nil-field
// tagged union internal/protocol uses for wire messages, but this is an
// independent encoding: the storage schema and the wire protocol are
// allowed to evolve separately.
type eventRow struct {
	Join  *document.Join  `json:"Join,omitempty"`
	Leave *document.Leave `json:"Leave,omitempty"`
	Edit  *editRow        `json:"Edit,omitempty"`
}

type editRow struct {
	Author     document.ParticipantId `json:"author"`
	Operations []operationRow         `json:"operations"`
}

type operationRow struct {
	Insert *document.Insert `json:"Insert,omitempty"`
	Delete *document.Delete `json:"Delete,omitempty"`
}

func encodeEvent(event document.Event) (kind string, payload string, err error) {
	var row eventRow
	switch e := event.(type) {
	case document.Join:
		row.Join = &e
		kind = "Join"
	case document.Leave:
		row.Leave = &e
		kind = "Leave"
	case document.Edit:
		ops := make([]operationRow, len(e.Operations))
		for i, op := range e.Operations {
			ops[i] = encodeOperation(op)
		}
		row.Edit = &editRow{Author: e.Author, Operations: ops}
		kind = "Edit"
	default:
		return "", "", fmt.Errorf("store: unknown event type %T", event)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return "", "", err
	}
	return kind, string(data), nil
}

func encodeOperation(op document.Operation) operationRow {
	switch v := op.(type) {
	case document.Insert:
		return operationRow{Insert: &v}
	case document.Delete:
		return operationRow{Delete: &v}
	default:
		return operationRow{}
	}
}

func decodeEvent(kind, payload string) (document.Event, error) {
	var row eventRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, fmt.Errorf("store: decode event payload: %w", err)
	}

	switch kind {
	case "Join":
		if row.Join == nil {
			return nil, fmt.Errorf("store: Join row missing Join payload")
		}
		return *row.Join, nil
	case "Leave":
		if row.Leave == nil {
			return nil, fmt.Errorf("store: Leave row missing Leave payload")
		}
		return *row.Leave, nil
	case "Edit":
		if row.Edit == nil {
			return nil, fmt.Errorf("store: Edit row missing Edit payload")
		}
		ops := make([]document.Operation, len(row.Edit.Operations))
		for i, opRow := range row.Edit.Operations {
			op, err := decodeOperation(opRow)
			if err != nil {
				return nil, err
			}
			ops[i] = op
		}
		return document.Edit{Author: row.Edit.Author, Operations: ops}, nil
	default:
		return nil, fmt.Errorf("store: unknown event kind %q", kind)
	}
}

func decodeOperation(row operationRow) (document.Operation, error) {
	switch {
	case row.Insert != nil:
		return *row.Insert, nil
	case row.Delete != nil:
		return *row.Delete, nil
	default:
		return nil, fmt.Errorf("store: operation row has no variant set")
	}
}
