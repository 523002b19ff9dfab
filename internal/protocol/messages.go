// Package protocol defines the WebSocket message protocol between client
// and server: the tagged-union envelopes carried over the wire, and the
// wire encoding of a document.Operation.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/shiv248/kolabpad/pkg/document"
)

// OperationMsg is the wire encoding of a document.Operation. Only one
// field should be set per message (tagged union pattern), matching the
// encoding the client's Insert/Delete enum expects.
type OperationMsg struct {
	Insert *InsertMsg `json:"Insert,omitempty"`
	Delete *DeleteMsg `json:"Delete,omitempty"`
}

// InsertMsg is the wire encoding of document.Insert.
type InsertMsg struct {
	Pos     int    `json:"pos"`
	Content string `json:"content"`
}

// DeleteMsg is the wire encoding of document.Delete.
type DeleteMsg struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// EncodeOperation converts a document.Operation into its wire form.
func EncodeOperation(op document.Operation) (OperationMsg, error) {
	switch o := op.(type) {
	case document.Insert:
		return OperationMsg{Insert: &InsertMsg{Pos: o.Pos, Content: o.Content}}, nil
	case document.Delete:
		return OperationMsg{Delete: &DeleteMsg{Start: o.Start, End: o.End}}, nil
	default:
		return OperationMsg{}, fmt.Errorf("protocol: unknown operation type %T", op)
	}
}

// DecodeOperation converts a wire operation back into a document.Operation.
func DecodeOperation(m OperationMsg) (document.Operation, error) {
	switch {
	case m.Insert != nil:
		return document.Insert{Pos: m.Insert.Pos, Content: m.Insert.Content}, nil
	case m.Delete != nil:
		return document.Delete{Start: m.Delete.Start, End: m.Delete.End}, nil
	default:
		return nil, fmt.Errorf("protocol: empty operation message")
	}
}

// EncodeOperations converts a slice of Operations to their wire form.
func EncodeOperations(ops []document.Operation) ([]OperationMsg, error) {
	out := make([]OperationMsg, len(ops))
	for i, op := range ops {
		m, err := EncodeOperation(op)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// DecodeOperations converts wire operations back to Operations.
func DecodeOperations(ms []OperationMsg) ([]document.Operation, error) {
	out := make([]document.Operation, len(ms))
	for i, m := range ms {
		op, err := DecodeOperation(m)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

// ServerMsg is a message sent from the server to a client. Only one
// field should be set per message (tagged union pattern).
type ServerMsg struct {
	Connected *ConnectedMsg `json:"Connected,omitempty"`
	Join      *JoinMsg      `json:"Join,omitempty"`
	Leave     *LeaveMsg     `json:"Leave,omitempty"`
	Edit      *EditMsg      `json:"Edit,omitempty"`
}

// ConnectedMsg is sent once, as the first message to a newly connected
// client, carrying the participant id it was assigned.
type ConnectedMsg struct {
	ID uint64 `json:"id"`
}

// JoinMsg announces a new participant joining the document.
type JoinMsg struct {
	ClientSeq uint64 `json:"client_seq"`
	Seq       uint64 `json:"seq"`
	ID        uint64 `json:"id"`
}

// LeaveMsg announces a participant leaving the document.
type LeaveMsg struct {
	ClientSeq uint64 `json:"client_seq"`
	Seq       uint64 `json:"seq"`
	ID        uint64 `json:"id"`
}

// EditMsg announces a committed edit to the document.
type EditMsg struct {
	ClientSeq  uint64         `json:"client_seq"`
	Seq        uint64         `json:"seq"`
	Author     uint64         `json:"author"`
	Operations []OperationMsg `json:"operations"`
}

// NewConnectedMsg creates a Connected server message.
func NewConnectedMsg(id uint64) *ServerMsg {
	return &ServerMsg{Connected: &ConnectedMsg{ID: id}}
}

// NewJoinMsg creates a Join server message.
func NewJoinMsg(clientSeq, seq, id uint64) *ServerMsg {
	return &ServerMsg{Join: &JoinMsg{ClientSeq: clientSeq, Seq: seq, ID: id}}
}

// NewLeaveMsg creates a Leave server message.
func NewLeaveMsg(clientSeq, seq, id uint64) *ServerMsg {
	return &ServerMsg{Leave: &LeaveMsg{ClientSeq: clientSeq, Seq: seq, ID: id}}
}

// NewEditMsg creates an Edit server message.
func NewEditMsg(clientSeq, seq, author uint64, ops []document.Operation) (*ServerMsg, error) {
	wireOps, err := EncodeOperations(ops)
	if err != nil {
		return nil, err
	}
	return &ServerMsg{Edit: &EditMsg{ClientSeq: clientSeq, Seq: seq, Author: author, Operations: wireOps}}, nil
}

// MarshalJSON implements custom JSON marshaling for ServerMsg so that
// only the set field appears in the JSON output.
func (m *ServerMsg) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{})

	switch {
	case m.Connected != nil:
		result["Connected"] = m.Connected
	case m.Join != nil:
		result["Join"] = m.Join
	case m.Leave != nil:
		result["Leave"] = m.Leave
	case m.Edit != nil:
		result["Edit"] = m.Edit
	}

	return json.Marshal(result)
}

// ClientMsg is a message sent from a client to the server. Only one
// field should be set per message (tagged union pattern).
type ClientMsg struct {
	ClientEdit *ClientEditMsg `json:"ClientEdit,omitempty"`
}

// ClientEditMsg is a change the client made to the document's content.
type ClientEditMsg struct {
	ParentSeq  uint64         `json:"parent_seq"`
	ClientSeq  uint64         `json:"client_seq"`
	Operations []OperationMsg `json:"operations"`
}

// UnmarshalJSON implements custom JSON unmarshaling for ClientMsg.
func (m *ClientMsg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if editData, ok := raw["ClientEdit"]; ok {
		var edit ClientEditMsg
		if err := json.Unmarshal(editData, &edit); err != nil {
			return err
		}
		m.ClientEdit = &edit
	}

	return nil
}
