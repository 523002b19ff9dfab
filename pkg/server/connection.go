package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/shiv248/kolabpad/internal/protocol"
	"github.com/shiv248/kolabpad/pkg/document"
	"github.com/shiv248/kolabpad/pkg/logger"
	"github.com/shiv248/kolabpad/pkg/session"
	"github.com/shiv248/kolabpad/pkg/store"
)

// Connection represents a single client WebSocket connection, joined to
// one document's Session as a ParticipantStream.
type Connection struct {
	stream *session.ParticipantStream
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	sendMu sync.Mutex

	readTimeout     time.Duration
	writeTimeout    time.Duration
	maxDocumentSize int
}

// NewConnection creates a new client connection handler already joined
// to path's Session. maxDocumentSize bounds the content length of any
// single Insert operation a client may submit; 0 disables the check.
func NewConnection(stream *session.ParticipantStream, conn *websocket.Conn, readTimeout, writeTimeout time.Duration, maxDocumentSize int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		stream:          stream,
		conn:            conn,
		ctx:             ctx,
		cancel:          cancel,
		readTimeout:     readTimeout,
		writeTimeout:    writeTimeout,
		maxDocumentSize: maxDocumentSize,
	}
}

// Handle manages the WebSocket connection lifecycle: sending the initial
// Connected message, relaying committed events, and applying ClientEdit
// submissions until ctx is done or the client disconnects.
func (c *Connection) Handle(ctx context.Context) error {
	defer c.cleanup()

	logger.Info("connection! id = %d", c.stream.ID())

	if err := c.send(protocol.NewConnectedMsg(uint64(c.stream.ID()))); err != nil {
		return fmt.Errorf("send connected: %w", err)
	}

	relayDone := make(chan struct{})
	go c.relayUpdates(relayDone)
	defer func() {
		c.cancel()
		<-relayDone
	}()

	for {
		readCtx, readCancel := context.WithTimeout(ctx, c.readTimeout)
		var msg protocol.ClientMsg
		err := wsjson.Read(readCtx, c.conn, &msg)
		readCancel()
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		if err := c.handleMessage(&msg); err != nil {
			logger.Error("error handling message from participant %d: %v", c.stream.ID(), err)
			return err
		}
	}
}

// handleMessage processes a message from the client.
func (c *Connection) handleMessage(msg *protocol.ClientMsg) error {
	if msg.ClientEdit == nil {
		return nil
	}

	ops, err := protocol.DecodeOperations(msg.ClientEdit.Operations)
	if err != nil {
		return fmt.Errorf("decode operations: %w", err)
	}

	if c.maxDocumentSize > 0 {
		for _, op := range ops {
			if ins, ok := op.(document.Insert); ok && len(ins.Content) > c.maxDocumentSize {
				return fmt.Errorf("insert of %d bytes exceeds max document size %d", len(ins.Content), c.maxDocumentSize)
			}
		}
	}

	_, _, err = c.stream.SubmitEdit(
		store.SequenceId(msg.ClientEdit.ParentSeq),
		msg.ClientEdit.ClientSeq,
		ops,
	)
	if err != nil {
		return fmt.Errorf("submit edit: %w", err)
	}
	return nil
}

// relayUpdates forwards committed events not authored by this
// connection's participant for as long as the connection is alive.
func (c *Connection) relayUpdates(done chan struct{}) {
	defer close(done)

	for {
		se, err := c.stream.Next(c.ctx)
		if err != nil {
			return
		}

		msg, err := eventToServerMsg(se.Seq, c.stream.LastAckedClientSeq(), se.Event)
		if err != nil {
			logger.Error("encode event for participant %d: %v", c.stream.ID(), err)
			continue
		}
		if err := c.send(msg); err != nil {
			logger.Error("error broadcasting to participant %d: %v", c.stream.ID(), err)
			c.cancel()
			return
		}
	}
}

func eventToServerMsg(seq store.SequenceId, clientSeq uint64, event document.Event) (*protocol.ServerMsg, error) {
	switch e := event.(type) {
	case document.Join:
		return protocol.NewJoinMsg(clientSeq, uint64(seq), uint64(e.ID)), nil
	case document.Leave:
		return protocol.NewLeaveMsg(clientSeq, uint64(seq), uint64(e.ID)), nil
	case document.Edit:
		return protocol.NewEditMsg(clientSeq, uint64(seq), uint64(e.Author), e.Operations)
	default:
		return nil, fmt.Errorf("unrecognized event type %T", event)
	}
}

// send sends a message to the client (thread-safe).
func (c *Connection) send(msg *protocol.ServerMsg) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	writeCtx, writeCancel := context.WithTimeout(c.ctx, c.writeTimeout)
	defer writeCancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

// cleanup removes the participant from its Session.
func (c *Connection) cleanup() {
	logger.Info("disconnection, id = %d", c.stream.ID())
	if err := c.stream.Close(); err != nil {
		logger.Error("closing stream for participant %d: %v", c.stream.ID(), err)
	}
	c.cancel()
}
