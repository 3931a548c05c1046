package chat

// Transport delivers one turn's output stream to the client. Implementations
// must tolerate being called after the peer is gone; a send error tells the
// orchestrator to stop forwarding, nothing more.
type Transport interface {
	// SendChunk forwards one token chunk.
	SendChunk(chunk string) error

	// SendHeartbeat emits a keep-alive that clients ignore as data.
	SendHeartbeat() error

	// SendDone emits the terminal success event. Called at most once.
	SendDone(ev DoneEvent) error

	// SendError emits the terminal failure event. Called at most once,
	// and never after SendDone.
	SendError(message string) error
}

// DoneEvent is the payload of the terminal success event. MessageID is empty
// when the stream produced only whitespace and nothing was persisted.
type DoneEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
}
