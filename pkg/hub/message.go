// Package hub fans preview frames and status updates out to websocket
// clients. A slow client never stalls the frame loop: its messages are
// dropped and, if it stays behind, it is disconnected.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded status message
	JSONMessage MessageType = iota
	// FrameMessage is an encoded preview frame (JPEG)
	FrameMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewFrameMessage wraps an encoded frame.
func NewFrameMessage(data []byte) Message {
	return Message{Type: FrameMessage, Data: data}
}
