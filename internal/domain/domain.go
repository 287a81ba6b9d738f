// Package domain defines the shared types exchanged between the state store,
// the hub, and the HTTP layer.
package domain

// Message is one entry of the shared chat log. IDs are assigned by the
// server, monotonically increasing in arrival order.
type Message struct {
	ID        int64  `json:"id"`
	Author    string `json:"name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SoundClip is one entry of the soundboard log. Data holds the encoded audio
// payload as sent by the client.
type SoundClip struct {
	ID        int64  `json:"id"`
	Author    string `json:"name"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Snapshot is a point-in-time view of the shared state, used both for
// new-client hydration and for the polling API. Canvas is nil when the
// canvas is empty.
type Snapshot struct {
	Messages []Message   `json:"messages"`
	Sounds   []SoundClip `json:"sounds"`
	Canvas   *string     `json:"canvasData"`
}

// StateStore is the fixed operation set over the three shared collections.
// Implementations must make each operation atomic with respect to the others.
type StateStore interface {
	AppendMessage(author, text string, timestamp int64) Message
	AppendSound(author, data string, timestamp int64) (SoundClip, error)
	SetCanvas(data string)
	ClearCanvas()
	Snapshot() Snapshot
	Counts() (messages, sounds int, hasCanvas bool)
}
