package domain

// Event type discriminators carried in the "type" field of every frame.
const (
	EventChatMessage  = "chat:message"
	EventNoiseAdd     = "noise:add"
	EventCanvasUpdate = "canvas:update"
	EventCanvasClear  = "canvas:clear"
	EventInit         = "init"
)

// Envelope is the outer shape of every client frame. Payload fields are
// decoded in a second pass once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

// ChatMessageEvent is the payload for chat:message frames in both directions.
// The client-supplied id is ignored on ingress; echoed frames carry the
// server-assigned one.
type ChatMessageEvent struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// NoiseAddEvent is the payload for noise:add frames in both directions.
type NoiseAddEvent struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// CanvasUpdateEvent is the client payload for canvas:update.
type CanvasUpdateEvent struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// CanvasClearEvent is the client payload for canvas:clear.
type CanvasClearEvent struct {
	Type string `json:"type"`
}

// InitEvent is the hydration frame sent once to each new connection.
type InitEvent struct {
	Type     string      `json:"type"`
	Messages []Message   `json:"messages"`
	Sounds   []SoundClip `json:"sounds"`
	Canvas   *string     `json:"canvasData"`
}
