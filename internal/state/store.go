// Package state owns the three shared collections: the chat log, the
// soundboard log, and the canvas snapshot.
package state

import (
	"sync"

	"github.com/prismspecs/pi-captive/internal/domain"
)

const (
	maxMessages  = 100
	maxSounds    = 30
	messagesTail = 50
	soundsTail   = 20
)

// Store holds the shared party state. One mutex guards all three collections
// so every operation is atomic with respect to the others; cross-collection
// ordering comes from the hub serializing its mutations.
type Store struct {
	mu           sync.Mutex
	messages     []domain.Message
	sounds       []domain.SoundClip
	canvas       *string
	nextID       int64
	maxClipBytes int64
}

// NewStore creates an empty store. maxClipBytes caps a single sound clip
// payload; oversized clips are rejected without touching the log.
func NewStore(maxClipBytes int64) *Store {
	return &Store{
		messages:     make([]domain.Message, 0, maxMessages),
		sounds:       make([]domain.SoundClip, 0, maxSounds),
		maxClipBytes: maxClipBytes,
	}
}

// AppendMessage inserts a chat message at the tail, assigning the next
// monotonic id. The oldest entries are dropped once the log exceeds its cap.
func (s *Store) AppendMessage(author, text string, timestamp int64) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg := domain.Message{
		ID:        s.nextID,
		Author:    author,
		Text:      text,
		Timestamp: timestamp,
	}
	s.messages = append(s.messages, msg)
	if len(s.messages) > maxMessages {
		s.messages = s.messages[len(s.messages)-maxMessages:]
	}
	return msg
}

// AppendSound inserts a sound clip at the tail, trimming to the newest
// entries. Returns domain.ErrClipTooLarge without mutating the log when the
// payload exceeds the per-clip cap.
func (s *Store) AppendSound(author, data string, timestamp int64) (domain.SoundClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int64(len(data)) > s.maxClipBytes {
		return domain.SoundClip{}, domain.ErrClipTooLarge
	}

	s.nextID++
	clip := domain.SoundClip{
		ID:        s.nextID,
		Author:    author,
		Data:      data,
		Timestamp: timestamp,
	}
	s.sounds = append(s.sounds, clip)
	if len(s.sounds) > maxSounds {
		s.sounds = s.sounds[len(s.sounds)-maxSounds:]
	}
	return clip, nil
}

// SetCanvas replaces the canvas unconditionally (last write wins).
func (s *Store) SetCanvas(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas = &data
}

// ClearCanvas resets the canvas to its explicit empty value.
func (s *Store) ClearCanvas() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas = nil
}

// Snapshot returns a point-in-time copy of the served tails: the last 50
// messages, the last 20 sound clips, and the current canvas.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages
	if len(msgs) > messagesTail {
		msgs = msgs[len(msgs)-messagesTail:]
	}
	sounds := s.sounds
	if len(sounds) > soundsTail {
		sounds = sounds[len(sounds)-soundsTail:]
	}

	snap := domain.Snapshot{
		Messages: make([]domain.Message, len(msgs)),
		Sounds:   make([]domain.SoundClip, len(sounds)),
	}
	copy(snap.Messages, msgs)
	copy(snap.Sounds, sounds)

	if s.canvas != nil {
		canvas := *s.canvas
		snap.Canvas = &canvas
	}
	return snap
}

// Counts reports the full log lengths and canvas presence for health checks.
func (s *Store) Counts() (messages, sounds int, hasCanvas bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), len(s.sounds), s.canvas != nil
}
