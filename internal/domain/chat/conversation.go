// Package chat is the request-orchestration service: it routes an
// utterance to a tier, consults the response cache, runs the bounded
// tool-call loop and returns a usable result object in every case.
package chat

import (
	"sync"
	"time"

	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/pkg/uuid"
)

// Roles for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a conversation. Immutable once appended.
type Message struct {
	ID         string
	Role       string
	Content    string
	ToolCalls  []llm.ToolCall
	ToolCallID string
	CreatedAt  time.Time
}

// Conversation is an ordered message history owned by the orchestration
// layer. Best-effort state: it may be garbage-collected after the
// inactivity window and rebuilt from scratch.
type Conversation struct {
	ID         string
	UserID     string
	Messages   []Message
	TiersUsed  []string
	CreatedAt  time.Time
	LastActive time.Time
}

// Store holds conversations in memory with TTL-based reclamation.
type Store struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewStore builds a Store that reclaims conversations idle longer than ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		convs: make(map[string]*Conversation),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
}

// StartJanitor launches the background sweep loop. Safe to call once;
// Close stops it.
func (s *Store) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(s.now())
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the janitor.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Create starts a new conversation for userID.
func (s *Store) Create(userID string) *Conversation {
	now := s.now()
	conv := &Conversation{
		ID:         uuid.NewV7().String(),
		UserID:     userID,
		CreatedAt:  now,
		LastActive: now,
	}
	s.mu.Lock()
	s.convs[conv.ID] = conv
	s.mu.Unlock()
	return conv
}

// Get returns a snapshot of the conversation, or false if unknown or
// owned by a different user.
func (s *Store) Get(id, userID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok || conv.UserID != userID {
		return Conversation{}, false
	}
	return snapshot(conv), true
}

// Append adds a message to the conversation and bumps its activity time.
// Returns false if the conversation does not exist (e.g. swept).
func (s *Store) Append(id string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return false
	}
	if msg.ID == "" {
		msg.ID = uuid.NewV7().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastActive = s.now()
	return true
}

// RecordTier notes that a tier served part of this conversation.
func (s *Store) RecordTier(id, tier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return
	}
	for _, t := range conv.TiersUsed {
		if t == tier {
			return
		}
	}
	conv.TiersUsed = append(conv.TiersUsed, tier)
}

// Sweep drops conversations idle past the TTL. Returns the number removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, conv := range s.convs {
		if now.Sub(conv.LastActive) > s.ttl {
			delete(s.convs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

func snapshot(conv *Conversation) Conversation {
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	out.TiersUsed = make([]string, len(conv.TiersUsed))
	copy(out.TiersUsed, conv.TiersUsed)
	return out
}
