// Package session implements the owned-conversation entities (spec §3):
// Session, Message, UserPreferences, SessionContext, and a Store-agnostic
// layer of ownership enforcement, lazy creation, idle decay, and the
// first-7-words title heuristic.
package session

import (
	"strings"
	"time"
)

// MessageRole is one of the closed set of message senders.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one append-only turn in a session, optionally carrying the
// execution trace that produced it.
type Message struct {
	ID        int64
	SessionID string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
	Trace     map[string]any
}

// ResponseMode mirrors the Mode Classifier's state set, stored alongside
// the session it was last decided for.
type ResponseMode string

// Session is a user-owned conversation (spec §3).
type Session struct {
	ID             string
	OwnerID        string
	ConversationID string
	Title          string
	ResponseMode   ResponseMode
	LastActiveAt   time.Time
	CreatedAt      time.Time
	Decayed        bool
}

// Touch advances LastActiveAt; callers should persist the mutated
// session via the Store afterward.
func (s *Session) Touch(now time.Time) {
	s.LastActiveAt = now
	s.Decayed = false
}

// IsIdle reports whether the session has crossed the configured
// idle-decay window (spec §3, default 12h) as of now.
func (s *Session) IsIdle(now time.Time, idleDecayAfter time.Duration) bool {
	return now.Sub(s.LastActiveAt) >= idleDecayAfter
}

// TitleFromFirstMessage derives a session title from the first 7 words of
// the first user turn. Subsequent turns never change an already-set
// title.
func TitleFromFirstMessage(content string) string {
	fields := strings.Fields(content)
	if len(fields) > 7 {
		fields = fields[:7]
	}
	return strings.Join(fields, " ")
}

// PreferenceField is one of the closed set of preference attributes.
type PreferenceField string

const (
	FieldSkillLevel PreferenceField = "skill_level"
	FieldEquipment  PreferenceField = "equipment"
	FieldDietary    PreferenceField = "dietary"
)

// PreferenceValue carries one preference's value with its confidence and
// last-confirmed timestamp (spec §3 invariant: confidence decays after an
// idle-days threshold).
type PreferenceValue struct {
	Value           string
	Confidence      float64
	LastConfirmedAt time.Time
}

// UserPreferences is the full user-scoped preference set.
type UserPreferences struct {
	UserID      string
	SkillLevel  PreferenceValue
	Equipment   []PreferenceValue
	Dietary     []PreferenceValue
}

// SessionContext is the ephemeral, session-scoped cooking context:
// replaced wholesale on update, never merged with a prior snapshot.
type SessionContext struct {
	SessionID      string
	CurrentDish    string
	KeyIngredients []string
	Technique      string
	UpdatedAt      time.Time
}
