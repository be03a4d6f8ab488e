package session

import (
	"context"
	"time"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// Store is the persistence contract session lifecycle logic runs
// against; memstore and pgstore both satisfy it so ownership/decay/title
// logic never duplicates per backend.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpsertSession(ctx context.Context, s *Session) error
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID, ownerID string) error

	AppendMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	GetPreferences(ctx context.Context, userID string) (*UserPreferences, error)
	UpsertPreferences(ctx context.Context, p *UserPreferences) error

	GetContext(ctx context.Context, sessionID string) (*SessionContext, error)
	ReplaceContext(ctx context.Context, c SessionContext) error
}

// errNotFound builds the NotFound error Store.GetSession returns when no
// session exists for the given id.
func errNotFound(sessionID string) error {
	return apperr.New(apperr.NotFound, "session not found: "+sessionID)
}

// Resolve enforces ownership and lazy creation (spec §3 ownership &
// lifecycle): an unknown session id is created and owned by requesterID;
// a known session owned by someone else is a permission error; a known,
// idle-decayed session has its history cleared but keeps its id.
func Resolve(ctx context.Context, store Store, sessionID, requesterID string, idleDecayAfter time.Duration, now time.Time) (*Session, error) {
	existing, err := store.GetSession(ctx, sessionID)
	if apperr.Is(err, apperr.NotFound) {
		s := &Session{
			ID:           sessionID,
			OwnerID:      requesterID,
			LastActiveAt: now,
			CreatedAt:    now,
		}
		if upsertErr := store.UpsertSession(ctx, s); upsertErr != nil {
			return nil, upsertErr
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.OwnerID != requesterID {
		return nil, apperr.New(apperr.PermissionDenied, "session "+sessionID+" is owned by another user")
	}

	if existing.IsIdle(now, idleDecayAfter) && !existing.Decayed {
		existing.Decayed = true
		if clearErr := clearHistory(ctx, store, sessionID); clearErr != nil {
			return nil, clearErr
		}
	}

	existing.Touch(now)
	if err := store.UpsertSession(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// clearHistory drops a decayed session's message history while leaving
// the session row itself (and its id) intact. memstore and pgstore both
// implement this via their own message tables, so Resolve calls through
// the Store interface rather than assuming storage shape.
func clearHistory(ctx context.Context, store Store, sessionID string) error {
	type historyClearer interface {
		ClearHistory(ctx context.Context, sessionID string) error
	}
	if hc, ok := store.(historyClearer); ok {
		return hc.ClearHistory(ctx, sessionID)
	}
	return nil
}

// RecordFirstTitle sets a session's title from the first user message if
// it has not already been set (spec §3: first-7-words heuristic, set
// once).
func RecordFirstTitle(ctx context.Context, store Store, s *Session, firstUserMessage string) error {
	if s.Title != "" {
		return nil
	}
	s.Title = TitleFromFirstMessage(firstUserMessage)
	return store.UpsertSession(ctx, s)
}
