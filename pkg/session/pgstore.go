package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// PGStore persists sessions, messages, preferences, and context to
// Postgres using the conversation-persistence schema (spec §6): any
// backing store exposing the same key-value-like operations is
// compatible, but this is the reference implementation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects a pool against connString and verifies reachability.
func NewPGStore(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "connecting to session store", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Upstream, "pinging session store", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, owner_id, conversation_id, title, response_mode, last_active_at, created_at
		FROM sessions WHERE session_id = $1`, sessionID)

	var sess Session
	var conversationID, title, mode *string
	if err := row.Scan(&sess.ID, &sess.OwnerID, &conversationID, &title, &mode, &sess.LastActiveAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound(sessionID)
		}
		return nil, apperr.Wrap(apperr.Upstream, "loading session", err)
	}
	if conversationID != nil {
		sess.ConversationID = *conversationID
	}
	if title != nil {
		sess.Title = *title
	}
	if mode != nil {
		sess.ResponseMode = ResponseMode(*mode)
	}
	return &sess, nil
}

func (s *PGStore) UpsertSession(ctx context.Context, sess *Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, owner_id, conversation_id, title, response_mode, last_active_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			conversation_id = EXCLUDED.conversation_id,
			title = EXCLUDED.title,
			response_mode = EXCLUDED.response_mode,
			last_active_at = EXCLUDED.last_active_at`,
		sess.ID, sess.OwnerID, sess.ConversationID, sess.Title, string(sess.ResponseMode), sess.LastActiveAt, sess.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "saving session", err)
	}
	return nil
}

func (s *PGStore) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, owner_id, conversation_id, title, response_mode, last_active_at, created_at
		FROM sessions WHERE owner_id = $1 ORDER BY last_active_at DESC`, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "listing sessions", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		var conversationID, title, mode *string
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &conversationID, &title, &mode, &sess.LastActiveAt, &sess.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "scanning session row", err)
		}
		if conversationID != nil {
			sess.ConversationID = *conversationID
		}
		if title != nil {
			sess.Title = *title
		}
		if mode != nil {
			sess.ResponseMode = ResponseMode(*mode)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteSession(ctx context.Context, sessionID, ownerID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1 AND owner_id = $2`, sessionID, ownerID)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "deleting session", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSession(ctx, sessionID); err == nil {
			return apperr.New(apperr.PermissionDenied, "session "+sessionID+" is owned by another user")
		}
		return errNotFound(sessionID)
	}
	return nil
}

// ClearHistory satisfies Resolve's optional historyClearer interface.
func (s *PGStore) ClearHistory(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "clearing decayed session history", err)
	}
	return nil
}

func (s *PGStore) AppendMessage(ctx context.Context, m Message) error {
	var traceJSON []byte
	if m.Trace != nil {
		var err error
		traceJSON, err = json.Marshal(m.Trace)
		if err != nil {
			return apperr.Wrap(apperr.Integrity, "marshaling message trace", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (session_id, conversation_id, role, content, created_at, trace)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.SessionID, m.SessionID, string(m.Role), m.Content, m.CreatedAt, traceJSON)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "appending message", err)
	}
	return nil
}

func (s *PGStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, created_at, trace
		FROM messages WHERE session_id = $1 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "listing messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		var traceJSON []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt, &traceJSON); err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "scanning message row", err)
		}
		m.Role = MessageRole(role)
		if len(traceJSON) > 0 {
			if err := json.Unmarshal(traceJSON, &m.Trace); err != nil {
				return nil, apperr.Wrap(apperr.Integrity, "unmarshaling message trace", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) GetPreferences(ctx context.Context, userID string) (*UserPreferences, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT skill_level, equipment, dietary_constraints, updated_at
		FROM user_preferences WHERE user_id = $1`, userID)

	var skillJSON, equipmentJSON, dietaryJSON []byte
	var updatedAt time.Time
	if err := row.Scan(&skillJSON, &equipmentJSON, &dietaryJSON, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &UserPreferences{UserID: userID}, nil
		}
		return nil, apperr.Wrap(apperr.Upstream, "loading preferences", err)
	}

	prefs := &UserPreferences{UserID: userID}
	if len(skillJSON) > 0 {
		if err := json.Unmarshal(skillJSON, &prefs.SkillLevel); err != nil {
			return nil, apperr.Wrap(apperr.Integrity, "unmarshaling skill level", err)
		}
	}
	if len(equipmentJSON) > 0 {
		if err := json.Unmarshal(equipmentJSON, &prefs.Equipment); err != nil {
			return nil, apperr.Wrap(apperr.Integrity, "unmarshaling equipment", err)
		}
	}
	if len(dietaryJSON) > 0 {
		if err := json.Unmarshal(dietaryJSON, &prefs.Dietary); err != nil {
			return nil, apperr.Wrap(apperr.Integrity, "unmarshaling dietary constraints", err)
		}
	}
	return prefs, nil
}

func (s *PGStore) UpsertPreferences(ctx context.Context, p *UserPreferences) error {
	skillJSON, err := json.Marshal(p.SkillLevel)
	if err != nil {
		return apperr.Wrap(apperr.Integrity, "marshaling skill level", err)
	}
	equipmentJSON, err := json.Marshal(p.Equipment)
	if err != nil {
		return apperr.Wrap(apperr.Integrity, "marshaling equipment", err)
	}
	dietaryJSON, err := json.Marshal(p.Dietary)
	if err != nil {
		return apperr.Wrap(apperr.Integrity, "marshaling dietary constraints", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, skill_level, equipment, dietary_constraints, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			skill_level = EXCLUDED.skill_level,
			equipment = EXCLUDED.equipment,
			dietary_constraints = EXCLUDED.dietary_constraints,
			updated_at = now()`,
		p.UserID, skillJSON, equipmentJSON, dietaryJSON)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "saving preferences", err)
	}
	return nil
}

func (s *PGStore) GetContext(ctx context.Context, sessionID string) (*SessionContext, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT current_dish, key_ingredients, technique, updated_at
		FROM session_context WHERE session_id = $1`, sessionID)

	var c SessionContext
	c.SessionID = sessionID
	var ingredientsJSON []byte
	if err := row.Scan(&c.CurrentDish, &ingredientsJSON, &c.Technique, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound(sessionID)
		}
		return nil, apperr.Wrap(apperr.Upstream, "loading session context", err)
	}
	if len(ingredientsJSON) > 0 {
		if err := json.Unmarshal(ingredientsJSON, &c.KeyIngredients); err != nil {
			return nil, apperr.Wrap(apperr.Integrity, "unmarshaling key ingredients", err)
		}
	}
	return &c, nil
}

// ReplaceContext overwrites the session's context wholesale -- never
// merged with a prior snapshot, per the entity's spec definition.
func (s *PGStore) ReplaceContext(ctx context.Context, c SessionContext) error {
	ingredientsJSON, err := json.Marshal(c.KeyIngredients)
	if err != nil {
		return apperr.Wrap(apperr.Integrity, "marshaling key ingredients", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_context (session_id, current_dish, key_ingredients, technique, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			current_dish = EXCLUDED.current_dish,
			key_ingredients = EXCLUDED.key_ingredients,
			technique = EXCLUDED.technique,
			updated_at = EXCLUDED.updated_at`,
		c.SessionID, c.CurrentDish, ingredientsJSON, c.Technique, c.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "replacing session context", err)
	}
	return nil
}
