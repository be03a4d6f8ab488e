package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchencore/reasoner/pkg/session"
)

// conversationResponse is the canonical state returned by GET /api/conversation.
type conversationResponse struct {
	SessionID   string            `json:"session_id"`
	Messages    []messageResponse `json:"messages"`
	CurrentMode string            `json:"current_mode"`
	MemoryScope string            `json:"memory_scope"`
}

type messageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// getConversationHandler handles GET /api/conversation?session_id=….
// An empty session id returns a new-session marker rather than an error
// (spec §4.12), since the caller hasn't created a session yet.
func (s *Server) getConversationHandler(c *gin.Context) {
	// 1. Empty session id is a new-session marker, not a lookup.
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusOK, conversationResponse{MemoryScope: "new"})
		return
	}

	// 2. Require and enforce ownership.
	requester := requesterID(c)
	if requester == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + ownerHeader})
		return
	}

	sess, err := s.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	if sess.OwnerID != requester {
		c.JSON(http.StatusForbidden, gin.H{"error": "session owned by another user"})
		return
	}

	// 3. Load message history.
	msgs, err := s.sessions.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	c.JSON(http.StatusOK, conversationResponse{
		SessionID:   sess.ID,
		Messages:    toMessageResponses(msgs),
		CurrentMode: string(sess.ResponseMode),
		MemoryScope: "existing",
	})
}

// conversationSummary is one entry in the GET /api/conversations listing.
type conversationSummary struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	LastActiveAt string `json:"last_active_at"`
}

// listConversationsHandler handles GET /api/conversations, ordering the
// owner's sessions by last-active descending (spec §4.12).
func (s *Server) listConversationsHandler(c *gin.Context) {
	requester := requesterID(c)
	if requester == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + ownerHeader})
		return
	}

	sessions, err := s.sessions.ListSessionsByOwner(c.Request.Context(), requester)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
	})

	out := make([]conversationSummary, len(sessions))
	for i, sess := range sessions {
		out[i] = conversationSummary{SessionID: sess.ID, Title: sess.Title, LastActiveAt: sess.LastActiveAt.Format("2006-01-02T15:04:05Z07:00")}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// createConversationHandler handles POST /api/conversation: creates a
// fresh session id and claims ownership for the requesting user (spec
// §4.12).
func (s *Server) createConversationHandler(c *gin.Context) {
	requester := requesterID(c)
	if requester == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + ownerHeader})
		return
	}

	now := time.Now()
	sess := &session.Session{
		ID:           uuid.NewString(),
		OwnerID:      requester,
		LastActiveAt: now,
		CreatedAt:    now,
	}
	if err := s.sessions.UpsertSession(c.Request.Context(), sess); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func toMessageResponses(msgs []session.Message) []messageResponse {
	out := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = messageResponse{Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")}
	}
	return out
}
