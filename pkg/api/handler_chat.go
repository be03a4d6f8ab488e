package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchencore/reasoner/pkg/orchestrate"
	"github.com/kitchencore/reasoner/pkg/policy"
	"github.com/kitchencore/reasoner/pkg/stream"
)

// chatPostBody is the JSON request body for POST /api/chat.
type chatPostBody struct {
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
	ExecutionMode string `json:"execution_mode"`
}

// chatStreamHandler handles GET /api/chat/stream, the EventSource entry
// point (spec §4.12). execution_mode selects the explicit policy
// profile; audience_mode, optimization_goal, and verbosity are accepted
// for forward compatibility with richer client steering but are not yet
// threaded into the pipeline.
func (s *Server) chatStreamHandler(c *gin.Context) {
	// 1. Require ownership header; lazy creation does not apply to GET.
	requester := requesterID(c)
	if requester == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + ownerHeader})
		return
	}

	sessionID := c.Query("session_id")
	message := c.Query("message")
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if _, err := s.sessions.GetSession(c.Request.Context(), sessionID); err != nil {
		writeError(c, s.log, err)
		return
	}

	req := orchestrate.Request{
		SessionID:    sessionID,
		UserID:       requester,
		Message:      message,
		ExplicitMode: policy.Clip(policy.Profile(c.Query("execution_mode"))),
	}
	s.runChatStream(c, req)
}

// chatPostHandler handles POST /api/chat: JSON body, SSE stream
// response, with lazy session creation on first use (spec §4.12).
func (s *Server) chatPostHandler(c *gin.Context) {
	// 1. Require ownership header.
	requester := requesterID(c)
	if requester == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + ownerHeader})
		return
	}

	// 2. Bind and validate the request body.
	var body chatPostBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	req := orchestrate.Request{
		SessionID:    sessionID,
		UserID:       requester,
		Message:      body.Message,
		ExplicitMode: policy.Clip(policy.Profile(body.ExecutionMode)),
	}
	s.runChatStream(c, req)
}

// runChatStream drives one pipeline run and streams its events to c in
// the SSE wire format (spec §6), registering the session under the
// cancel registry so an explicit stop or a detected disconnect tears
// down only this request.
func (s *Server) runChatStream(c *gin.Context, req orchestrate.Request) {
	setSSEHeaders(c.Writer.Header())

	ctx, release := s.cancels.Register(c.Request.Context(), req.SessionID)
	defer release()

	out := stream.New(256, s.heartbeatInterval())
	out.SetSessionID(req.SessionID)
	go s.pipeline.Run(ctx, req, out)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-out.Events():
			if err := writeSSE(w, ev); err != nil {
				return false
			}
			return ev.Kind != stream.KindDone
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) heartbeatInterval() time.Duration {
	hz := s.cfg.HeartbeatHz
	if hz <= 0 {
		hz = 1
	}
	return time.Duration(float64(time.Second) / hz)
}

func newSessionID() string { return uuid.NewString() }
