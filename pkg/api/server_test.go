package api

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/kitchencore/reasoner/pkg/orchestrate"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/retrieval"
	"github.com/kitchencore/reasoner/pkg/session"
	"github.com/kitchencore/reasoner/pkg/stream"
)

func testDoneEvent() stream.Event {
	return stream.Event{SeqID: 1, Timestamp: time.Now(), Kind: stream.KindDone, Payload: stream.DonePayload{Status: stream.DoneOK}}
}

type fakeMem struct{}

func (fakeMem) Sample(context.Context) (float64, float64, error) { return 10, 0, nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Session:   config.SessionConfig{IdleDecayAfter: 12 * time.Hour},
		Policy:    config.PolicyConfig{ShortUtteranceTokens: 2},
		Resource:  config.ResourceConfig{HealthyRAMPercent: 90, HealthyGPUPercent: 90},
		Compounds: config.CompoundsConfig{RequestsPerSecond: 1000, RequestTimeout: time.Second, MaxRetries: 1},
		HTTP:      config.HTTPConfig{HeartbeatHz: 100, AllowedOrigins: []string{"https://kitchen.example"}},
	}
	sessions := session.NewMemStore()
	monitor := resourcemon.New(cfg.Resource, fakeMem{}, nil)
	pipeline := &orchestrate.Pipeline{
		Config:   cfg,
		Monitor:  monitor,
		Sessions: sessions,
		Fetcher:  retrieval.NoopFetcher{},
		Client:   &llm.FakeClient{Chunks: []llm.StreamChunk{{Content: "seared and rested"}}},
		Identity: orchestrate.PolicyIdentity{RegistryVersion: "v1", RegistryHash: "abc", OntologyVersion: "v1", PolicyID: "p1", PolicyVersion: "1"},
	}
	return NewServer(cfg.HTTP, sessions, pipeline, monitor, nil)
}

func TestHealthHandler_ReportsHealthy(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestGetConversation_EmptySessionIDReturnsNewMarker(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversation", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"memory_scope":"new"`)
}

func TestGetConversation_MissingOwnerHeaderIsForbidden(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversation?session_id=sess-1", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateConversation_ClaimsOwnership(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/conversation", nil)
	req.Header.Set(ownerHeader, "user-a")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"session_id"`)
}

func TestListConversations_MissingOwnerHeaderIsForbidden(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

// TestChatPost_StreamsTokenAndDoneEvents uses a real listener (rather
// than an httptest.ResponseRecorder) because gin's Stream relies on the
// response writer's CloseNotify, which the recorder doesn't implement.
func TestChatPost_StreamsTokenAndDoneEvents(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Engine())
	defer srv.Close()

	body := strings.NewReader(`{"session_id":"sess-1","message":"how do I sear a steak"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", body)
	require.NoError(t, err)
	req.Header.Set(ownerHeader, "user-a")
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(out), "event: token")
	require.Contains(t, string(out), "event: done")
}

func TestChatStream_RequiresMessageQueryParam(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/chat/stream?session_id=sess-1", nil)
	req.Header.Set(ownerHeader, "user-a")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteSSE_FramesEventIDAndTimestamp(t *testing.T) {
	var b strings.Builder
	w := bufio.NewWriter(&b)
	require.NoError(t, writeSSE(w, testDoneEvent()))
	require.NoError(t, w.Flush())

	frame := b.String()
	require.True(t, strings.HasPrefix(frame, "event: done\n"))
	require.Contains(t, frame, `"seq_id"`)
	require.Contains(t, frame, `"ts"`)
	require.Contains(t, frame, `"status":"OK"`)
	require.True(t, strings.HasSuffix(frame, "\n\n"))
}
