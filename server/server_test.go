package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
	"github.com/hupe1980/interviewmesh/session"
)

func newTestServer(t *testing.T) (*Server, core.SessionStore) {
	t.Helper()
	store := session.NewInMemoryStore()
	srv := New(model.NewMockGenerator(), store)
	return srv, store
}

func TestCreateSession(t *testing.T) {
	srv, store := newTestServer(t)

	body := `{"resume_text": "resume", "role": "Backend Engineer", "memory_opt_in": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["session_id"])

	sess, err := store.Get(resp["session_id"])
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", sess.Role)
	assert.True(t, sess.MemoryOptIn)
	assert.Equal(t, core.PhaseSetup, sess.Phase)
}

func TestCreateSession_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessions(t *testing.T) {
	srv, store := newTestServer(t)
	store.Create(core.NewSession("s1"))
	store.Create(core.NewSession("s2"))
	store.Finalize("s1", "r", core.RecommendHire, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?completed=true", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []core.Summary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "s1", resp.Sessions[0].SessionID)
}

func TestGetSession(t *testing.T) {
	srv, store := newTestServer(t)
	sess := core.NewSession("s1")
	sess.Role = "Backend Engineer"
	store.Create(sess)
	store.Finalize("s1", "# Report\n\nSolid fundamentals.", core.RecommendHire, []string{"study raft"}, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp core.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Backend Engineer", resp.Role)
	assert.Equal(t, "# Report\n\nSolid fundamentals.", resp.Report)
	assert.Equal(t, core.RecommendHire, resp.Recommendation)
	assert.Equal(t, core.StatusCompleted, resp.Status)
}

func TestGetSession_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemoryOptInToggle(t *testing.T) {
	store := session.NewInMemoryStore()
	mem, err := memory.NewStore(model.NewMockEmbedder(8), filepath.Join(t.TempDir(), "mem"))
	require.NoError(t, err)
	_, err = mem.AddEmbedding(context.Background(), "Q: indexes\nA: b-trees", memory.Entry{SessionID: "s1"})
	require.NoError(t, err)

	srv := New(model.NewMockGenerator(), store, func(o *Options) {
		o.Memory = mem
	})

	sess := core.NewSession("s1")
	sess.MemoryOptIn = true
	require.NoError(t, store.Create(sess))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/memory-opt-in", strings.NewReader(`{"opt_in": false}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.Get("s1")
	require.NoError(t, err)
	assert.False(t, stored.MemoryOptIn)
	// Opting out also removes the session's stored vectors.
	assert.Zero(t, mem.Len())

	req = httptest.NewRequest(http.MethodPost, "/api/sessions/s1/memory-opt-in", strings.NewReader(`{"opt_in": true}`))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err = store.Get("s1")
	require.NoError(t, err)
	assert.True(t, stored.MemoryOptIn)
}

func TestMemoryOptIn_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/nope/memory-opt-in", strings.NewReader(`{"opt_in": true}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractDocument_UnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "resume.png", "binary stuff")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/extract", &buf)
	req.Header.Set("Content-Type", mw)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestExtractDocument_PlainText(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "resume.txt", "four years of Go")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/extract", &buf)
	req.Header.Set("Content-Type", mw)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "four years of Go", resp["text"])
}

func TestWebSocket_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ws/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func scriptedGenerator() *model.MockGenerator {
	gen := model.NewMockGenerator()
	gen.AddResponse("Resume Analyzer Agent", `{
		"seniority": "mid",
		"strengths": ["Go"],
		"gaps": ["distributed systems"],
		"focus_areas": ["backend design"]
	}`)
	gen.AddResponse("Question Generator Agent", `{
		"question": "How does a B-tree index speed up range scans?",
		"difficulty": "medium",
		"topic": "databases"
	}`)
	gen.AddResponse("Evaluation Agent", `{
		"scores": {"technical": 8, "design": 6, "communication": 7},
		"feedback": "Good depth."
	}`)
	gen.AddResponse("Follow-up Interview Agent", `{"needs_followup": false}`)
	gen.AddResponse("Feedback Agent", `{
		"report": "# Report\n\nWell done.",
		"recommendation": "Hire",
		"skill_roadmap": ["Study consensus protocols"]
	}`)
	return gen
}

func TestWebSocket_FullInterview(t *testing.T) {
	store := session.NewInMemoryStore()
	srv := New(scriptedGenerator(), store, func(o *Options) {
		o.MaxQuestions = 1
	})

	sess := core.NewSession("s1")
	sess.ResumeText = "Backend engineer, 4 years of Go."
	sess.Role = "Backend Engineer"
	require.NoError(t, store.Create(sess))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/s1", nil)
	require.NoError(t, err)
	defer conn.Close()

	next := func() core.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev core.Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}
	send := func(msg map[string]string) {
		t.Helper()
		require.NoError(t, conn.WriteJSON(msg))
	}

	assert.Equal(t, core.EventConnected, next().Type)

	send(map[string]string{"type": "start"})
	assert.Equal(t, core.EventIntro, next().Type)

	send(map[string]string{"type": "ready"})
	assert.Equal(t, core.EventNewQuestion, next().Type)

	// Question budget of 1: after the answer the interview runs to its end.
	send(map[string]string{"type": "answer", "answer": "It keeps keys sorted so ranges are contiguous."})
	assert.Equal(t, core.EventScoreUpdate, next().Type)
	assert.Equal(t, core.EventPhaseUpdate, next().Type)
	assert.Equal(t, core.EventPhaseUpdate, next().Type)
	assert.Equal(t, core.EventFeedback, next().Type)

	send(map[string]string{"type": "status"})
	assert.Equal(t, core.EventStatus, next().Type)

	stored, err := store.Get("s1")
	require.NoError(t, err)
	assert.True(t, stored.Sealed())
	assert.Equal(t, core.RecommendHire, stored.Recommendation)
	assert.Len(t, stored.QAHistory, 1)
}

func TestWebSocket_StartTwice(t *testing.T) {
	store := session.NewInMemoryStore()
	srv := New(scriptedGenerator(), store)

	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}
	require.NoError(t, store.Create(sess))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/s1", nil)
	require.NoError(t, err)
	defer conn.Close()

	next := func() core.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev core.Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	assert.Equal(t, core.EventConnected, next().Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "start"}))
	assert.Equal(t, core.EventIntro, next().Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "start"}))
	assert.Equal(t, core.EventError, next().Type)
}

func newMultipart(t *testing.T, buf *bytes.Buffer, filename, content string) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}

func TestRegistry_ReplaceCancelsPrevious(t *testing.T) {
	r := NewRegistry()

	cancelled := false
	first := &client{cancel: func() { cancelled = true }}
	second := &client{cancel: func() {}}

	r.Insert("s1", first)
	require.Equal(t, 1, r.Len())

	r.Insert("s1", second)
	assert.True(t, cancelled, "replacing a connection must cancel the previous watchdog")
	assert.Equal(t, 1, r.Len())

	// Removing a stale client must not evict the current one.
	r.Remove("s1", first)
	assert.Equal(t, 1, r.Len())

	r.Remove("s1", second)
	assert.Equal(t, 0, r.Len())
}
