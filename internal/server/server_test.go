package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

type fakeEngine struct {
	AskFn    func(ctx context.Context, req query.Request) (*query.Response, error)
	silos    []query.SiloStatus
	silosErr error
}

func (f *fakeEngine) Ask(ctx context.Context, req query.Request) (*query.Response, error) {
	return f.AskFn(ctx, req)
}

func (f *fakeEngine) Silos() ([]query.SiloStatus, error) { return f.silos, f.silosErr }

func echoEngine() *fakeEngine {
	return &fakeEngine{
		AskFn: func(_ context.Context, req query.Request) (*query.Response, error) {
			return &query.Response{
				Answer: "Rank 1: **Carmine's**\n\nSources:\n• [data/r.csv](file:///data/r.csv)",
				Body:   "Rank 1: **Carmine's**",
				Branch: query.BranchGuardrail,
				Silo:   req.Silo,
			}, nil
		},
		silos: []query.SiloStatus{{Slug: "data", Name: "Data", FilesIndexed: 3}},
	}
}

func post(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := New(Config{}, echoEngine(), nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{AllowedOrigins: []string{"*"}}, echoEngine(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAsk(t *testing.T) {
	srv := New(Config{}, echoEngine(), nil)

	w := post(t, srv, `{"query":"what restaurant was ranked number 1","silo":"data"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got askResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "data", got.Silo)
	assert.Equal(t, query.BranchGuardrail, got.Branch)
	assert.Empty(t, got.HTML)
}

func TestAskHTML(t *testing.T) {
	srv := New(Config{}, echoEngine(), nil)

	w := post(t, srv, `{"query":"rank 1","format":"html"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got askResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got.HTML, "<strong>Carmine's</strong>")
	assert.Contains(t, got.HTML, `<a href="file:///data/r.csv">data/r.csv</a>`)
}

func TestAskErrors(t *testing.T) {
	t.Run("bad body", func(t *testing.T) {
		w := post(t, New(Config{}, echoEngine(), nil), `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty query", func(t *testing.T) {
		w := post(t, New(Config{}, echoEngine(), nil), `{"query":"  "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("policy error", func(t *testing.T) {
		eng := &fakeEngine{AskFn: func(context.Context, query.Request) (*query.Response, error) {
			return nil, &query.PolicyError{Message: "this question needs a silo", ExitCode: query.PolicyExitCode}
		}}
		w := post(t, New(Config{}, eng, nil), `{"query":"what files are from 2022"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var got errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "this question needs a silo", got.Error)
		assert.Equal(t, 2, got.ExitCode)
	})

	t.Run("model failure", func(t *testing.T) {
		eng := &fakeEngine{AskFn: func(context.Context, query.Request) (*query.Response, error) {
			return nil, errors.New("LLM completion: connection refused")
		}}
		w := post(t, New(Config{}, eng, nil), `{"query":"hello there"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSilos(t *testing.T) {
	srv := New(Config{}, echoEngine(), nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/silos", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []query.SiloStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Data", got[0].Name)

	t.Run("index unreadable", func(t *testing.T) {
		eng := echoEngine()
		eng.silosErr = errors.New("opening index: registry is corrupt")
		w := httptest.NewRecorder()
		New(Config{}, eng, nil).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/silos", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "registry is corrupt")
	})
}

func TestWebSocketAsk(t *testing.T) {
	srv := New(Config{}, echoEngine(), nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ask", "id": "1", "query": "rank 1", "silo": "data"}))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "answer", reply.Type)
	assert.Equal(t, "1", reply.ID)
	require.NotNil(t, reply.Answer)
	assert.Equal(t, "data", reply.Answer.Silo)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "nope", "id": "2"}))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	require.NotNil(t, reply.Error)
	assert.Contains(t, reply.Error.Error, "unknown message type")
}
