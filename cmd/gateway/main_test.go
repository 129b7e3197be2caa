package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lichtblick/internal/app"
	"lichtblick/internal/cache"
	"lichtblick/internal/capability"
	"lichtblick/internal/chat"
	"lichtblick/internal/config"
	"lichtblick/internal/llm"
	"lichtblick/internal/prompts"
	"lichtblick/internal/queue"
	"lichtblick/internal/session"
)

const testKey = "sk-test-0123456789"

func newTestDeps(t *testing.T, client llm.Client) app.Deps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := chat.NewService(chat.Config{
		Factory:    func(string) (llm.Client, error) { return client, nil },
		Catalog:    prompts.Default(),
		Decider:    chat.DeciderRules,
		Model:      "gpt-4o-mini",
		ChunkWords: 50,
		Log:        log,
	})
	require.NoError(t, err)
	return app.Deps{
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
		},
		Log:      log,
		Sessions: session.NewStore(time.Hour, 100),
		Chat:     svc,
		Cache:    cache.NewNoOpCache(),
		Queue:    queue.NewNoOp(),
	}
}

func newSession(deps app.Deps, key string) *session.Session {
	sess := deps.Sessions.Create()
	if key != "" {
		sess.SetCredential(key)
	}
	return sess
}

func isCapability(name string) interface{} {
	def, _ := prompts.Default().Lookup(name)
	return mock.MatchedBy(func(req llm.Request) bool { return req.System == def.Instructions })
}

// vocabularyClient answers the vocabulary extractor and streams a fixed
// composed reply.
func vocabularyClient() *llm.MockClient {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, isCapability(capability.VocabularyExtraction)).
		Return("Hund -> dog", nil)
	client.On("Stream", mock.Anything, mock.Anything).
		Return(llm.StreamOf("Hund means dog. ", "Want another word?"))
	return client
}

func failingClient() *llm.MockClient {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("upstream timeout"))
	return client
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateSession(t *testing.T) {
	deps := newTestDeps(t, llm.NewStubClient())
	w := do(t, routes(deps), http.MethodPost, "/api/sessions", "")

	require.Equal(t, http.StatusCreated, w.Code)
	id, err := uuid.Parse(decode(t, w)["session_id"].(string))
	require.NoError(t, err)
	_, ok := deps.Sessions.Get(id)
	assert.True(t, ok)
}

func TestCredentialHandler(t *testing.T) {
	deps := newTestDeps(t, llm.NewStubClient())
	h := routes(deps)
	sess := newSession(deps, "")
	path := "/api/sessions/" + sess.ID.String() + "/credential"

	steps := []struct {
		name        string
		body        string
		wantStatus  int
		wantCred    session.CredentialStatus
		wantMessage string
	}{
		{"first valid key", `{"api_key":"sk-abc123"}`, http.StatusOK, session.CredentialReady, "💡 Lichtblick is ready!"},
		{"same key again", `{"api_key":"sk-abc123"}`, http.StatusOK, session.CredentialUnchanged, ""},
		{"malformed key", `{"api_key":"abc123"}`, http.StatusOK, session.CredentialInvalid, "❌ Invalid API key format."},
		{"valid again after invalid", `{"api_key":"sk-abc123"}`, http.StatusOK, session.CredentialReady, "💡 Lichtblick is ready!"},
		{"empty key", `{"api_key":""}`, http.StatusOK, session.CredentialMissing, "❌ Please enter a valid OpenAI API key."},
		{"bad payload", `{"key":"sk-abc"}`, http.StatusBadRequest, "", ""},
	}

	for _, tt := range steps {
		w := do(t, h, http.MethodPut, path, tt.body)
		require.Equal(t, tt.wantStatus, w.Code, "%s: %s", tt.name, w.Body.String())
		if tt.wantStatus != http.StatusOK {
			continue
		}
		body := decode(t, w)
		assert.Equal(t, string(tt.wantCred), body["status"], tt.name)
		assert.Equal(t, tt.wantMessage, body["message"], tt.name)
	}
}

func TestCredentialLogRedactsKey(t *testing.T) {
	var logs bytes.Buffer
	deps := newTestDeps(t, llm.NewStubClient())
	deps.Log = slog.New(slog.NewTextHandler(&logs, nil))
	sess := newSession(deps, "")

	w := do(t, routes(deps), http.MethodPut, "/api/sessions/"+sess.ID.String()+"/credential", `{"api_key":"`+testKey+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, logs.String(), "credential set")
	assert.Contains(t, logs.String(), "sk-****6789")
	assert.NotContains(t, logs.String(), testKey)
}

func TestUnknownSession(t *testing.T) {
	h := routes(newTestDeps(t, llm.NewStubClient()))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"invalid id", http.MethodGet, "/api/sessions/not-a-uuid/messages", http.StatusBadRequest},
		{"unknown history", http.MethodGet, "/api/sessions/" + uuid.NewString() + "/messages", http.StatusNotFound},
		{"unknown credential", http.MethodPut, "/api/sessions/" + uuid.NewString() + "/credential", http.StatusNotFound},
		{"unknown delete", http.MethodDelete, "/api/sessions/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, "")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMessageHandlerJSON(t *testing.T) {
	client := vocabularyClient()
	deps := newTestDeps(t, client)
	sess := newSession(deps, testKey)

	w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", `{"content":"Hund"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp messageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hund means dog. Want another word?", resp.Reply)
	assert.Equal(t, []string{capability.VocabularyExtraction}, resp.Capabilities)
	assert.Equal(t, chat.OutcomeAnswered, resp.Outcome)
	assert.Equal(t, []capability.Pair{{Source: "Hund", Translation: "dog"}}, resp.Vocabulary)
	assert.Nil(t, resp.Analysis)

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, resp.Reply, msgs[1].Content)
	client.AssertExpectations(t)
}

func TestMessageHandlerErrors(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		body        string
		client      llm.Client
		wantStatus  int
		wantMessage string
	}{
		{"malformed credential", "abc123", `{"content":"Der Hund bellt laut."}`, new(llm.MockClient), http.StatusUnauthorized, chat.CredentialMessage},
		{"missing credential", "", `{"content":"Hund"}`, new(llm.MockClient), http.StatusUnauthorized, chat.CredentialMessage},
		{"empty content", testKey, `{"content":"   "}`, new(llm.MockClient), http.StatusBadRequest, chat.EmptyInputMessage},
		{"unknown field", testKey, `{"text":"Hund"}`, new(llm.MockClient), http.StatusBadRequest, "invalid payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t, tt.client)
			sess := newSession(deps, tt.key)

			w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decode(t, w)["error"])
			assert.Empty(t, sess.Messages())
		})
	}
}

func TestMessageHandlerUpstreamFailure(t *testing.T) {
	deps := newTestDeps(t, failingClient())
	sess := newSession(deps, testKey)

	w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", `{"content":"Hund"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, chat.ApologyMessage, body["reply"])
	assert.Equal(t, string(chat.OutcomeFailed), body["outcome"])
	assert.NotContains(t, w.Body.String(), "upstream timeout")
}

type sseEvent struct {
	name string
	data string
}

func parseEvents(body string) []sseEvent {
	var events []sseEvent
	for _, frame := range strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n") {
		var ev sseEvent
		var data []string
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
		ev.data = strings.Join(data, "\n")
		events = append(events, ev)
	}
	return events
}

func TestMessageHandlerStream(t *testing.T) {
	deps := newTestDeps(t, vocabularyClient())
	sess := newSession(deps, testKey)

	w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", `{"content":"Hund","stream":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseEvents(w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, sseEvent{"fragment", "Hund means dog. "}, events[0])
	assert.Equal(t, sseEvent{"fragment", "Want another word?"}, events[1])
	assert.Equal(t, "done", events[2].name)

	var done messageResponse
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &done))
	assert.Equal(t, events[0].data+events[1].data, done.Reply)
	assert.Equal(t, []capability.Pair{{Source: "Hund", Translation: "dog"}}, done.Vocabulary)
	assert.Len(t, sess.Messages(), 2)
}

func TestMessageHandlerStreamFailure(t *testing.T) {
	deps := newTestDeps(t, failingClient())
	sess := newSession(deps, testKey)

	w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", `{"content":"Hund","stream":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	events := parseEvents(w.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, chat.ApologyMessage), events[0].data)
}

func TestMessageHandlerStreamRejectsBeforeStreaming(t *testing.T) {
	deps := newTestDeps(t, new(llm.MockClient))
	sess := newSession(deps, "abc123")

	w := do(t, routes(deps), http.MethodPost, "/api/sessions/"+sess.ID.String()+"/messages", `{"content":"Hund","stream":true}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHistoryAndClear(t *testing.T) {
	deps := newTestDeps(t, llm.NewStubClient())
	h := routes(deps)
	sess := newSession(deps, testKey)
	base := "/api/sessions/" + sess.ID.String()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/messages", `{"content":"Hund"}`).Code)

	w := do(t, h, http.MethodGet, base+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Hund", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

	w = do(t, h, http.MethodDelete, base+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, clearedNotice, decode(t, w)["message"])
	assert.False(t, sess.Validated())

	w = do(t, h, http.MethodGet, base+"/messages", "")
	assert.Empty(t, decode(t, w)["messages"])

	w = do(t, h, http.MethodPut, base+"/credential", `{"api_key":"`+testKey+`"}`)
	assert.Equal(t, string(session.CredentialReady), decode(t, w)["status"])
}

func TestDeleteSession(t *testing.T) {
	deps := newTestDeps(t, llm.NewStubClient())
	h := routes(deps)
	sess := newSession(deps, testKey)

	w := do(t, h, http.MethodDelete, "/api/sessions/"+sess.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVocabularyHandler(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		filename      string
		contentType   string
		content       []byte
		client        func() *llm.MockClient
		wantStatus    int
		checkResponse func(*testing.T, map[string]any)
	}{
		{
			name:        "successful upload",
			key:         testKey,
			filename:    "lesetext.txt",
			contentType: "text/plain; charset=utf-8",
			content:     []byte("Der Hund spielt. Die Katze schläft."),
			client: func() *llm.MockClient {
				c := new(llm.MockClient)
				c.On("Complete", mock.Anything, isCapability(capability.VocabularyExtraction)).
					Return("Hund -> dog\nKatze -> cat\nhund -> hound", nil).Once()
				return c
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, float64(2), body["count"])
				assert.Equal(t, "Hund -> dog\nKatze -> cat", body["text"])
			},
		},
		{
			name:        "missing Content-Type detects from extension",
			key:         testKey,
			filename:    "lesetext.txt",
			contentType: "",
			content:     []byte("Hund"),
			client: func() *llm.MockClient {
				c := new(llm.MockClient)
				c.On("Complete", mock.Anything, mock.Anything).Return("Hund -> dog", nil).Once()
				return c
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "file too large",
			key:         testKey,
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported extension",
			key:         testKey,
			filename:    "lesetext.docx",
			contentType: "",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			key:         testKey,
			filename:    "lesetext.doc",
			contentType: "application/msword",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unreadable PDF",
			key:         testKey,
			filename:    "lesetext.pdf",
			contentType: "application/pdf",
			content:     []byte("this is not a pdf document at all"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "invalid UTF-8",
			key:         testKey,
			filename:    "lesetext.txt",
			contentType: "text/plain",
			content:     []byte{0xff, 0xfe, 0x00, 0x48},
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "blank text",
			key:         testKey,
			filename:    "lesetext.txt",
			contentType: "text/plain",
			content:     []byte("  \n "),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "missing credential",
			filename:    "lesetext.txt",
			contentType: "text/plain",
			content:     []byte("Der Hund spielt."),
			wantStatus:  http.StatusUnauthorized,
		},
		{
			name:        "upstream failure",
			key:         testKey,
			filename:    "lesetext.txt",
			contentType: "text/plain",
			content:     []byte("Der Hund spielt."),
			client:      failingClient,
			wantStatus:  http.StatusBadGateway,
			checkResponse: func(t *testing.T, body map[string]any) {
				assert.Equal(t, chat.ApologyMessage, body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(llm.MockClient)
			if tt.client != nil {
				client = tt.client()
			}
			deps := newTestDeps(t, client)
			sess := newSession(deps, tt.key)

			req, err := createMultipartRequest("/api/sessions/"+sess.ID.String()+"/vocabulary", tt.filename, tt.contentType, tt.content)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			routes(deps).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				tt.checkResponse(t, decode(t, w))
			}
			client.AssertExpectations(t)
			assert.Empty(t, sess.Messages())
		})
	}

	// Test missing file separately since it requires different request setup
	t.Run("missing file", func(t *testing.T) {
		deps := newTestDeps(t, new(llm.MockClient))
		sess := newSession(deps, testKey)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID.String()+"/vocabulary", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()
		routes(deps).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		declared string
		want     string
		ok       bool
	}{
		{"a.txt", "", "text/plain", true},
		{"a.PDF", "", "application/pdf", true},
		{"a.pdf", "application/octet-stream", "application/pdf", true},
		{"a.txt", "text/plain; charset=utf-8", "text/plain", true},
		{"a.md", "", "", false},
		{"a.txt", "image/png", "", false},
	}
	for _, tt := range tests {
		got, ok := detectContentType(tt.filename, tt.declared)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}

func TestHealthz(t *testing.T) {
	w := do(t, routes(newTestDeps(t, llm.NewStubClient())), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func createMultipartRequest(path, filename, contentType string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
