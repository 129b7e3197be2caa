package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"lichtblick/internal/app"
	"lichtblick/internal/capability"
	"lichtblick/internal/chat"
	"lichtblick/internal/credential"
	"lichtblick/internal/httputil"
	"lichtblick/internal/session"
)

// Notices shown next to the chat, mirroring the credential status.
var credentialNotices = map[session.CredentialStatus]string{
	session.CredentialReady:     "💡 Lichtblick is ready!",
	session.CredentialUnchanged: "",
	session.CredentialInvalid:   "❌ Invalid API key format.",
	session.CredentialMissing:   "❌ Please enter a valid OpenAI API key.",
}

const clearedNotice = "🧹 Chat history cleared!"

type credentialRequest struct {
	APIKey string `json:"api_key" validate:"max=512"`
}

type messageRequest struct {
	Content string `json:"content" validate:"max=8000"`
	Stream  bool   `json:"stream"`
}

type messageResponse struct {
	Reply        string               `json:"reply"`
	Capabilities []string             `json:"capabilities"`
	Outcome      chat.Outcome         `json:"outcome"`
	Vocabulary   []capability.Pair    `json:"vocabulary,omitempty"`
	Analysis     *capability.Analysis `json:"analysis,omitempty"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Cache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	if err := httputil.Serve(ctx, deps.Log, addr, routes(deps)); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func routes(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/sessions", createSessionHandler(deps))
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Delete("/", deleteSessionHandler(deps))
		r.Put("/credential", credentialHandler(deps))
		r.Get("/messages", historyHandler(deps))
		r.Delete("/messages", clearHandler(deps))
		r.Post("/messages", messageHandler(deps))
		r.Post("/vocabulary", vocabularyHandler(deps))
	})
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := deps.Sessions.Create()
		deps.Log.Info("session created", "session_id", sess.ID)
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{"session_id": sess.ID})
	}
}

func deleteSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}
		deps.Sessions.Delete(sess.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func credentialHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}
		var req credentialRequest
		if err := httputil.DecodeJSON(r.Body, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		status := sess.SetCredential(req.APIKey)
		deps.Log.Info("credential set", "session_id", sess.ID, "key", credential.Redact(req.APIKey), "status", status)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  status,
			"message": credentialNotices[status],
		})
	}
}

func historyHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"messages": sess.Messages()})
	}
}

func clearHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}
		sess.Clear()
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"message": clearedNotice})
	}
}

func messageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}
		var req messageRequest
		if err := httputil.DecodeJSON(r.Body, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		if !req.Stream {
			res, err := deps.Chat.Respond(r.Context(), sess, req.Content)
			if err != nil {
				failTurn(deps.Log, w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, newMessageResponse(res))
			return
		}

		turn, err := deps.Chat.Stream(r.Context(), sess, req.Content)
		if err != nil {
			failTurn(deps.Log, w, err)
			return
		}
		streamTurn(deps.Log.With("session_id", sess.ID), w, turn)
	}
}

// streamTurn forwards fragments as SSE "fragment" events and finishes with
// "done" (the full response) or "error" (the apology).
func streamTurn(log *slog.Logger, w http.ResponseWriter, turn *chat.Turn) {
	es := httputil.NewEventStream(w)
	writeFailed := false
	for f := range turn.Fragments() {
		if writeFailed {
			continue
		}
		if err := es.Text("fragment", f); err != nil {
			log.Warn("stream write failed", "err", err)
			writeFailed = true
		}
	}

	res := turn.Wait()
	var err error
	switch res.Outcome {
	case chat.OutcomeAbandoned:
		return
	case chat.OutcomeFailed:
		err = es.JSON("error", map[string]string{"message": res.Reply})
	default:
		err = es.JSON("done", newMessageResponse(res))
	}
	if err != nil && !writeFailed {
		log.Warn("stream write failed", "err", err)
	}
}

func vocabularyHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(deps, w, r)
		if !ok {
			return
		}

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		// multipart framing needs some room on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+64*1024)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType, ok := detectContentType(header.Filename, header.Header.Get("Content-Type"))
		if !ok {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extractText(contentType, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "could not read text from file", err, http.StatusBadRequest)
			return
		}

		pairs, err := deps.Chat.Vocabulary(r.Context(), sess, text)
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			httputil.Fail(deps.Log, w, "file contains no text", err, http.StatusBadRequest)
			return
		case err != nil && r.Context().Err() != nil:
			deps.Log.Info("vocabulary upload abandoned", "session_id", sess.ID)
			return
		case err != nil:
			failTurn(deps.Log, w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"filename":   header.Filename,
			"count":      len(pairs),
			"vocabulary": pairs,
			"text":       capability.FormatVocabulary(pairs),
		})
	}
}

func lookupSession(deps app.Deps, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
		return nil, false
	}
	sess, ok := deps.Sessions.Get(id)
	if !ok {
		httputil.Fail(deps.Log, w, "session not found", nil, http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// failTurn answers with the fixed learner-facing message for err.
func failTurn(log *slog.Logger, w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, chat.ErrMissingCredential), errors.Is(err, chat.ErrInvalidCredential):
		status = http.StatusUnauthorized
	case errors.Is(err, chat.ErrEmptyInput):
		status = http.StatusBadRequest
	}
	httputil.Fail(log, w, chat.UserMessage(err), err, status)
}

func newMessageResponse(res chat.Result) messageResponse {
	out := messageResponse{
		Reply:        res.Reply,
		Capabilities: res.Capabilities(),
		Outcome:      res.Outcome,
	}
	for _, inv := range res.Invocations {
		switch inv.Name {
		case capability.VocabularyExtraction:
			out.Vocabulary = capability.ParseVocabulary(inv.Output)
		case capability.SentenceAnalysis:
			if a, err := capability.ParseAnalysis(inv.Output); err == nil {
				out.Analysis = &a
			}
		}
	}
	return out
}

func detectContentType(filename, declared string) (string, bool) {
	contentType := declared
	// If Content-Type is missing or generic, detect from filename
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			contentType = "text/plain"
		case ".pdf":
			contentType = "application/pdf"
		default:
			return "", false
		}
	}
	// drop parameters such as "; charset=utf-8"
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	switch contentType {
	case "text/plain", "application/pdf":
		return contentType, true
	default:
		return "", false
	}
}

// extractText returns the plain text of an uploaded reading text.
func extractText(contentType string, content []byte) (string, error) {
	if contentType == "application/pdf" {
		return extractPDF(content)
	}
	if !utf8.Valid(content) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return string(content), nil
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		// keep page boundaries as paragraph breaks for sentence splitting
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}
