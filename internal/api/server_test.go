package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MikeSquared-Agency/chatsearch/internal/answer"
	"github.com/MikeSquared-Agency/chatsearch/internal/embedding"
	"github.com/MikeSquared-Agency/chatsearch/internal/hermes"
	"github.com/MikeSquared-Agency/chatsearch/internal/transcript"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, chunks []string) ([][]float64, error) {
	if len(chunks) == 0 {
		return nil, embedding.ErrNoChunks
	}
	if len(chunks) > embedding.MaxChunks {
		return nil, embedding.ErrTooManyChunks
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(chunks))
	for i, c := range chunks {
		out[i] = []float64{float64(len(c)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, query string) ([]float64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, embedding.ErrEmptyQuery
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.5, 0.5}, nil
}

func (f *fakeEmbedder) Model() string { return "test-embed" }

type fakeAnswerer struct {
	fragments []string
	fail      string
}

func (f *fakeAnswerer) Stream(_ context.Context, _ []answer.Turn, _ []string, emit func(answer.Event) error) error {
	for _, frag := range f.fragments {
		if err := emit(answer.Event{Content: frag}); err != nil {
			return err
		}
	}
	if f.fail != "" {
		return emit(answer.Event{Error: f.fail})
	}
	return emit(answer.Event{Done: true})
}

type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]any
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]any{}
	}
	p.events[subject] = append(p.events[subject], data)
	return nil
}

func messageFixture(date, sender, text string) transcript.Message {
	return transcript.Message{Time: "9:00", Date: date, Sender: sender, Text: text}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(opts Options) (*Server, *fakePublisher) {
	pub := &fakePublisher{}
	if opts.ChatModel == "" {
		opts.ChatModel = "test-chat"
	}
	srv := NewServer(opts, &fakeEmbedder{}, &fakeAnswerer{fragments: []string{"Hel", "lo"}}, pub, testLogger())
	return srv, pub
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["detail"]
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "GET", "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["embed_model"] != "test-embed" || body["chat_model"] != "test-chat" {
		t.Errorf("unexpected status body: %v", body)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer(Options{PublicDir: filepath.Join(t.TempDir(), "missing")})

	w := doJSON(t, srv, "GET", "/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestParse_Success(t *testing.T) {
	srv, pub := newTestServer(Options{})

	content := "[9:00:00\u202fAM, 1/2/24] Alice: hi\n[9:01:00\u202fAM, 1/2/24] Bob: <image omitted>\n"
	w := upload(t, srv, "Chat.TXT", content)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Messages []struct {
			Time    string `json:"time"`
			Date    string `json:"date"`
			Sender  string `json:"sender"`
			Text    string `json:"text"`
			IsMedia bool   `json:"is_media"`
		} `json:"messages"`
		Participants []string `json:"participants"`
		Title        *string  `json:"title"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Sender != "Alice" || body.Messages[0].Date != "1/2/24" {
		t.Errorf("unexpected first message: %+v", body.Messages[0])
	}
	if !body.Messages[1].IsMedia {
		t.Error("expected second message to be media")
	}
	if len(body.Participants) != 2 || body.Participants[0] != "Alice" || body.Participants[1] != "Bob" {
		t.Errorf("unexpected participants: %v", body.Participants)
	}
	if body.Title != nil {
		t.Errorf("expected null title, got %q", *body.Title)
	}

	events := pub.events[hermes.SubjectTranscriptParsed]
	if len(events) != 1 {
		t.Fatalf("expected 1 parsed event, got %d", len(events))
	}
	ev := events[0].(hermes.TranscriptParsed)
	if ev.Messages != 2 || ev.MediaMessages != 1 || ev.Grammar != "bracketed" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestParse_RejectsNonText(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := upload(t, srv, "chat.zip", "[9:00, 1/2/24] Alice: hi")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if d := detail(t, w); d != "Only .txt files are supported" {
		t.Errorf("unexpected detail %q", d)
	}
}

func TestParse_NoMessages(t *testing.T) {
	srv, pub := newTestServer(Options{})

	w := upload(t, srv, "notes.txt", "just some notes\nnothing here\n")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if d := detail(t, w); d != noMessagesDetail {
		t.Errorf("unexpected detail %q", d)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no events, got %v", pub.events)
	}
}

func TestParse_MissingFile(t *testing.T) {
	srv, _ := newTestServer(Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestParse_TooLarge(t *testing.T) {
	srv, _ := newTestServer(Options{MaxUploadBytes: 256})

	w := upload(t, srv, "chat.txt", strings.Repeat("[9:00, 1/2/24] Alice: hi\n", 20))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestChunks(t *testing.T) {
	srv, _ := newTestServer(Options{})

	req := ChunksRequest{MaxMessages: 1}
	req.Messages = append(req.Messages,
		messageFixture("1/2/24", "Alice", "one"),
		messageFixture("1/2/24", "Bob", "two"),
	)
	w := doJSON(t, srv, "POST", "/api/chunks", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Chunks []struct {
			Text string `json:"text"`
		} `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(body.Chunks))
	}
	if body.Chunks[0].Text != "[1/2/24 9:00] Alice: one" {
		t.Errorf("unexpected chunk text %q", body.Chunks[0].Text)
	}

	w = doJSON(t, srv, "POST", "/api/chunks", ChunksRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty messages, got %d", w.Code)
	}
}

func TestEmbed(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "POST", "/api/embed", EmbedRequest{Chunks: []string{"ab", "abcd"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body EmbedResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Embeddings) != 2 || body.Embeddings[1][0] != 4 {
		t.Errorf("unexpected embeddings: %v", body.Embeddings)
	}
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		err    error
		code   int
		detail string
	}{
		{"empty", nil, nil, http.StatusBadRequest, "No chunks provided"},
		{"too many", make([]string, embedding.MaxChunks+1), nil, http.StatusBadRequest, "Too many chunks (max 2048)"},
		{"upstream", []string{"a"}, errors.New("boom"), http.StatusBadGateway, "OpenAI error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Options{}, &fakeEmbedder{err: tt.err}, &fakeAnswerer{}, nil, testLogger())
			w := doJSON(t, srv, "POST", "/api/embed", EmbedRequest{Chunks: tt.chunks})
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, w.Code)
			}
			if d := detail(t, w); d != tt.detail {
				t.Errorf("expected detail %q, got %q", tt.detail, d)
			}
		})
	}
}

func TestEmbedQuery(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "POST", "/api/embed/query", QueryEmbedRequest{Query: "when is dinner?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body QueryEmbedResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Embedding) != 2 {
		t.Errorf("unexpected embedding: %v", body.Embedding)
	}

	w = doJSON(t, srv, "POST", "/api/embed/query", QueryEmbedRequest{Query: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank query, got %d", w.Code)
	}

	failing := NewServer(Options{}, &fakeEmbedder{err: errors.New("down")}, &fakeAnswerer{}, nil, testLogger())
	w = doJSON(t, failing, "POST", "/api/embed/query", QueryEmbedRequest{Query: "hi"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestRank(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "POST", "/api/rank", RankRequest{
		Query:   []float64{1, 0},
		Vectors: [][]float64{{0, 1}, {1, 1}, {1, 0}},
		K:       2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body RankResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	if body.Results[0].Index != 2 || body.Results[0].Score != 1 {
		t.Errorf("unexpected first result: %+v", body.Results[0])
	}
	if body.Results[1].Index != 1 || body.Results[1].Score != 0.7071 {
		t.Errorf("unexpected second result: %+v", body.Results[1])
	}

	w = doJSON(t, srv, "POST", "/api/rank", RankRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty query, got %d", w.Code)
	}
}

func TestChat_StreamsFrames(t *testing.T) {
	srv, pub := newTestServer(Options{})

	w := doJSON(t, srv, "POST", "/api/chat", ChatRequest{
		Messages:  []answer.Turn{{Role: "user", Content: "hi"}},
		RAGChunks: []string{"excerpt"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}
	if w.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("expected X-Accel-Buffering: no")
	}

	want := "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: [DONE]\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("unexpected stream:\n%q\nwant\n%q", got, want)
	}

	events := pub.events[hermes.SubjectAnswerCompleted]
	if len(events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(events))
	}
	ev := events[0].(hermes.AnswerCompleted)
	if ev.Fragments != 2 || ev.Failed || ev.Turns != 1 || ev.Excerpts != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestChat_ErrorFrameEndsStream(t *testing.T) {
	pub := &fakePublisher{}
	srv := NewServer(Options{}, &fakeEmbedder{}, &fakeAnswerer{fragments: []string{"Par"}, fail: "rate limited"}, pub, testLogger())

	w := doJSON(t, srv, "POST", "/api/chat", ChatRequest{
		Messages: []answer.Turn{{Role: "user", Content: "hi"}},
	})
	body := w.Body.String()
	if !strings.HasSuffix(body, "data: {\"error\":\"rate limited\"}\n\n") {
		t.Errorf("expected error frame last, got %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Error("error stream must not end with [DONE]")
	}
	ev := pub.events[hermes.SubjectAnswerCompleted][0].(hermes.AnswerCompleted)
	if !ev.Failed || ev.Fragments != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestChat_NoMessages(t *testing.T) {
	srv, _ := newTestServer(Options{})

	w := doJSON(t, srv, "POST", "/api/chat", ChatRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv, _ := newTestServer(Options{APIToken: "secret"})

	w := doJSON(t, srv, "GET", "/api/status", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}

	w = doJSON(t, srv, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health should not require auth, got %d", w.Code)
	}
}

func TestIndex_Fallback(t *testing.T) {
	srv, _ := newTestServer(Options{PublicDir: t.TempDir()})

	w := doJSON(t, srv, "GET", "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/app.js") {
		t.Error("expected fallback page to reference /app.js")
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>bundled</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv, _ := newTestServer(Options{PublicDir: dir})

	w := doJSON(t, srv, "GET", "/", nil)
	if !strings.Contains(w.Body.String(), "bundled") {
		t.Errorf("expected bundled index, got %q", w.Body.String())
	}

	w = doJSON(t, srv, "GET", "/app.js", nil)
	if w.Code != http.StatusOK || w.Body.String() != "console.log(1)" {
		t.Errorf("unexpected static response %d %q", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, "GET", "/favicon.ico", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing favicon, got %d", w.Code)
	}
}
