package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"kala-setu/internal/auth"
	cacheadapter "kala-setu/internal/infrastructure/cache/adapter"
	pubsubadapter "kala-setu/internal/infrastructure/pubsub/adapter"
	qport "kala-setu/internal/infrastructure/queue/port"
	"kala-setu/internal/infrastructure/realtime"
	storageadapter "kala-setu/internal/infrastructure/storage/adapter"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/task"
	chatrepo "kala-setu/internal/pkg/chat/persistence/repository/adapter"
	profilerepo "kala-setu/internal/repository/adapter"
)

const (
	testSecret = "router-test-secret"

	buyerID   = "11111111-1111-1111-1111-111111111111"
	artisanID = "22222222-2222-2222-2222-222222222222"
	strangeID = "33333333-3333-3333-3333-333333333333"
	missingID = "44444444-4444-4444-4444-444444444444"
)

// tagTranslator prefixes text with the target language.
type tagTranslator struct{}

func (tagTranslator) Translate(_ context.Context, text, src, tgt string) string {
	if src == tgt || chat.IsBlank(text) {
		return text
	}
	return "[" + tgt + "]" + text
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
	opts  []qport.EnqueueOption
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	q.opts = append(q.opts, opts...)
	return "task-1", nil
}

func (q *fakeQueue) Close() error { return nil }

type testEnv struct {
	engine   *gin.Engine
	profiles *profilerepo.MemoryProfileRepository
	chats    *chatrepo.MemoryChatRepository
	store    *storageadapter.MemoryStore
	queue    *fakeQueue
	router   *realtime.Router
	feed     *pubsubadapter.MemoryFeed
	conv     *chat.Conversation
}

func newTestEnv(t *testing.T, sendLimit uint) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := profilerepo.NewMemoryProfileRepository(
		chat.Profile{ID: buyerID, FullName: "Asha", Language: chat.LanguageEnglish},
		chat.Profile{ID: artisanID, FullName: "Ravi", Language: chat.LanguageHindi},
		chat.Profile{ID: strangeID, FullName: "Meena"},
	)
	chats := chatrepo.NewMemoryChatRepository(profiles)
	conv, err := chats.CreateOrFetchConversation(context.Background(), buyerID, artisanID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	e := &testEnv{
		engine:   gin.New(),
		profiles: profiles,
		chats:    chats,
		store:    storageadapter.NewMemoryStore("https://cdn.test"),
		queue:    &fakeQueue{},
		router:   realtime.NewRouter(),
		feed:     pubsubadapter.NewMemoryFeed(),
		conv:     conv,
	}
	t.Cleanup(e.router.Close)
	t.Cleanup(e.feed.Close)

	g := e.engine.Group("/api/v1", auth.Middleware(testSecret))
	RegisterRoutes(g, Dependencies{
		Chats:            chats,
		Profiles:         profiles,
		Translator:       tagTranslator{},
		Feed:             e.feed,
		Cache:            cacheadapter.NewMemoryCache(),
		Store:            e.store,
		Queue:            e.queue,
		Router:           e.router,
		AvatarBucket:     "avatars",
		LanguageCacheTTL: time.Minute,
		SendRateLimit:    sendLimit,
		SendRateWindow:   time.Minute,
	})
	return e
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, userID, "Test User", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func messagesPath(convID string) string {
	return "/api/v1/conversations/" + convID + "/messages"
}

func TestRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t, 5)
	w := e.do(t, http.MethodGet, "/api/v1/conversations", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListLanguages(t *testing.T) {
	e := newTestEnv(t, 5)
	w := e.do(t, http.MethodGet, "/api/v1/languages", buyerID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	langs, _ := decode(t, w)["languages"].([]any)
	if len(langs) != len(chat.SupportedLanguages()) {
		t.Fatalf("expected %d languages, got %d", len(chat.SupportedLanguages()), len(langs))
	}
}

func TestLanguageSelectionFlow(t *testing.T) {
	e := newTestEnv(t, 5)

	w := e.do(t, http.MethodGet, "/api/v1/profile/language", strangeID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["needs_selection"]; got != true {
		t.Fatalf("expected needs_selection, got %v", got)
	}

	w = e.do(t, http.MethodPut, "/api/v1/profile/language", strangeID, gin.H{"language": "xx"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported: expected 400, got %d", w.Code)
	}

	w = e.do(t, http.MethodPut, "/api/v1/profile/language", strangeID, gin.H{"language": " TA "})
	if w.Code != http.StatusOK {
		t.Fatalf("set: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["language"]; got != "ta" {
		t.Fatalf("expected normalized ta, got %v", got)
	}

	w = e.do(t, http.MethodGet, "/api/v1/profile/language", strangeID, nil)
	body := decode(t, w)
	if body["language"] != "ta" || body["needs_selection"] != false {
		t.Fatalf("unexpected state after selection: %v", body)
	}
}

func TestCreateConversation(t *testing.T) {
	e := newTestEnv(t, 5)

	cases := []struct {
		name        string
		counterpart string
		status      int
	}{
		{"self", buyerID, http.StatusBadRequest},
		{"not a uuid", "artisan", http.StatusBadRequest},
		{"unknown counterpart", missingID, http.StatusNotFound},
		{"existing pair", artisanID, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/conversations", buyerID, gin.H{"counterpart_id": tc.counterpart})
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	// The pair already had a conversation; both directions return it.
	w := e.do(t, http.MethodPost, "/api/v1/conversations", artisanID, gin.H{"counterpart_id": buyerID})
	body := decode(t, w)
	if body["id"] != e.conv.ID {
		t.Fatalf("expected existing conversation %s, got %v", e.conv.ID, body["id"])
	}
	cp, _ := body["counterpart"].(map[string]any)
	if cp["id"] != buyerID {
		t.Fatalf("expected buyer as counterpart, got %v", cp)
	}
}

func TestCreateConversationOnFirstContact(t *testing.T) {
	e := newTestEnv(t, 5)
	const newcomerID = "55555555-5555-5555-5555-555555555555"
	const weaverID = "abcdef01-2345-6789-abcd-ef0123456789"
	if _, err := e.profiles.EnsureProfile(context.Background(), weaverID, "Lakshmi"); err != nil {
		t.Fatalf("seed weaver: %v", err)
	}

	// The newcomer has no profile row and sends the id the way a client might.
	w := e.do(t, http.MethodPost, "/api/v1/conversations", newcomerID,
		gin.H{"counterpart_id": " " + strings.ToUpper(weaverID) + " "})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	if cp, _ := created["counterpart"].(map[string]any); cp["id"] != weaverID {
		t.Fatalf("counterpart = %v", created["counterpart"])
	}

	p, err := e.profiles.GetProfile(context.Background(), newcomerID)
	if err != nil || p.FullName != "Test User" {
		t.Fatalf("newcomer profile = %+v, %v", p, err)
	}

	w = e.do(t, http.MethodGet, "/api/v1/conversations", weaverID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["count"] != float64(1) {
		t.Fatalf("weaver inbox = %v", got)
	}
}

func TestSendAndRenderMessages(t *testing.T) {
	e := newTestEnv(t, 5)

	w := e.do(t, http.MethodPost, messagesPath(e.conv.ID), buyerID, gin.H{"content": "Is this shawl handwoven?"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sent := decode(t, w)
	if sent["content"] != "Is this shawl handwoven?" || sent["translated_content"] != "[hi]Is this shawl handwoven?" {
		t.Fatalf("unexpected stored row: %v", sent)
	}
	if r, _ := sent["rendering"].(map[string]any); r["mine"] != true || r["primary"] != "Is this shawl handwoven?" {
		t.Fatalf("author must see the original: %v", r)
	}

	w = e.do(t, http.MethodGet, messagesPath(e.conv.ID), artisanID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	msgs, _ := decode(t, w)["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	r, _ := msgs[0].(map[string]any)["rendering"].(map[string]any)
	if r["primary"] != "[hi]Is this shawl handwoven?" || r["secondary"] != "Is this shawl handwoven?" {
		t.Fatalf("counterpart rendering: %v", r)
	}

	w = e.do(t, http.MethodGet, "/api/v1/conversations", artisanID, nil)
	convs, _ := decode(t, w)["conversations"].([]any)
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if got := convs[0].(map[string]any)["last_message"]; got != "Is this shawl handwoven?" {
		t.Fatalf("preview not updated: %v", got)
	}
}

func TestMessageErrors(t *testing.T) {
	e := newTestEnv(t, 50)

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"stranger reads", http.MethodGet, messagesPath(e.conv.ID), strangeID, nil, http.StatusForbidden},
		{"stranger sends", http.MethodPost, messagesPath(e.conv.ID), strangeID, gin.H{"content": "hi"}, http.StatusForbidden},
		{"bad id", http.MethodGet, messagesPath("nope"), buyerID, nil, http.StatusBadRequest},
		{"unknown conversation", http.MethodGet, messagesPath(missingID), buyerID, nil, http.StatusNotFound},
		{"missing content", http.MethodPost, messagesPath(e.conv.ID), buyerID, gin.H{}, http.StatusBadRequest},
		{"blank content", http.MethodPost, messagesPath(e.conv.ID), buyerID, gin.H{"content": "   "}, http.StatusBadRequest},
		{"blank async", http.MethodPost, messagesPath(e.conv.ID) + "/async", buyerID, gin.H{"content": " "}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, tc.method, tc.path, tc.user, tc.body)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestSendIsRateLimited(t *testing.T) {
	e := newTestEnv(t, 1)

	if w := e.do(t, http.MethodPost, messagesPath(e.conv.ID), buyerID, gin.H{"content": "one"}); w.Code != http.StatusCreated {
		t.Fatalf("first send: expected 201, got %d", w.Code)
	}
	w := e.do(t, http.MethodPost, messagesPath(e.conv.ID), buyerID, gin.H{"content": "two"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second send: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	// Limits are per user.
	if w := e.do(t, http.MethodPost, messagesPath(e.conv.ID), artisanID, gin.H{"content": "three"}); w.Code != http.StatusCreated {
		t.Fatalf("other user: expected 201, got %d", w.Code)
	}
}

func TestSendAsyncEnqueues(t *testing.T) {
	e := newTestEnv(t, 5)

	w := e.do(t, http.MethodPost, messagesPath(e.conv.ID)+"/async", buyerID, gin.H{"content": "later"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(e.queue.tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(e.queue.tasks))
	}
	if got := e.queue.tasks[0].Type; got != task.SendMessageTaskType {
		t.Fatalf("task type %q", got)
	}
	if got := e.queue.opts[0].Queue; got != task.SendMessageQueue {
		t.Fatalf("queue %q", got)
	}
	var p task.SendMessageTaskPayload
	if err := json.Unmarshal(e.queue.tasks[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.ConversationID != e.conv.ID || p.SenderID != buyerID || p.Content != "later" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func multipartImage(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "avatar.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUpdateAvatar(t *testing.T) {
	e := newTestEnv(t, 5)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 20, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("png: %v", err)
	}

	upload := func(data []byte) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, data)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/avatar", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+token(t, buyerID))
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, req)
		return w
	}

	w := upload(pngBuf.Bytes())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	url, _ := decode(t, w)["avatar_url"].(string)
	prefix := "https://cdn.test/avatars/" + buyerID + "/"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("unexpected avatar url %q", url)
	}
	if _, ok := e.store.Get("avatars", strings.TrimPrefix(url, "https://cdn.test/avatars/")); !ok {
		t.Fatalf("avatar not stored")
	}
	p, _ := e.profiles.GetProfile(context.Background(), buyerID)
	if p.AvatarURL == nil || *p.AvatarURL != url {
		t.Fatalf("profile not updated: %v", p.AvatarURL)
	}

	if w := upload([]byte("not an image")); w.Code != http.StatusBadRequest {
		t.Fatalf("garbage upload: expected 400, got %d", w.Code)
	}
}
