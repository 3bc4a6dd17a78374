package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brandgen-go/internal/config"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type instant struct{ ch chan time.Time }

func (i instant) C() <-chan time.Time { return i.ch }
func (i instant) Stop()               {}

func instantTicker(time.Duration) streaming.Ticker {
	ch := make(chan time.Time)
	close(ch)
	return instant{ch: ch}
}

// fakeModel answers streamed requests with SSE deltas and plain ones with a message.
func fakeModel(t *testing.T, deltas ...string) (*httptest.Server, *[]byte) {
	t.Helper()
	var last []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last, _ = io.ReadAll(r.Body)
		if !gjson.GetBytes(last, "stream").Bool() {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"`+strings.Join(deltas, "")+`"}}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]string{"content": d}}}})
			_, _ = io.WriteString(w, "data: "+string(b)+"\n\n")
			w.(http.Flusher).Flush()
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func testConfig(deepseekURL, deepseekKey string) *config.Config {
	cfg := config.Defaults()
	cfg.Models.DeepSeek = config.ModelConfig{APIKey: deepseekKey, BaseURL: deepseekURL, Model: "deepseek-chat"}
	cfg.Models.OpenAI = config.ModelConfig{BaseURL: "http://127.0.0.1:1", Model: "gpt-4"}
	cfg.Transport.MaxRetries = 0
	return cfg
}

func setupRouter(cfg *config.Config, store storage.HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(config.Static(cfg), store, nil, nil, WithTicker(instantTicker))
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "user-1"); c.Next() })
	r.POST("/api/chat/text/stream", h.Stream)
	r.POST("/api/chat/text", h.Text)
	r.GET("/api/chat/history", h.History)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func dataFrames(t *testing.T, body string) []gjson.Result {
	t.Helper()
	var out []gjson.Result
	for _, block := range strings.Split(body, "\n\n") {
		if block = strings.TrimSpace(block); block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "))
		payload := strings.TrimPrefix(block, "data: ")
		require.True(t, gjson.Valid(payload))
		out = append(out, gjson.Parse(payload))
	}
	return out
}

func TestStreamRelaysAndSavesHistory(t *testing.T) {
	srv, sent := fakeModel(t, "Hel", "lo")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	w := post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"Say hello"}],"model":"deepseek","id":"a-1","parentId":"m-1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	frames := dataFrames(t, w.Body.String())
	require.Len(t, frames, 3)
	require.Equal(t, "Hel", frames[0].Get("content").String())
	require.Equal(t, "lo", frames[1].Get("content").String())
	require.True(t, frames[2].Get("done").Bool())
	require.Equal(t, "Hello", frames[2].Get("fullContent").String())

	require.Equal(t, "deepseek-chat", gjson.GetBytes(*sent, "model").String())
	require.True(t, gjson.GetBytes(*sent, "stream").Bool())

	hist, err := store.ListRecent(context.Background(), "user-1", storage.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, "deepseek", hist[0].Model)
	require.Len(t, hist[0].Messages, 2)
	reply := hist[0].Messages[1]
	require.Equal(t, "assistant", reply.Role)
	require.Equal(t, "Hello", reply.Content)
	require.Equal(t, "a-1", reply.ID)
	require.Equal(t, "m-1", reply.ParentID)
}

func TestStreamRejectsEmptyMessages(t *testing.T) {
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig("http://127.0.0.1:1", "sk-test"), store)

	w := post(r, "/api/chat/text/stream", `{"messages":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"Messages are required"}`, w.Body.String())

	w = post(r, "/api/chat/text/stream", `{"messages":[{"role":"robot","content":"x"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamFallbackWithoutKey(t *testing.T) {
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig("http://127.0.0.1:1", ""), store)

	w := post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"hi there"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	want := streaming.FallbackMessage("deepseek", "hi there")
	frames := dataFrames(t, w.Body.String())
	require.Equal(t, len(streaming.Fragments(want))+1, len(frames))
	require.Equal(t, want, frames[len(frames)-1].Get("fullContent").String())

	hist, err := store.ListRecent(context.Background(), "user-1", storage.HistoryLimit)
	require.NoError(t, err)
	require.Equal(t, want, hist[0].Messages[1].Content)
}

func TestStreamUpstreamErrorBeforeFirstByte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
	}))
	defer srv.Close()
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	w := post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := gjson.Parse(w.Body.String())
	require.Equal(t, streamErrorHeadline, body.Get("message").String())
	require.Contains(t, body.Get("error").String(), "overloaded")

	hist, err := store.ListRecent(context.Background(), "user-1", storage.HistoryLimit)
	require.NoError(t, err)
	require.Empty(t, hist)
}

func roles(turns []storage.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Role + ":" + t.Content
	}
	return out
}

func TestStreamAppendsOnlyNewTurnsToConversation(t *testing.T) {
	srv, _ := fakeModel(t, "A1")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U1"}],"conversationId":"c1"}`)
	// the browser resends the whole transcript
	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U1"},{"role":"assistant","content":"A1"},{"role":"user","content":"U2"}],"conversationId":"c1"}`)

	h, err := store.GetHistory(context.Background(), "user-1", "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"user:U1", "assistant:A1", "user:U2", "assistant:A1"}, roles(h.Messages))
}

func TestStreamAppendsTrailingUserTurnWhenTranscriptDiverges(t *testing.T) {
	srv, _ := fakeModel(t, "A1")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U1"}],"conversationId":"c1"}`)
	// edited transcript: only the trailing user turn is new
	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"edited"},{"role":"assistant","content":"A1"},{"role":"user","content":"U2"}],"conversationId":"c1"}`)
	// only the new message is sent
	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U3"}],"conversationId":"c1"}`)

	h, err := store.GetHistory(context.Background(), "user-1", "c1")
	require.NoError(t, err)
	require.Equal(t, []string{
		"user:U1", "assistant:A1",
		"user:U2", "assistant:A1",
		"user:U3", "assistant:A1",
	}, roles(h.Messages))
}

func TestStreamTerminalFrameCarriesConversationID(t *testing.T) {
	srv, _ := fakeModel(t, "A1")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	w := post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U1"}]}`)
	frames := dataFrames(t, w.Body.String())
	last := frames[len(frames)-1]
	require.True(t, last.Get("done").Bool())
	id := last.Get("conversationId").String()
	require.NotEmpty(t, id)

	// continuing with the returned id extends the same record
	post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"U1"},{"role":"assistant","content":"A1"},{"role":"user","content":"U2"}],"conversationId":"`+id+`"}`)
	hist, err := store.ListRecent(context.Background(), "user-1", storage.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, id, hist[0].ConversationID)
	require.Len(t, hist[0].Messages, 4)

	w = post(r, "/api/chat/text/stream", `{"messages":[{"role":"user","content":"x"}],"conversationId":"given"}`)
	frames = dataFrames(t, w.Body.String())
	require.Equal(t, "given", frames[len(frames)-1].Get("conversationId").String())
}

func TestTextContinuesConversationWithoutDuplicates(t *testing.T) {
	srv, _ := fakeModel(t, "A1")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	w := post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"U1"}]}`)
	id := gjson.Get(w.Body.String(), "conversationId").String()
	require.NotEmpty(t, id)
	w = post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"U1"},{"role":"assistant","content":"A1"},{"role":"user","content":"U2"}],"conversationId":"`+id+`"}`)
	require.Equal(t, id, gjson.Get(w.Body.String(), "conversationId").String())

	h, err := store.GetHistory(context.Background(), "user-1", id)
	require.NoError(t, err)
	require.Equal(t, []string{"user:U1", "assistant:A1", "user:U2", "assistant:A1"}, roles(h.Messages))
}

func TestTextReturnsReplyAndSaves(t *testing.T) {
	srv, sent := fakeModel(t, "Hello")
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig(srv.URL, "sk-test"), store)

	w := post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	require.Equal(t, "Hello", body.Get("content").String())
	require.True(t, body.Get("timestamp").Exists())
	require.NotEmpty(t, body.Get("conversationId").String())
	require.False(t, gjson.GetBytes(*sent, "stream").Bool())

	hist, err := store.ListRecent(context.Background(), "user-1", storage.HistoryLimit)
	require.NoError(t, err)
	require.Equal(t, "Hello", hist[0].Messages[1].Content)
}

func TestTextFallbackAndUpstreamFailure(t *testing.T) {
	store := storage.NewMemoryBackend()
	r := setupRouter(testConfig("http://127.0.0.1:1", ""), store)
	w := post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, streaming.FallbackMessage("deepseek", "hi"), gjson.Get(w.Body.String(), "content").String())

	// gpt4 has no key configured either
	w = post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"hi"}],"model":"gpt4"}`)
	require.Equal(t, streaming.FallbackMessage("gpt4", "hi"), gjson.Get(w.Body.String(), "content").String())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()
	r = setupRouter(testConfig(srv.URL, "sk-wrong"), storage.NewMemoryBackend())
	w = post(r, "/api/chat/text", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, textErrorHeadline, gjson.Get(w.Body.String(), "message").String())
}

func TestHistoryListsNewestFirst(t *testing.T) {
	store := storage.NewMemoryBackend()
	ctx := context.Background()
	for i := 0; i < storage.HistoryLimit+3; i++ {
		_, err := store.AppendTurns(ctx, "user-1", "", "deepseek", []storage.Turn{{Role: "user", Content: "q"}})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := store.AppendTurns(ctx, "user-2", "", "deepseek", []storage.Turn{{Role: "user", Content: "other"}})
	require.NoError(t, err)

	r := setupRouter(testConfig("http://127.0.0.1:1", ""), store)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []storage.ChatHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, storage.HistoryLimit)
	for _, it := range items {
		require.Equal(t, "user-1", it.UserID)
	}
	require.True(t, !items[0].UpdatedAt.Before(items[1].UpdatedAt))
}
