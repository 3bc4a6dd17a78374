package imagegen

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

func imageModel(t *testing.T, deltas ...string) (*httptest.Server, *[]byte) {
	t.Helper()
	var last []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last, _ = io.ReadAll(r.Body)
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

func setup(t *testing.T, imageURL, key string) (*gin.Engine, *storage.MemoryBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	cfg.Image = config.ModelConfig{APIKey: key, BaseURL: imageURL, Model: "gpt-image-1-vip"}
	cfg.Transport.MaxRetries = 0

	store := storage.NewMemoryBackend()
	h := New(config.Static(cfg), store, nil, nil, WithTicker(instantTicker))
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "user-1"); c.Next() })
	r.GET("/api/image-gen", h.List)
	r.POST("/api/image-gen", h.Create)
	r.POST("/api/image-gen/:conversationId/generate", h.Generate)
	return r, store
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func lastFrame(t *testing.T, body string) gjson.Result {
	t.Helper()
	blocks := strings.Split(strings.TrimSpace(body), "\n\n")
	last := strings.TrimPrefix(blocks[len(blocks)-1], "data: ")
	require.True(t, gjson.Valid(last), last)
	return gjson.Parse(last)
}

func TestCreateAndList(t *testing.T) {
	r, _ := setup(t, "http://127.0.0.1:1", "")

	w := do(r, http.MethodPost, "/api/image-gen", "")
	require.Equal(t, http.StatusOK, w.Code)
	created := gjson.Parse(w.Body.String())
	require.Equal(t, DefaultTitle, created.Get("title").String())
	require.Equal(t, DisplayModel, created.Get("model").String())
	require.True(t, created.Get("images").IsArray())
	require.NotEmpty(t, created.Get("_id").String())

	w = do(r, http.MethodPost, "/api/image-gen", `{"title":"Logo ideas"}`)
	require.Equal(t, "Logo ideas", gjson.Get(w.Body.String(), "title").String())

	w = do(r, http.MethodGet, "/api/image-gen", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gjson.Parse(w.Body.String()).Array(), 2)
}

func TestGenerateStreamsAndStoresImage(t *testing.T) {
	srv, sent := imageModel(t, "Generating...\n", "![image](https://filesystem.site/cdn/", "20250101/fox.png)")
	r, store := setup(t, srv.URL, "sk-img")
	ctx := context.Background()

	conv := &storage.ImageConversation{UserID: "user-1", Title: DefaultTitle, Model: DisplayModel}
	require.NoError(t, store.CreateConversation(ctx, conv))
	require.NoError(t, store.AppendImage(ctx, "user-1", conv.ID, storage.GeneratedImage{Prompt: "a fox", Type: TypeText2Img}))

	w := do(r, http.MethodPost, "/api/image-gen/"+conv.ID+"/generate", `{"prompt":"make it red","type":"text2img"}`)
	require.Equal(t, http.StatusOK, w.Code)
	final := lastFrame(t, w.Body.String())
	require.True(t, final.Get("done").Bool())
	require.Equal(t, "https://filesystem.site/cdn/20250101/fox.png", final.Get("imageUrl").String())

	payload := gjson.ParseBytes(*sent)
	require.Equal(t, "gpt-image-1-vip", payload.Get("model").String())
	require.Equal(t, "a fox", payload.Get("messages.0.content").String())
	require.Equal(t, "make it red", payload.Get("messages.1.content").String())
	require.Equal(t, int64(4000), payload.Get("max_tokens").Int())
	require.Equal(t, 0.5, payload.Get("temperature").Float())
	require.True(t, payload.Get("stream").Bool())

	got, err := store.GetConversation(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	img := got.Images[1]
	require.Equal(t, "make it red", img.Prompt)
	require.Equal(t, "https://filesystem.site/cdn/20250101/fox.png", img.URL)
	require.Equal(t, DisplayModel, img.Model)
	require.Equal(t, TypeText2Img, img.Type)
}

func TestGenerateValidation(t *testing.T) {
	r, store := setup(t, "http://127.0.0.1:1", "sk-img")
	conv := &storage.ImageConversation{UserID: "user-1"}
	require.NoError(t, store.CreateConversation(context.Background(), conv))
	path := "/api/image-gen/" + conv.ID + "/generate"

	cases := map[string]string{
		"missing prompt":      `{"type":"text2img"}`,
		"unknown type":        `{"prompt":"x","type":"video"}`,
		"img2img sans source": `{"prompt":"x","type":"img2img"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, path, body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.NotEmpty(t, gjson.Get(w.Body.String(), "message").String())
		})
	}
}

func TestGenerateUnknownConversation(t *testing.T) {
	r, store := setup(t, "http://127.0.0.1:1", "sk-img")
	w := do(r, http.MethodPost, "/api/image-gen/nope/generate", `{"prompt":"x","type":"text2img"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	other := &storage.ImageConversation{UserID: "user-2"}
	require.NoError(t, store.CreateConversation(context.Background(), other))
	w = do(r, http.MethodPost, "/api/image-gen/"+other.ID+"/generate", `{"prompt":"x","type":"text2img"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateWithoutURLStoresNothing(t *testing.T) {
	r, store := setup(t, "http://127.0.0.1:1", "")
	conv := &storage.ImageConversation{UserID: "user-1"}
	require.NoError(t, store.CreateConversation(context.Background(), conv))

	w := do(r, http.MethodPost, "/api/image-gen/"+conv.ID+"/generate", `{"prompt":"a cat","type":"img2img","sourceImage":"uploads/cat.png"}`)
	require.Equal(t, http.StatusOK, w.Code)
	final := lastFrame(t, w.Body.String())
	require.Equal(t, streaming.FallbackMessage("image", "a cat"), final.Get("fullContent").String())
	require.False(t, final.Get("imageUrl").Exists())

	got, err := store.GetConversation(context.Background(), "user-1", conv.ID)
	require.NoError(t, err)
	require.Empty(t, got.Images)
}
