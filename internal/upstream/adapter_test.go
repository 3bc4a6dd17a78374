package upstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIChatAdapter(t *testing.T) {
	a := OpenAIChatAdapter{}
	text, ok := a.ExtractText([]byte(`{"choices":[{"delta":{"content":"Hel"}}]}`))
	require.True(t, ok)
	require.Equal(t, "Hel", text)

	_, ok = a.ExtractText([]byte(`{"choices":[{"delta":{"role":"assistant"}}]}`))
	require.False(t, ok)
	_, ok = a.ExtractText([]byte(`{"choices":[]}`))
	require.False(t, ok)
	_, ok = a.ExtractText([]byte(`{"choices":[{"delta":{"content":""}}]}`))
	require.False(t, ok)
}

func TestOpenAIMessageAdapter(t *testing.T) {
	text, ok := OpenAIMessageAdapter{}.ExtractText([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	require.True(t, ok)
	require.Equal(t, "done", text)
}

func TestImageChatAdapterAndURL(t *testing.T) {
	a := ImageChatAdapter{}
	require.Equal(t, "image_chat", a.Name())
	text, ok := a.ExtractText([]byte(`{"choices":[{"delta":{"content":"![img](https://filesystem.site/cdn/2025/a.png)"}}]}`))
	require.True(t, ok)

	u, ok := ExtractImageURL(text)
	require.True(t, ok)
	require.Equal(t, "https://filesystem.site/cdn/2025/a.png", u)

	_, ok = ExtractImageURL("progress 50%")
	require.False(t, ok)
}
