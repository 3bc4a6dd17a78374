package upstream

import (
	"regexp"

	"github.com/tidwall/gjson"
)

// Adapter extracts incremental text from one vendor's chunk schema. ok is false
// when the payload carries no text, which callers treat as a silent skip.
type Adapter interface {
	Name() string
	ExtractText(payload []byte) (text string, ok bool)
}

func extractString(payload []byte, path string) (string, bool) {
	v := gjson.GetBytes(payload, path)
	if v.Type != gjson.String || v.Str == "" {
		return "", false
	}
	return v.Str, true
}

// OpenAIChatAdapter reads streamed chat.completion.chunk payloads (OpenAI, DeepSeek).
type OpenAIChatAdapter struct{}

func (OpenAIChatAdapter) Name() string { return "openai_chat" }

func (OpenAIChatAdapter) ExtractText(payload []byte) (string, bool) {
	return extractString(payload, "choices.0.delta.content")
}

// OpenAIMessageAdapter reads a complete, non-streamed chat.completion body.
type OpenAIMessageAdapter struct{}

func (OpenAIMessageAdapter) Name() string { return "openai_message" }

func (OpenAIMessageAdapter) ExtractText(payload []byte) (string, bool) {
	return extractString(payload, "choices.0.message.content")
}

// ImageChatAdapter reads the multimodal image model, which streams progress
// text and finally a CDN link through the chat delta field.
type ImageChatAdapter struct {
	OpenAIChatAdapter
}

func (ImageChatAdapter) Name() string { return "image_chat" }

// ImageURLPattern matches links to images hosted by the generation provider.
var ImageURLPattern = regexp.MustCompile(`https://filesystem\.site/cdn/[^\s)]+`)

// ExtractImageURL returns the first generated-image link found in text.
func ExtractImageURL(text string) (string, bool) {
	u := ImageURLPattern.FindString(text)
	return u, u != ""
}
