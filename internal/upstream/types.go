package upstream

// Message is one chat turn in OpenAI wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-neutral input for a completion call.
type ChatRequest struct {
	Messages []Message
	// Extra holds additional top-level payload fields such as temperature.
	Extra map[string]interface{}
}
