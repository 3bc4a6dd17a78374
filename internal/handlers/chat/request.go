package chat

import (
	"fmt"
	"strings"
	"time"

	"brandgen-go/internal/handlers/common"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type chatRequest struct {
	Messages       []upstream.Message `json:"messages"`
	Model          string             `json:"model"`
	ID             string             `json:"id"`
	ParentID       string             `json:"parentId"`
	ConversationID string             `json:"conversationId"`
}

var allowedRoles = map[string]bool{"user": true, "assistant": true, "system": true}

func (r *chatRequest) validate() error {
	if len(r.Messages) == 0 {
		return common.NewValidationError("Messages are required")
	}
	for i, m := range r.Messages {
		if !allowedRoles[m.Role] {
			return common.NewValidationError(fmt.Sprintf("messages[%d]: unsupported role %q", i, m.Role))
		}
	}
	return nil
}

// lastContent is the content of the final message, echoed by simulated replies.
func (r *chatRequest) lastContent() string {
	return r.Messages[len(r.Messages)-1].Content
}

func bindChatRequest(c *gin.Context) (*chatRequest, bool) {
	var req chatRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.AbortValidation(c, err)
		return nil, false
	}
	req.Model = strings.TrimSpace(req.Model)
	if err := req.validate(); err != nil {
		common.AbortValidation(c, err)
		return nil, false
	}
	// 新对话在转发前分配 id，终止帧和 JSON 响应都会带回
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	return &req, true
}

// turns builds the turns to append for this request. prior is the stored
// conversation, nil when the record does not exist yet. Clients resend the
// whole transcript, so only messages past the stored ones are appended.
func (r *chatRequest) turns(prior *storage.ChatHistory, reply string, at time.Time) []storage.Turn {
	msgs := r.Messages
	if prior != nil {
		msgs = pendingMessages(r.Messages, prior.Messages)
	}
	out := make([]storage.Turn, 0, len(msgs)+1)
	for _, m := range msgs {
		out = append(out, storage.Turn{Role: m.Role, Content: m.Content, Timestamp: at})
	}
	return append(out, storage.Turn{
		ID:        r.ID,
		Role:      "assistant",
		Content:   reply,
		Timestamp: at,
		ParentID:  r.ParentID,
	})
}

// pendingMessages returns the suffix of msgs not yet stored. When msgs does
// not extend stored, it falls back to the trailing user messages.
func pendingMessages(msgs []upstream.Message, stored []storage.Turn) []upstream.Message {
	if len(stored) > 0 && len(msgs) > len(stored) && extends(msgs, stored) {
		return msgs[len(stored):]
	}
	return trailingUserMessages(msgs)
}

func extends(msgs []upstream.Message, stored []storage.Turn) bool {
	for i, t := range stored {
		if msgs[i].Role != t.Role || msgs[i].Content != t.Content {
			return false
		}
	}
	return true
}

// trailingUserMessages is the run of user messages ending msgs, or the last
// message when msgs does not end with a user turn.
func trailingUserMessages(msgs []upstream.Message) []upstream.Message {
	i := len(msgs)
	for i > 0 && msgs[i-1].Role == "user" {
		i--
	}
	if i == len(msgs) {
		return msgs[len(msgs)-1:]
	}
	return msgs[i:]
}
