package chat

import (
	"testing"
	"time"

	"brandgen-go/internal/storage"
	"brandgen-go/internal/upstream"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msgs(pairs ...string) []upstream.Message {
	out := make([]upstream.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, upstream.Message{Role: pairs[i], Content: pairs[i+1]})
	}
	return out
}

func TestPendingMessages(t *testing.T) {
	stored := []storage.Turn{{Role: "user", Content: "U1"}, {Role: "assistant", Content: "A1"}}

	tests := []struct {
		name   string
		in     []upstream.Message
		stored []storage.Turn
		want   []upstream.Message
	}{
		{"extends stored transcript", msgs("user", "U1", "assistant", "A1", "user", "U2"), stored, msgs("user", "U2")},
		{"several new user turns", msgs("user", "U1", "assistant", "A1", "user", "U2", "user", "U3"), stored, msgs("user", "U2", "user", "U3")},
		{"only new message sent", msgs("user", "U2"), stored, msgs("user", "U2")},
		{"diverged transcript", msgs("user", "X", "assistant", "A1", "user", "U2"), stored, msgs("user", "U2")},
		{"same length resend", msgs("user", "U1", "assistant", "A1"), stored, msgs("assistant", "A1")},
		{"ends with system", msgs("user", "U1", "system", "be brief"), nil, msgs("system", "be brief")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, pendingMessages(tt.in, tt.stored))
		})
	}
}

func TestTurnsForNewAndExistingRecords(t *testing.T) {
	req := &chatRequest{Messages: msgs("user", "U1", "assistant", "A1", "user", "U2"), ID: "a-2", ParentID: "m-2"}

	fresh := req.turns(nil, "A2", fixedNow)
	require.Len(t, fresh, 4)
	require.Equal(t, "U1", fresh[0].Content)

	prior := &storage.ChatHistory{Messages: []storage.Turn{{Role: "user", Content: "U1"}, {Role: "assistant", Content: "A1"}}}
	cont := req.turns(prior, "A2", fixedNow)
	require.Len(t, cont, 2)
	require.Equal(t, "U2", cont[0].Content)
	require.Equal(t, storage.Turn{ID: "a-2", Role: "assistant", Content: "A2", Timestamp: fixedNow, ParentID: "m-2"}, cont[1])

	// lookup failure: prior is known to exist but its turns are not
	unknown := req.turns(&storage.ChatHistory{}, "A2", fixedNow)
	require.Len(t, unknown, 2)
	require.Equal(t, "U2", unknown[0].Content)
}
