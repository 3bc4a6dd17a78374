package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAllowAll(t *testing.T) {
	require.NoError(t, AllowAll{}.Check(context.Background(), "anyone"))
}

func TestUserIDFilter(t *testing.T) {
	require.Equal(t, "plain-id", userIDFilter("plain-id"))

	hex := "65f1a2b3c4d5e6f708091a2b"
	f, ok := userIDFilter(hex).(bson.M)
	require.True(t, ok)
	in := f["$in"].(bson.A)
	oid, _ := primitive.ObjectIDFromHex(hex)
	require.Equal(t, oid, in[0])
	require.Equal(t, hex, in[1])
}
