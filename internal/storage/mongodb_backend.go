package storage

import (
	"context"
	"fmt"
	"time"

	storagecommon "brandgen-go/internal/storage/common"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ChatHistoryCollection       = "chathistories"
	ImageConversationCollection = "conversations"
)

type historyDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"userId"`
	ConversationID string             `bson:"conversationId"`
	Model          string             `bson:"model"`
	Messages       []Turn             `bson:"messages"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

type conversationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Model     string             `bson:"model"`
	Images    []GeneratedImage   `bson:"images"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d conversationDoc) toConversation() ImageConversation {
	images := d.Images
	if images == nil {
		images = []GeneratedImage{}
	}
	return ImageConversation{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Title:     d.Title,
		Model:     d.Model,
		Images:    images,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoDBBackend stores chat histories and image conversations in MongoDB.
type MongoDBBackend struct {
	uri     string
	dbName  string
	timeout time.Duration

	client   *mongo.Client
	database *mongo.Database
	history  *mongo.Collection
	images   *mongo.Collection
}

// NewMongoDBBackend creates an unconnected backend; call Initialize.
func NewMongoDBBackend(uri, dbName string, timeout time.Duration) *MongoDBBackend {
	if dbName == "" {
		dbName = "ai-policy-gen"
	}
	return &MongoDBBackend{uri: uri, dbName: dbName, timeout: timeout}
}

func (m *MongoDBBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return storagecommon.WithStorageTimeout(ctx, m.timeout)
}

// Initialize connects and ensures indexes.
func (m *MongoDBBackend) Initialize(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	clientOptions := options.Client().ApplyURI(m.uri)
	clientOptions.SetMaxPoolSize(20)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.dbName)
	m.history = m.database.Collection(ChatHistoryCollection)
	m.images = m.database.Collection(ImageConversationCollection)

	if _, err := m.history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "conversationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return fmt.Errorf("failed to create chat history indexes: %w", err)
	}
	if _, err := m.images.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create conversation index: %w", err)
	}
	return nil
}

// Database exposes the connected database, e.g. for payment checks.
func (m *MongoDBBackend) Database() *mongo.Database { return m.database }

func (m *MongoDBBackend) Close() error {
	if m.client != nil {
		return m.client.Disconnect(context.Background())
	}
	return nil
}

func (m *MongoDBBackend) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb not initialized")
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *MongoDBBackend) AppendTurns(ctx context.Context, userID, conversationID, model string, turns []Turn) (string, error) {
	if err := validateAppend(userID, turns); err != nil {
		return "", err
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": turns}},
		"$set":         bson.M{"model": model, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	filter := bson.M{"userId": userID, "conversationId": conversationID}
	_, err := m.history.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", storagecommon.MapMongoError(err, conversationID)
	}
	return conversationID, nil
}

func (m *MongoDBBackend) ListRecent(ctx context.Context, userID string, limit int) ([]ChatHistory, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))
	cursor, err := m.history.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, storagecommon.MapMongoError(err, userID)
	}
	defer cursor.Close(ctx)

	var docs []historyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storagecommon.MapMongoError(err, userID)
	}
	out := make([]ChatHistory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toHistory())
	}
	return out, nil
}

func (m *MongoDBBackend) GetHistory(ctx context.Context, userID, conversationID string) (*ChatHistory, error) {
	if conversationID == "" {
		return nil, &ErrNotFound{Key: conversationID}
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var d historyDoc
	err := m.history.FindOne(ctx, bson.M{"userId": userID, "conversationId": conversationID}).Decode(&d)
	if err != nil {
		return nil, storagecommon.MapMongoError(err, conversationID)
	}
	h := d.toHistory()
	return &h, nil
}

func (d historyDoc) toHistory() ChatHistory {
	return ChatHistory{
		ID:             d.ID.Hex(),
		UserID:         d.UserID,
		ConversationID: d.ConversationID,
		Model:          d.Model,
		Messages:       d.Messages,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (m *MongoDBBackend) ListConversations(ctx context.Context, userID string) ([]ImageConversation, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := m.images.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, storagecommon.MapMongoError(err, userID)
	}
	defer cursor.Close(ctx)

	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storagecommon.MapMongoError(err, userID)
	}
	out := make([]ImageConversation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toConversation())
	}
	return out, nil
}

func (m *MongoDBBackend) CreateConversation(ctx context.Context, conv *ImageConversation) error {
	if err := storagecommon.ValidateID("userId", conv.UserID); err != nil {
		return err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	doc := conversationDoc{
		ID:        primitive.NewObjectID(),
		UserID:    conv.UserID,
		Title:     conv.Title,
		Model:     conv.Model,
		Images:    conv.Images,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Images == nil {
		doc.Images = []GeneratedImage{}
	}
	if _, err := m.images.InsertOne(ctx, doc); err != nil {
		return storagecommon.MapMongoError(err, doc.ID.Hex())
	}
	*conv = doc.toConversation()
	return nil
}

// ownerFilter matches id only for its owner. Malformed ids are not found.
func ownerFilter(userID, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &ErrNotFound{Key: id}
	}
	return bson.M{"_id": oid, "userId": userID}, nil
}

func (m *MongoDBBackend) GetConversation(ctx context.Context, userID, id string) (*ImageConversation, error) {
	filter, err := ownerFilter(userID, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var doc conversationDoc
	if err := m.images.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, storagecommon.MapMongoError(err, id)
	}
	conv := doc.toConversation()
	return &conv, nil
}

func (m *MongoDBBackend) AppendImage(ctx context.Context, userID, id string, img GeneratedImage) error {
	filter, err := ownerFilter(userID, id)
	if err != nil {
		return err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.images.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"images": img},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return storagecommon.MapMongoError(err, id)
	}
	if res.MatchedCount == 0 {
		return &ErrNotFound{Key: id}
	}
	return nil
}
