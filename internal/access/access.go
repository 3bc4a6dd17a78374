// Package access decides whether an authenticated user may use the relay.
package access

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDenied is returned by checkers that refuse a user.
var ErrDenied = errors.New("access denied")

// Checker gates relay usage per user.
type Checker interface {
	Check(ctx context.Context, userID string) error
}

// AllowAll admits every authenticated user.
type AllowAll struct{}

func (AllowAll) Check(context.Context, string) error { return nil }

// PaymentChecker admits users with at least one successful payment order.
type PaymentChecker struct {
	orders  *mongo.Collection
	timeout time.Duration
}

// PaymentOrderCollection is the collection written by the payment service.
const PaymentOrderCollection = "paymentorders"

func NewPaymentChecker(db *mongo.Database, timeout time.Duration) *PaymentChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PaymentChecker{orders: db.Collection(PaymentOrderCollection), timeout: timeout}
}

func (p *PaymentChecker) Check(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.orders.FindOne(ctx, bson.M{
		"userId": userIDFilter(userID),
		"status": "SUCCESS",
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrDenied
	}
	return err
}

// userIDFilter matches both ObjectId and string encodings of a user id.
func userIDFilter(userID string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		return bson.M{"$in": bson.A{oid, userID}}
	}
	return userID
}
