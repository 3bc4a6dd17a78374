package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound 表示资源未找到
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Key)
}

// ErrInvalidData 表示数据无效
type ErrInvalidData struct {
	Reason string
}

func (e *ErrInvalidData) Error() string {
	return fmt.Sprintf("invalid data: %s", e.Reason)
}

// MapRedisError 将 Redis 错误映射为通用错误
func MapRedisError(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return &ErrNotFound{Key: key}
	}
	return mapContextError(err)
}

// MapMongoError 将 MongoDB 错误映射为通用错误
func MapMongoError(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &ErrNotFound{Key: key}
	}
	return mapContextError(err)
}

func mapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation canceled: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("operation timeout: %w", err)
	}
	return err
}

// IsNotFound 检查错误是否为 NotFound 类型
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsInvalidData 检查错误是否为 InvalidData 类型
func IsInvalidData(err error) bool {
	var inv *ErrInvalidData
	return errors.As(err, &inv)
}
