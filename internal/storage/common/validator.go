package common

import "strings"

// MaxIDLength bounds user and conversation identifiers.
const MaxIDLength = 255

// ValidateID 验证 ID 格式
func ValidateID(field, id string) error {
	if id == "" {
		return &ErrInvalidData{Reason: field + " cannot be empty"}
	}
	if len(id) > MaxIDLength {
		return &ErrInvalidData{Reason: field + " too long"}
	}
	if strings.ContainsAny(id, "\x00\n\r\t") {
		return &ErrInvalidData{Reason: field + " contains invalid characters"}
	}
	return nil
}
