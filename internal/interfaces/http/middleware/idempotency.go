package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a post without double-posting
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds client supplied keys
const MaxIdempotencyKeyLength = 255

// GetIdempotencyKey returns the trimmed Idempotency-Key header. ok is false
// when the header is present but longer than MaxIdempotencyKeyLength.
func GetIdempotencyKey(c *gin.Context) (key string, ok bool) {
	key = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > MaxIdempotencyKeyLength {
		return "", false
	}
	return key, true
}
