package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Field helpers keep key names consistent across the posting pipeline.

func TenantID(id uuid.UUID) zap.Field { return zap.String("tenant_id", id.String()) }

func DocumentID(id uuid.UUID) zap.Field { return zap.String("document_id", id.String()) }

func ProductID(id uuid.UUID) zap.Field { return zap.String("product_id", id.String()) }

func Series(series string) zap.Field { return zap.String("series", series) }

func Number(n int64) zap.Field { return zap.Int64("number", n) }

func Hash(h string) zap.Field { return zap.String("hash", h) }
