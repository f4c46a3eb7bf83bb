package httpserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const (
	adminIDKey   ctxKey = "gm.adminID"
	requestIDKey ctxKey = "gm.requestID"
)

// WithAdminID stores the authenticated admin ID in context.
func WithAdminID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, adminIDKey, id)
}

// AdminIDFromCtx fetches the admin ID from context.
func AdminIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(adminIDKey).(uuid.UUID)
	return id, ok
}

// RequestIDFromCtx returns the request id set by the requestID middleware.
func RequestIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
