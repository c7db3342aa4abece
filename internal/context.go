package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextIdentityKey   ctxKey = "identity"
	ContextClientInfoKey ctxKey = "clientInfo"
)

// Identity is the authenticated caller. It never carries credential material.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// ClientInfo is the network metadata recorded on sessions and audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(ContextIdentityKey).(*Identity)
	return id, ok && id != nil
}

func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

// ActorIDFromContext returns nil for unauthenticated (system) callers.
func ActorIDFromContext(ctx context.Context) *int64 {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	v := id.ID
	return &v
}

func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if ctx == nil {
		return ClientInfo{}
	}
	if info, ok := ctx.Value(ContextClientInfoKey).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}

func ContextWithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ContextClientInfoKey, info)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
