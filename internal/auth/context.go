package auth

import (
	"context"
	"strings"
)

const DefaultSession = "default"

// SessionHeader identifies the admin screen whose undo state a request uses.
const SessionHeader = "X-Admin-Session"

type ctxKey struct{}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// GetSessionID returns the admin session of the request, or DefaultSession
// when the middleware did not run or the client sent none.
func GetSessionID(ctx context.Context) string {
	if val, ok := ctx.Value(ctxKey{}).(string); ok && val != "" {
		return val
	}
	return DefaultSession
}

// NormalizeSessionID trims the header value and caps its length so it can be
// used as part of a cache key.
func NormalizeSessionID(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 64 {
		raw = raw[:64]
	}
	if raw == "" {
		return DefaultSession
	}
	return raw
}
