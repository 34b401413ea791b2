package auth

import "context"

type ctxKey int

const (
	identityKey ctxKey = iota
	callerKey
)

// WithIdentity attaches a verified end-user identity to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity attached to ctx, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithCaller attaches the trusted internal caller to ctx.
func WithCaller(ctx context.Context, c *CallerInfo) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the caller attached to ctx, or nil.
func CallerFrom(ctx context.Context) *CallerInfo {
	c, _ := ctx.Value(callerKey).(*CallerInfo)
	return c
}
