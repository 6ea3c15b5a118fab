package auth

import "context"

type Principal struct {
	UserID string // empty for anonymous requests
}

func (p *Principal) Anonymous() bool { return p == nil || p.UserID == "" }

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
