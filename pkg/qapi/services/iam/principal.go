package iam

import (
	"context"
)

type ctxKey string

const principalKey ctxKey = "qsys.principal"

const (
	MethodAPIKey = "api-key"
	MethodBearer = "bearer"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Method  string
}

// PrincipalFrom returns the principal set by the middleware, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	if v := ctx.Value(principalKey); v != nil {
		if p, ok := v.(*Principal); ok && p != nil {
			return p, true
		}
	}
	return nil, false
}

// User is the name recorded as a job's config.user.
func User(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.Subject
	}
	return ""
}
