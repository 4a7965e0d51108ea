package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext returns the logged-in principal of the request session,
// or nil for anonymous requests and requests without a session.
func PrincipalFromContext(ctx context.Context) *Principal {
	return SessionFromContext(ctx).Principal()
}
