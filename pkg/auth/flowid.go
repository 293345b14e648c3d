package auth

import "context"

type flowIDKey struct{}

// WithFlowID returns a context carrying the correlation id of one
// authentication flow. The authenticator attaches an id before invoking the
// token handler, so collaborators can tag their own log lines with it.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowIDKey{}, id)
}

// FlowIDFromContext returns the flow correlation id, or "" when the context
// carries none.
func FlowIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(flowIDKey{}).(string)
	return id
}
