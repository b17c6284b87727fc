// Package tracing threads one execution_id through every public entry
// point's events, stream messages, log lines, and notifier calls (C10).
// The id itself is money.ExecutionID; this package is the context glue
// that carries it across suspension points and into the structured logger.
package tracing

import (
	"context"

	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/money"
)

type contextKey struct{}

var executionIDKey = contextKey{}

// Start generates a fresh execution id and returns a context carrying it,
// ready to log against and to pass into every downstream call for this
// invocation.
func Start(ctx context.Context) (context.Context, money.ExecutionID) {
	id := money.NewExecutionID()
	return WithExecutionID(ctx, id), id
}

// WithExecutionID attaches an already-generated execution id to ctx, used
// when an invocation resumes one started elsewhere (e.g. the ERP projector
// picking up the id carried on a stream message).
func WithExecutionID(ctx context.Context, id money.ExecutionID) context.Context {
	ctx = context.WithValue(ctx, executionIDKey, id)
	return logging.ContextWithExecutionID(ctx, id.String())
}

// From extracts the execution id previously attached by Start or
// WithExecutionID, or the zero value if none is present.
func From(ctx context.Context) money.ExecutionID {
	if id, ok := ctx.Value(executionIDKey).(money.ExecutionID); ok {
		return id
	}
	return ""
}
