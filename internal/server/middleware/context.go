package middleware

import "context"

type contextKey struct{ name string }

var (
	accountIDKey     = contextKey{"account_id"}
	accountEmailKey  = contextKey{"account_email"}
	correlationIDKey = contextKey{"correlation_id"}
)

// WithIdentity returns a context with account_id and account_email set.
// Handlers read these via GetAccountID and GetAccountEmail.
func WithIdentity(ctx context.Context, accountID, email string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	ctx = context.WithValue(ctx, accountEmailKey, email)
	return ctx
}

// GetAccountID returns the account_id from context and true if set; otherwise "", false.
func GetAccountID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIDKey).(string)
	return v, ok
}

// GetAccountEmail returns the account_email from context and true if set; otherwise "", false.
func GetAccountEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountEmailKey).(string)
	return v, ok
}

// WithCorrelationID returns a context carrying the request correlation id so
// downstream calls and audit entries can stamp it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID returns the correlation id from context and true if set;
// otherwise "", false.
func GetCorrelationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(correlationIDKey).(string)
	return v, ok
}
