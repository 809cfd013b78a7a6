package retry

import "context"

type ctxKey int

const (
	attemptKey ctxKey = iota
	runIDKey
)

// WithRunID tags ctx with the id of one scheduled firing. Events and logs
// emitted for that firing carry it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Attempt returns the attempt number of the enclosing Execute call, or 0
// when ctx is not inside one.
func Attempt(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey).(int)
	return n
}

func withAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey, n)
}
