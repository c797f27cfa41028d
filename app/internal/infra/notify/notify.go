// Package notify delivers user-facing cart notices. Failures are already
// logged by the cart store, so notices are only recorded for the response.
package notify

import (
	"context"
	"sync"
)

type recorderKey struct{}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

// WithRecorder returns a context that collects notices sent through Request.
func WithRecorder(ctx context.Context) context.Context {
	return context.WithValue(ctx, recorderKey{}, &recorder{})
}

// Messages returns the notices recorded on ctx, oldest first.
func Messages(ctx context.Context) []string {
	rec, ok := ctx.Value(recorderKey{}).(*recorder)
	if !ok {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.messages...)
}

// Request stores notices on the recorder carried by the context, if any.
type Request struct{}

func (Request) Notify(ctx context.Context, message string) {
	rec, ok := ctx.Value(recorderKey{}).(*recorder)
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.messages = append(rec.messages, message)
	rec.mu.Unlock()
}
