package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Completer for tests. Replies are returned in order; the
// last one repeats once the script runs out.
type Fake struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	Requests []Request
}

func (f *Fake) Provider() string {
	return "fake"
}

func (f *Fake) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	idx := len(f.Requests) - 1
	if idx >= len(f.Replies) {
		idx = len(f.Replies) - 1
	}
	return f.Replies[idx], nil
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
