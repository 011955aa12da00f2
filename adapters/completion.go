package adapters

import (
	"context"
	"sync/atomic"
)

// Completion is a one-shot slot for a load outcome. The first Resolve wins: it stores the
// result, notifies the handler and closes Done. Every later Resolve is a no-op.
type Completion struct {
	resolved atomic.Bool
	handler  CompletionHandler
	result   LoadResult
	done     chan struct{}
}

// NewCompletion returns an unresolved Completion. handler may be nil when the caller
// only waits on Done.
func NewCompletion(handler CompletionHandler) *Completion {
	return &Completion{
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Resolve delivers result if nothing was delivered before. It reports whether this call won.
func (c *Completion) Resolve(result LoadResult) bool {
	if !c.resolved.CompareAndSwap(false, true) {
		return false
	}
	c.result = result
	close(c.done)
	if c.handler != nil {
		c.handler(result)
	}
	return true
}

// Done is closed once a result has been delivered.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Result returns the delivered result. It is only meaningful after Done is closed.
func (c *Completion) Result() LoadResult {
	<-c.done
	return c.result
}

// Wait blocks until a result is delivered or ctx ends. A delivered result wins over an ended ctx.
func (c *Completion) Wait(ctx context.Context) (LoadResult, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		select {
		case <-c.done:
			return c.result, nil
		default:
			return LoadResult{}, ctx.Err()
		}
	}
}
