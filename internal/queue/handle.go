package queue

import "context"

// Handle is the eventual result of one submission. It resolves exactly once.
type Handle struct {
	done   chan struct{}
	result string
	err    error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done is closed when the task has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the task finishes and returns its outcome
func (h *Handle) Result() (string, error) {
	<-h.done
	return h.result, h.err
}

// Wait is Result bounded by ctx. Giving up on the wait does not cancel the task.
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handle) resolve(result string, err error) {
	h.result = result
	h.err = err
	close(h.done)
}
