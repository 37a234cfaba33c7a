package workspace

import (
	"context"
	"fmt"

	"langidx/internal/errors"
)

// request is one unit of work for the worker goroutine.
type request struct {
	ctx      context.Context
	op       string
	run      func(context.Context) (*CompileResult, error)
	response chan response
}

type response struct {
	result *CompileResult
	err    error
}

// submit queues fn behind any work in flight and waits for its result.
// ctx bounds waiting only: once the worker picks a request up, it runs to
// completion.
func (w *Workspace) submit(ctx context.Context, op string, fn func(context.Context) (*CompileResult, error)) (*CompileResult, error) {
	req := &request{
		ctx:      ctx,
		op:       op,
		run:      fn,
		response: make(chan response, 1),
	}

	select {
	case <-w.done:
		return nil, errors.Newf(errors.WorkspaceClosed, "workspace is closed")
	default:
	}

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, fmt.Errorf("enqueueing %s: %w", op, ctx.Err())
	case <-w.done:
		return nil, errors.Newf(errors.WorkspaceClosed, "workspace is closed")
	}

	select {
	case resp := <-req.response:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", op, ctx.Err())
	case <-w.done:
		select {
		case resp := <-req.response:
			return resp.result, resp.err
		default:
			return nil, errors.Newf(errors.WorkspaceClosed, "workspace closed before %s ran", op)
		}
	}
}

// processQueue runs requests one at a time until the workspace closes.
func (w *Workspace) processQueue() {
	defer w.wg.Done()

	for {
		select {
		case req := <-w.requests:
			result, err := w.execute(req)
			req.response <- response{result: result, err: err}
		case <-w.done:
			return
		}
	}
}

func (w *Workspace) execute(req *request) (result *CompileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("request panicked", "op", req.op, "panic", fmt.Sprint(r))
			result, err = nil, errors.Newf(errors.InternalError, "%s panicked: %v", req.op, r)
		}
	}()

	w.logger.Debug("processing request", "op", req.op, "pending", len(w.requests))
	// Compiles are not cancellable once started.
	return req.run(context.WithoutCancel(req.ctx))
}
