package ipc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aweris/site"
)

// Local invokes a Router in the same process. Arguments and results still
// go through JSON, so handlers see exactly what a remote host would.
type Local struct {
	router *Router
}

var _ site.Invoker = (*Local)(nil)

func NewLocal(router *Router) *Local {
	return &Local{router: router}
}

// Invoke dispatches the call and waits for it. If ctx ends first the call
// keeps running on the host and its result is dropped.
func (l *Local) Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	raw, err := encodeArgs(args)
	if err != nil {
		return nil, &site.InvocationError{Command: command, Code: site.CodeTransport, Message: fmt.Sprintf("encode arguments: %v", err)}
	}
	req := Request{ID: uuid.NewString(), Cmd: command, Args: raw}

	done := make(chan Response, 1)
	go func() {
		done <- l.router.Dispatch(context.WithoutCancel(ctx), req)
	}()

	select {
	case resp := <-done:
		return resp.Result(command)
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", command, ctx.Err())
	}
}
