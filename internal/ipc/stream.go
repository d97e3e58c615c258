package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/aweris/site"
)

var ErrClosed = errors.New("ipc: connection closed")

// Conn is an Invoker speaking to a host over a byte stream. Calls may be
// issued concurrently; responses are matched to callers by id.
type Conn struct {
	r io.Reader
	w io.Writer

	wmu sync.Mutex
	enc *json.Encoder

	mu      sync.Mutex
	pending map[string]chan Response
	err     error

	done chan struct{}
}

var _ site.Invoker = (*Conn)(nil)

// NewConn starts reading responses from r. Requests are written to w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	c := &Conn{
		r:       r,
		w:       w,
		enc:     json.NewEncoder(w),
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	raw, err := encodeArgs(args)
	if err != nil {
		return nil, &site.InvocationError{Command: command, Code: site.CodeTransport, Message: fmt.Sprintf("encode arguments: %v", err)}
	}
	req := Request{ID: uuid.NewString(), Cmd: command, Args: raw}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, transportError(command, err)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.wmu.Lock()
	err = c.enc.Encode(req)
	c.wmu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return nil, transportError(command, fmt.Errorf("write request: %w", err))
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, transportError(command, c.closeErr())
		}
		return resp.Result(command)
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, fmt.Errorf("%s: %w", command, ctx.Err())
	}
}

// Close fails all pending calls and closes the underlying stream when it
// supports closing.
func (c *Conn) Close() error {
	c.fail(ErrClosed)
	var errs []error
	if cl, ok := c.w.(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	if cl, ok := c.r.(io.Closer); ok && any(c.r) != any(c.w) {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) readLoop() {
	defer close(c.done)
	dec := json.NewDecoder(c.r)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			c.fail(fmt.Errorf("read response: %w", err))
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Conn) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func transportError(command string, err error) error {
	return &site.InvocationError{Command: command, Code: site.CodeTransport, Message: err.Error()}
}

// Serve reads requests from r until EOF and writes responses to w.
// Requests are handled concurrently; responses may be written out of
// order. Serve returns after all in-flight requests have been answered.
// When ctx ends Serve returns ctx.Err() without waiting for more input; a
// read blocked on r is abandoned.
func Serve(ctx context.Context, r io.Reader, w io.Writer, router *Router) error {
	log := router.log
	enc := json.NewEncoder(w)
	var wmu sync.Mutex

	var wg conc.WaitGroup
	defer wg.Wait()

	reqs := make(chan Request)
	readErr := make(chan error, 1)
	go func() {
		defer close(reqs)
		dec := json.NewDecoder(r)
		for {
			var req Request
			if err := dec.Decode(&req); err != nil {
				readErr <- err
				return
			}
			select {
			case reqs <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var req Request
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-reqs:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := <-readErr
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("ipc: read request: %w", err)
			}
			req = next
		}

		wg.Go(func() {
			resp := router.Dispatch(ctx, req)
			wmu.Lock()
			defer wmu.Unlock()
			if err := enc.Encode(resp); err != nil {
				log.ErrorContext(ctx, "write response failed", "id", req.ID, "cmd", req.Cmd, "error", err)
			}
		})
	}
}

// Pipe connects a Conn to a Router served in a background goroutine. The
// returned stop function closes the connection and waits for the server.
func Pipe(ctx context.Context, router *Router) (*Conn, func() error) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	served := make(chan error, 1)
	go func() {
		err := Serve(ctx, reqR, respW, router)
		_ = respW.Close()
		served <- err
	}()

	conn := NewConn(respR, reqW)
	stop := func() error {
		closeErr := conn.Close()
		err := <-served
		<-conn.Done()
		return errors.Join(err, closeErr)
	}
	return conn, stop
}
