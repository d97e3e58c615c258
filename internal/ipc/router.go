package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aweris/site"
)

// Handler serves one command.
type Handler func(ctx context.Context, args Args) (any, error)

// Router maps command names to handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	log      *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[string]Handler),
		log:      logger.With("component", "ipc"),
	}
}

// Handle registers h for cmd, replacing any previous handler.
func (r *Router) Handle(cmd string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[cmd] = h
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmds := make([]string, 0, len(r.handlers))
	for cmd := range r.handlers {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	return cmds
}

// Dispatch runs the handler for req and builds its response. It never
// returns a Response without the request's ID.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	r.mu.RLock()
	h, ok := r.handlers[req.Cmd]
	r.mu.RUnlock()
	if !ok {
		r.log.WarnContext(ctx, "unknown command", "id", req.ID, "cmd", req.Cmd)
		return errorResponse(req.ID, site.CodeUnknownCommand, fmt.Sprintf("command %q is not registered", req.Cmd))
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			resp = errorResponse(req.ID, site.CodeInternal, fmt.Sprintf("handler panic: %v", p))
		}
		if resp.Error != nil {
			r.log.WarnContext(ctx, "command failed", "id", req.ID, "cmd", req.Cmd,
				"code", resp.Error.Code, "error", resp.Error.Message, "duration", time.Since(start))
			return
		}
		r.log.DebugContext(ctx, "command served", "id", req.ID, "cmd", req.Cmd, "duration", time.Since(start))
	}()

	args, err := decodeArgs(req.Args)
	if err != nil {
		return errorResponse(req.ID, site.CodeInvalid, err.Error())
	}

	result, err := h(ctx, args)
	if err != nil {
		return errorResponse(req.ID, site.CodeOf(err), err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, site.CodeInternal, fmt.Sprintf("encode result: %v", err))
	}
	return Response{ID: req.ID, OK: data}
}
