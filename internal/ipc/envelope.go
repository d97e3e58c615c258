// Package ipc carries site commands across a process boundary.
//
// Requests and responses are JSON envelopes matched by call id:
//
//	{"id":"…","cmd":"plugin:site|load_site","args":{"site_name":"blog"}}
//	{"id":"…","ok":{"name":"blog","aliases":[],"files":[]}}
//	{"id":"…","error":{"code":"not_found","message":"…"}}
//
// A Router dispatches requests to handlers on the host side. Local invokes
// a Router in-process; Conn and Serve run the same envelopes over a byte
// stream, one JSON document per line.
package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aweris/site"
)

// Request is a single command invocation.
type Request struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers the Request with the same ID. Exactly one of OK and
// Error is set.
type Response struct {
	ID    string          `json:"id"`
	OK    json.RawMessage `json:"ok,omitempty"`
	Error *ErrorPayload   `json:"error,omitempty"`
}

// ErrorPayload is the host-level error passed back to the caller.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result unwraps the response for command cmd.
func (r Response) Result(cmd string) (json.RawMessage, error) {
	if r.Error != nil {
		return nil, &site.InvocationError{Command: cmd, Code: r.Error.Code, Message: r.Error.Message}
	}
	if len(r.OK) == 0 {
		return json.RawMessage("null"), nil
	}
	return r.OK, nil
}

func errorResponse(id, code, msg string) Response {
	return Response{ID: id, Error: &ErrorPayload{Code: code, Message: msg}}
}

// Args are the named arguments of a request.
type Args map[string]json.RawMessage

// Decode unmarshals the argument named key into v.
func (a Args) Decode(key string, v any) error {
	raw, ok := a[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: missing argument %q", site.ErrInvalid, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: argument %q: %v", site.ErrInvalid, key, err)
	}
	return nil
}

func encodeArgs(args map[string]any) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return json.Marshal(args)
}

func decodeArgs(raw json.RawMessage) (Args, error) {
	args := Args{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: arguments must be an object: %v", site.ErrInvalid, err)
	}
	return args, nil
}
