package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// Command names understood by the host.
const (
	CmdListSites  = "plugin:site|list_sites"
	CmdCreateSite = "plugin:site|create_site"
	CmdSaveSite   = "plugin:site|save_site"
	CmdLoadSite   = "plugin:site|load_site"
	CmdSaveFile   = "plugin:site|save_file"
	CmdLoadFile   = "plugin:site|load_file"
)

// Invoker dispatches a named command with named arguments to the host and
// returns the raw result.
type Invoker interface {
	Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, command string, args map[string]any) (json.RawMessage, error)

func (f InvokerFunc) Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	return f(ctx, command, args)
}

// Client exposes the site commands as typed calls. It is safe for
// concurrent use.
type Client struct {
	inv         Invoker
	concurrency int
}

// NewClient returns a client that sends every call through inv.
func NewClient(inv Invoker, opts ...ClientOption) *Client {
	options := defaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Client{inv: inv, concurrency: options.Concurrency}
}

// ListSites returns the names of all sites known to the host.
func (c *Client) ListSites(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, c.inv, CmdListSites, nil)
}

// CreateSite creates an empty site. The name must be unused.
func (c *Client) CreateSite(ctx context.Context, siteName string) (*Site, error) {
	return call[*Site](ctx, c.inv, CmdCreateSite, map[string]any{"site_name": siteName})
}

// SaveSite persists the full site record and returns it as stored.
func (c *Client) SaveSite(ctx context.Context, site *Site) (*Site, error) {
	return call[*Site](ctx, c.inv, CmdSaveSite, map[string]any{"site": site})
}

// LoadSite returns a previously saved site.
func (c *Client) LoadSite(ctx context.Context, siteName string) (*Site, error) {
	return call[*Site](ctx, c.inv, CmdLoadSite, map[string]any{"site_name": siteName})
}

// SaveFile stores file as the site's asset of the given type. The host
// computes the digest and replaces any previous file of that type.
func (c *Client) SaveFile(ctx context.Context, site *Site, file, assetType string) (*Site, error) {
	return call[*Site](ctx, c.inv, CmdSaveFile, map[string]any{
		"site":       site,
		"file":       file,
		"asset_type": assetType,
	})
}

// LoadFile returns the content of the site's file with the given digest value.
func (c *Client) LoadFile(ctx context.Context, siteName, fileDigest string) (string, error) {
	return call[string](ctx, c.inv, CmdLoadFile, map[string]any{
		"site_name":   siteName,
		"file_digest": fileDigest,
	})
}

// LoadSiteFiles loads a site and the content of all of its files, keyed by
// digest value.
func (c *Client) LoadSiteFiles(ctx context.Context, siteName string) (*Site, map[string]string, error) {
	s, err := c.LoadSite(ctx, siteName)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	bodies := make(map[string]string, len(s.Files))

	p := pool.New().WithMaxGoroutines(c.concurrency).WithContext(ctx).WithCancelOnError()
	for _, f := range s.Files {
		p.Go(func(ctx context.Context) error {
			body, err := c.LoadFile(ctx, s.Name, f.Digest.Value)
			if err != nil {
				return err
			}
			mu.Lock()
			bodies[f.Digest.Value] = body
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return s, bodies, nil
}

func call[T any](ctx context.Context, inv Invoker, command string, args map[string]any) (T, error) {
	var out T
	raw, err := inv.Invoke(ctx, command, args)
	if err != nil {
		return out, err
	}
	// Every command answers with a value; null means the host sent nothing.
	if t := bytes.TrimSpace(raw); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return out, &InvocationError{
			Command: command,
			Code:    CodeDecode,
			Message: "empty result",
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &InvocationError{
			Command: command,
			Code:    CodeDecode,
			Message: fmt.Sprintf("decode result: %v", err),
		}
	}
	return out, nil
}
