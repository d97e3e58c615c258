// Package store implements host-side persistence of site records and
// file bodies.
//
// Each site lives in its own namespace holding the site record and the
// bodies of its files keyed by digest value. Writes touching a record and
// its bodies are applied atomically.
package store

import (
	"context"

	"github.com/aweris/site"
)

// Store persists sites and file bodies.
type Store interface {
	// ListSites returns the names of all stored sites in byte order.
	ListSites(ctx context.Context) ([]string, error)

	// CreateSite stores a new record; site.ErrExists if the name is taken.
	CreateSite(ctx context.Context, s *site.Site) error

	// GetSite returns a record; site.ErrNotFound if absent.
	GetSite(ctx context.Context, name string) (*site.Site, error)

	// PutSite writes a record, creating the site if needed.
	PutSite(ctx context.Context, s *site.Site) error

	// PutFile stores body under digest, deletes the bodies listed in drop
	// and writes the record, all in one transaction.
	PutFile(ctx context.Context, s *site.Site, digest string, body []byte, drop []string) error

	// GetFile returns a body; site.ErrNotFound if the site or digest is absent.
	GetFile(ctx context.Context, name, digest string) ([]byte, error)

	Close() error
}
