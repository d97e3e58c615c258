// Package remote publishes site snapshots to OCI registries.
//
// A snapshot is an image whose config labels carry the site record and
// whose zstd layers carry the file bodies, packed by digest:
//   - Authentication via keychain or an Authenticator
//   - Upload ordering: layers → config → manifest
//   - Bodies verified against their digests on pull
package remote

import (
	"context"

	"github.com/aweris/site"
)

// Remote moves site snapshots to and from a registry.
type Remote interface {
	// Push uploads the site and the bodies of its files and returns the
	// manifest digest.
	Push(ctx context.Context, s *site.Site, bodies map[string]string) (string, error)

	// Pull downloads the site and the bodies of its files.
	Pull(ctx context.Context) (*site.Site, map[string]string, error)
}
