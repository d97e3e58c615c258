// Package host serves the site commands on top of a store.
package host

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/aweris/site"
	"github.com/aweris/site/internal/ipc"
	"github.com/aweris/site/internal/store"
)

// Host implements the command handlers.
type Host struct {
	store store.Store
	log   *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{store: st, log: logger.With("component", "host")}
}

// Register adds all site commands to r.
func (h *Host) Register(r *ipc.Router) {
	r.Handle(site.CmdListSites, h.listSites)
	r.Handle(site.CmdCreateSite, h.createSite)
	r.Handle(site.CmdSaveSite, h.saveSite)
	r.Handle(site.CmdLoadSite, h.loadSite)
	r.Handle(site.CmdSaveFile, h.saveFile)
	r.Handle(site.CmdLoadFile, h.loadFile)
}

// Router returns a new router with all site commands registered.
func (h *Host) Router() *ipc.Router {
	r := ipc.NewRouter(h.log)
	h.Register(r)
	return r
}

func (h *Host) listSites(ctx context.Context, _ ipc.Args) (any, error) {
	return h.store.ListSites(ctx)
}

func (h *Host) createSite(ctx context.Context, args ipc.Args) (any, error) {
	var name string
	if err := args.Decode("site_name", &name); err != nil {
		return nil, err
	}
	s := site.NewSite(name)
	if err := h.store.CreateSite(ctx, s); err != nil {
		return nil, err
	}
	h.log.InfoContext(ctx, "site created", "site", name)
	return s, nil
}

func (h *Host) saveSite(ctx context.Context, args ipc.Args) (any, error) {
	var s site.Site
	if err := args.Decode("site", &s); err != nil {
		return nil, err
	}
	if err := h.store.PutSite(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *Host) loadSite(ctx context.Context, args ipc.Args) (any, error) {
	var name string
	if err := args.Decode("site_name", &name); err != nil {
		return nil, err
	}
	return h.store.GetSite(ctx, name)
}

// saveFile replaces the site's file of the given asset type. Bodies that
// are no longer referenced by any remaining file are deleted.
func (h *Host) saveFile(ctx context.Context, args ipc.Args) (any, error) {
	var (
		s         site.Site
		body      string
		assetType string
	)
	if err := args.Decode("site", &s); err != nil {
		return nil, err
	}
	if err := args.Decode("file", &body); err != nil {
		return nil, err
	}
	if err := args.Decode("asset_type", &assetType); err != nil {
		return nil, err
	}
	if assetType == "" {
		return nil, fmt.Errorf("%w: asset_type is required", site.ErrInvalid)
	}

	digest := Digest([]byte(body))

	kept := make([]site.File, 0, len(s.Files)+1)
	var replaced []string
	for _, f := range s.Files {
		if f.AssetType == assetType {
			replaced = append(replaced, f.Digest.Value)
			continue
		}
		kept = append(kept, f)
	}
	kept = append(kept, site.File{Digest: digest, AssetType: assetType})
	s.Files = kept
	if s.Aliases == nil {
		s.Aliases = []string{}
	}

	if err := h.store.PutFile(ctx, &s, digest.Value, []byte(body), unreferenced(replaced, kept)); err != nil {
		return nil, err
	}
	h.log.InfoContext(ctx, "file saved", "site", s.Name, "asset_type", assetType, "digest", digest.Value)
	return &s, nil
}

func (h *Host) loadFile(ctx context.Context, args ipc.Args) (any, error) {
	var name, digest string
	if err := args.Decode("site_name", &name); err != nil {
		return nil, err
	}
	if err := args.Decode("file_digest", &digest); err != nil {
		return nil, err
	}
	data, err := h.store.GetFile(ctx, name, digest)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Digest returns the uncompressed SHA256 digest of data.
func Digest(data []byte) site.Digest {
	sum := sha256.Sum256(data)
	return site.Digest{
		Algo:       site.AlgoSHA256,
		DigestType: site.DigestUncompressed,
		Value:      hex.EncodeToString(sum[:]),
	}
}

func unreferenced(digests []string, files []site.File) []string {
	var out []string
	for _, d := range digests {
		used := false
		for _, f := range files {
			if f.Digest.Value == d {
				used = true
				break
			}
		}
		if !used {
			out = append(out, d)
		}
	}
	return out
}
