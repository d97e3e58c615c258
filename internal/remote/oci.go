package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/site"
)

const (
	DefaultConcurrency = 4

	labelName   = "dev.site.name"
	labelRecord = "dev.site.record"
)

type OCIRemote struct {
	ref         name.Reference
	auth        Authenticator
	concurrency int
	log         *slog.Logger
}

var _ Remote = (*OCIRemote)(nil)

// NewOCIRemote creates a remote from a standard Docker ref (e.g., "ghcr.io/me/sites/blog:latest")
func NewOCIRemote(imageRef string, auth Authenticator, logger *slog.Logger) (*OCIRemote, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCIRemote{
		ref:         ref,
		auth:        auth,
		concurrency: DefaultConcurrency,
		log:         logger.With("component", "remote", "ref", ref.String()),
	}, nil
}

// SetConcurrency sets the number of parallel operations for push/pull
func (r *OCIRemote) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

func (r *OCIRemote) String() string   { return r.ref.String() }
func (r *OCIRemote) Registry() string { return r.ref.Context().RegistryStr() }

// blobLayer implements v1.Layer with zstd compression for remote transfer
type blobLayer struct {
	compressed   []byte
	uncompressed []byte
}

var layerEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
})

func newBlobLayer(data []byte) (*blobLayer, error) {
	enc, err := layerEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &blobLayer{
		compressed:   enc.EncodeAll(data, nil),
		uncompressed: data,
	}, nil
}

func (l *blobLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *blobLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *blobLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}
func (l *blobLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}
func (l *blobLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *blobLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads the site record and every referenced body.
func (r *OCIRemote) Push(ctx context.Context, s *site.Site, bodies map[string]string) (string, error) {
	files := make(map[string][]byte, len(s.Files))
	sizes := make(map[string]int64, len(s.Files))
	for _, f := range s.Files {
		body, ok := bodies[f.Digest.Value]
		if !ok {
			return "", fmt.Errorf("missing body for %s file %s", f.AssetType, f.Digest.Value)
		}
		files[f.Digest.Value] = []byte(body)
		sizes[f.Digest.Value] = int64(len(body))
	}

	plan := BuildLayerPlan(sizes)
	layers := make([]v1.Layer, 0, len(plan))
	var totalRaw, totalCompressed int64
	for _, group := range plan {
		chunk := make(map[string][]byte, len(group))
		for _, d := range group {
			chunk[d] = files[d]
		}
		data, err := PackLayer(chunk)
		if err != nil {
			return "", fmt.Errorf("pack layer: %w", err)
		}
		layer, err := newBlobLayer(data)
		if err != nil {
			return "", err
		}
		totalRaw += int64(len(data))
		totalCompressed += int64(len(layer.compressed))
		layers = append(layers, layer)
	}

	r.log.InfoContext(ctx, "pushing site", "site", s.Name, "files", len(files),
		"layers", len(layers), "bytes", totalRaw, "compressed", totalCompressed)

	img, err := r.buildImage(layers, s)
	if err != nil {
		return "", fmt.Errorf("build image: %w", err)
	}

	if err := r.pushImage(ctx, img); err != nil {
		return "", fmt.Errorf("push image: %w", err)
	}

	digest, err := img.Digest()
	if err != nil {
		return "", fmt.Errorf("image digest: %w", err)
	}
	return digest.String(), nil
}

func (r *OCIRemote) buildImage(layers []v1.Layer, s *site.Site) (v1.Image, error) {
	img := empty.Image

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	record, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	cfg = cfg.DeepCopy()
	cfg.Config.Labels = map[string]string{
		labelName:   s.Name,
		labelRecord: string(record),
	}

	return mutate.ConfigFile(img, cfg)
}

func (r *OCIRemote) pushImage(ctx context.Context, img v1.Image) error {
	options := r.remoteOptions(ctx)
	options = append(options, remote.WithJobs(r.concurrency))
	_, err := retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	})
	return err
}

// Pull downloads the snapshot. Every body is checked against its digest.
func (r *OCIRemote) Pull(ctx context.Context) (*site.Site, map[string]string, error) {
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		return remote.Image(r.ref, r.remoteOptions(ctx)...)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch image: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, nil, fmt.Errorf("get config: %w", err)
	}

	record := cfg.Config.Labels[labelRecord]
	if record == "" {
		return nil, nil, fmt.Errorf("missing %s label", labelRecord)
	}
	var s site.Site
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, nil, fmt.Errorf("parse site record: %w", err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, nil, fmt.Errorf("get layers: %w", err)
	}

	r.log.InfoContext(ctx, "pulling site", "site", s.Name, "layers", len(layers))

	var mu sync.Mutex
	bodies := make(map[string]string)

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx).WithCancelOnError()

	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil {
				return fmt.Errorf("close layer: %w", cerr)
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			chunk, err := UnpackLayer(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			for digest, body := range chunk {
				sum := sha256.Sum256(body)
				if hex.EncodeToString(sum[:]) != digest {
					return fmt.Errorf("body %s: digest mismatch", digest)
				}
			}

			mu.Lock()
			for k, v := range chunk {
				bodies[k] = string(v)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	for _, f := range s.Files {
		if _, ok := bodies[f.Digest.Value]; !ok {
			return nil, nil, fmt.Errorf("snapshot is missing %s file %s", f.AssetType, f.Digest.Value)
		}
	}

	return &s, bodies, nil
}

func (r *OCIRemote) remoteOptions(ctx context.Context) []remote.Option {
	options := []remote.Option{remote.WithContext(ctx)}
	if r.auth != nil {
		username, password, err := r.auth.Authenticate(r.Registry())
		if err == nil && username != "" {
			return append(options, remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			}))
		}
	}
	return append(options, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
