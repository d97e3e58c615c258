package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/registry"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/site"
)

func newTestRegistry(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func fileOf(body, assetType string) site.File {
	sum := sha256.Sum256([]byte(body))
	return site.File{
		Digest: site.Digest{
			Algo:       site.AlgoSHA256,
			DigestType: site.DigestUncompressed,
			Value:      hex.EncodeToString(sum[:]),
		},
		AssetType: assetType,
	}
}

func TestOCIRemote_PushPull(t *testing.T) {
	host := newTestRegistry(t)
	ctx := context.Background()

	html := "<html><body>" + strings.Repeat("<p>hello</p>", 100) + "</body></html>"
	css := "body { margin: 0 }"
	s := &site.Site{
		Name:    "blog",
		Aliases: []string{"b", "weblog"},
		Files:   []site.File{fileOf(html, site.AssetHTML), fileOf(css, site.AssetCSS)},
	}
	bodies := map[string]string{
		s.Files[0].Digest.Value: html,
		s.Files[1].Digest.Value: css,
	}

	r, err := NewOCIRemote(host+"/sites/blog:v1", nil, nil)
	require.NoError(t, err)
	r.SetConcurrency(2)

	digest, err := r.Push(ctx, s, bodies)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "sha256:"))

	got, gotBodies, err := r.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, bodies, gotBodies)
}

func TestOCIRemote_PushEmptySite(t *testing.T) {
	host := newTestRegistry(t)
	ctx := context.Background()

	r, err := NewOCIRemote(host+"/sites/empty", nil, nil)
	require.NoError(t, err)

	_, err = r.Push(ctx, site.NewSite("empty"), nil)
	require.NoError(t, err)

	got, bodies, err := r.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, "empty", got.Name)
	assert.Empty(t, got.Files)
	assert.Empty(t, bodies)
}

func TestOCIRemote_PushMissingBody(t *testing.T) {
	r, err := NewOCIRemote("example.com/sites/blog", nil, nil)
	require.NoError(t, err)

	s := &site.Site{Name: "blog", Files: []site.File{fileOf("x", site.AssetHTML)}}
	_, err = r.Push(context.Background(), s, map[string]string{})
	assert.ErrorContains(t, err, "missing body")
}

func TestNewOCIRemote_InvalidRef(t *testing.T) {
	_, err := NewOCIRemote("Not A Ref", nil, nil)
	assert.Error(t, err)
}

func TestEnvAuthenticator(t *testing.T) {
	t.Setenv("SITE_REGISTRY_USERNAME", "me")
	t.Setenv("SITE_REGISTRY_PASSWORD", "secret")

	a := NewEnvAuthenticator()
	u, p, err := a.Authenticate("ghcr.io")
	require.NoError(t, err)
	assert.Equal(t, "me", u)
	assert.Equal(t, "secret", p)

	t.Setenv("SITE_REGISTRY_HOST", "docker.io")
	u, _, err = a.Authenticate("ghcr.io")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestNewBlobLayer(t *testing.T) {
	data := []byte(strings.Repeat("<p>hello</p>", 64))
	layer, err := newBlobLayer(data)
	require.NoError(t, err)

	again, err := newBlobLayer(data)
	require.NoError(t, err)
	assert.Equal(t, layer.compressed, again.compressed)

	rc, err := layer.Compressed()
	require.NoError(t, err)
	dec, err := zstd.NewReader(rc)
	require.NoError(t, err)
	defer dec.Close()
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	digest, err := layer.Digest()
	require.NoError(t, err)
	want, _, err := v1.SHA256(strings.NewReader(string(layer.compressed)))
	require.NoError(t, err)
	assert.Equal(t, want, digest)

	diffID, err := layer.DiffID()
	require.NoError(t, err)
	assert.NotEqual(t, digest, diffID)

	mt, err := layer.MediaType()
	require.NoError(t, err)
	assert.Equal(t, types.OCILayerZStd, mt)
}
