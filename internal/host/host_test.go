package host

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/site"
	"github.com/aweris/site/internal/ipc"
	"github.com/aweris/site/internal/store"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	st, err := store.OpenBoltStore(filepath.Join(t.TempDir(), "sites.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, nil)
}

func newTestClient(t *testing.T) *site.Client {
	t.Helper()
	return site.NewClient(ipc.NewLocal(newTestHost(t).Router()))
}

func TestHost_CreateThenLoad(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateSite(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "blog", created.Name)
	assert.Empty(t, created.Files)
	assert.NotNil(t, created.Aliases)

	loaded, err := c.LoadSite(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, "blog", loaded.Name)
}

func TestHost_CreateRejectsDuplicateAndEmpty(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateSite(ctx, "blog")
	require.NoError(t, err)

	_, err = c.CreateSite(ctx, "blog")
	assert.ErrorIs(t, err, site.ErrExists)

	_, err = c.CreateSite(ctx, "")
	assert.ErrorIs(t, err, site.ErrInvalid)
}

func TestHost_SaveThenLoadRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	in := &site.Site{Name: "blog", Aliases: []string{"b"}, Files: []site.File{}}
	saved, err := c.SaveSite(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, saved)

	loaded, err := c.LoadSite(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, in, loaded)
}

func TestHost_SaveFileThenLoadFile(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	s, err := c.CreateSite(ctx, "blog")
	require.NoError(t, err)

	s, err = c.SaveFile(ctx, s, "hello", "text/plain")
	require.NoError(t, err)
	require.Len(t, s.Files, 1)

	f := s.Files[0]
	assert.Equal(t, "text/plain", f.AssetType)
	assert.Equal(t, site.AlgoSHA256, f.Digest.Algo)
	assert.Equal(t, site.DigestUncompressed, f.Digest.DigestType)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", f.Digest.Value)

	body, err := c.LoadFile(ctx, s.Name, f.Digest.Value)
	require.NoError(t, err)
	assert.Equal(t, "hello", body)

	loaded, err := c.LoadSite(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestHost_SaveFileReplacesSameAssetType(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	s, err := c.CreateSite(ctx, "blog")
	require.NoError(t, err)
	s, err = c.SaveFile(ctx, s, "<h1>v1</h1>", site.AssetHTML)
	require.NoError(t, err)
	s, err = c.SaveFile(ctx, s, "body{}", site.AssetCSS)
	require.NoError(t, err)
	old, _ := s.File(site.AssetHTML)

	s, err = c.SaveFile(ctx, s, "<h1>v2</h1>", site.AssetHTML)
	require.NoError(t, err)
	require.Len(t, s.Files, 2)
	assert.Equal(t, site.AssetCSS, s.Files[0].AssetType)
	assert.Equal(t, site.AssetHTML, s.Files[1].AssetType)

	_, err = c.LoadFile(ctx, "blog", old.Digest.Value)
	assert.True(t, site.IsNotFound(err))

	cur, _ := s.File(site.AssetHTML)
	body, err := c.LoadFile(ctx, "blog", cur.Digest.Value)
	require.NoError(t, err)
	assert.Equal(t, "<h1>v2</h1>", body)
}

func TestHost_SaveFileKeepsSharedBody(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	s, err := c.CreateSite(ctx, "blog")
	require.NoError(t, err)
	s, err = c.SaveFile(ctx, s, "{}", site.AssetProjectData)
	require.NoError(t, err)
	s, err = c.SaveFile(ctx, s, "{}", "application/x-other")
	require.NoError(t, err)

	// Replacing one asset must not delete a body the other still uses.
	s, err = c.SaveFile(ctx, s, `{"v":2}`, site.AssetProjectData)
	require.NoError(t, err)

	other, ok := s.File("application/x-other")
	require.True(t, ok)
	body, err := c.LoadFile(ctx, "blog", other.Digest.Value)
	require.NoError(t, err)
	assert.Equal(t, "{}", body)
}

func TestHost_SaveFileRequiresAssetType(t *testing.T) {
	c := newTestClient(t)
	_, err := c.SaveFile(context.Background(), site.NewSite("blog"), "x", "")
	assert.ErrorIs(t, err, site.ErrInvalid)
}

func TestHost_ListSites(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateSite(ctx, "a")
	require.NoError(t, err)
	_, err = c.CreateSite(ctx, "b")
	require.NoError(t, err)

	names, err := c.ListSites(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestHost_NotFound(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.LoadSite(ctx, "nonexistent")
	assert.True(t, site.IsNotFound(err))

	var ie *site.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, site.CmdLoadSite, ie.Command)

	_, err = c.CreateSite(ctx, "blog")
	require.NoError(t, err)
	_, err = c.LoadFile(ctx, "blog", "deadbeef")
	assert.True(t, site.IsNotFound(err))
}

func TestHost_MissingArgument(t *testing.T) {
	inv := ipc.NewLocal(newTestHost(t).Router())

	_, err := inv.Invoke(context.Background(), site.CmdLoadSite, nil)
	assert.ErrorIs(t, err, site.ErrInvalid)

	_, err = inv.Invoke(context.Background(), site.CmdLoadFile, map[string]any{"site_name": "blog"})
	assert.ErrorIs(t, err, site.ErrInvalid)
}

func TestHost_UnknownCommand(t *testing.T) {
	inv := ipc.NewLocal(newTestHost(t).Router())

	_, err := inv.Invoke(context.Background(), "plugin:site|drop_site", nil)
	var ie *site.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, site.CodeUnknownCommand, ie.Code)
}

func TestHost_ConcurrentCallsOverStream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, stop := ipc.Pipe(ctx, newTestHost(t).Router())
	c := site.NewClient(conn)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.CreateSite(ctx, name)
			if err == nil {
				_, err = c.SaveFile(ctx, s, "content of "+name, site.AssetHTML)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	names, err := c.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 8)

	s, bodies, err := c.LoadSiteFiles(ctx, "c")
	require.NoError(t, err)
	f, _ := s.File(site.AssetHTML)
	assert.Equal(t, "content of c", bodies[f.Digest.Value])

	require.NoError(t, stop())
}

func TestDigest(t *testing.T) {
	d := Digest([]byte(""))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d.Value)
	assert.Equal(t, "SHA256:"+d.Value, d.String())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"algo":"SHA256","digest_type":"Uncompressed","value":"`+d.Value+`"}`, string(raw))
}
