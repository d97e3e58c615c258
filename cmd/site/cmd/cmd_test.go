package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/site"
)

func run(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	require.NoError(t, rootCmd.Execute(), strings.Join(args, " "))
	return out.String()
}

func TestCLI_SiteLifecycle(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataDir := t.TempDir()

	page := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<h1>hello</h1>"), 0644))

	assert.Contains(t, run(t, dataDir, "list"), "(no sites)")
	assert.Contains(t, run(t, dataDir, "create", "blog", "b"), "Created blog")
	assert.Contains(t, run(t, dataDir, "save-file", "blog", page), site.AssetHTML)
	assert.Contains(t, run(t, dataDir, "alias", "blog", "weblog"), "[b weblog]")
	assert.Equal(t, "blog\n", run(t, dataDir, "list"))
	assert.Equal(t, "<h1>hello</h1>", run(t, dataDir, "cat", "blog", site.AssetHTML))

	yml := run(t, dataDir, "show", "blog", "-o", "yaml")
	assert.Contains(t, yml, "name: blog")
	assert.Contains(t, yml, "asset_type: text/html")

	out := filepath.Join(t.TempDir(), "export")
	run(t, dataDir, "export", "blog", out)
	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>hello</h1>", string(data))
	assert.FileExists(t, filepath.Join(out, "site.json"))
}

func TestAssetTypeFor(t *testing.T) {
	assert.Equal(t, site.AssetHTML, assetTypeFor("a/index.HTML"))
	assert.Equal(t, site.AssetCSS, assetTypeFor("style.css"))
	assert.Equal(t, site.AssetScript, assetTypeFor("app.js"))
	assert.Equal(t, site.AssetProjectData, assetTypeFor("project.json"))
	assert.Equal(t, "", assetTypeFor("README"))
}

func TestWriteSite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSite(&buf, site.NewSite("blog"), "text"))
	assert.Contains(t, buf.String(), "Files:   (none)")

	assert.Error(t, writeSite(&buf, site.NewSite("blog"), "xml"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelWarn, parseLevel("nonsense"))
}
