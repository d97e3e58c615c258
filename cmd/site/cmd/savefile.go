package cmd

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var saveFileCmd = &cobra.Command{
	Use:   "save-file <site> <path|->",
	Short: "Store a file in a site",
	Long: "Store a file as the site's asset of the given type, replacing the previous one.\n" +
		"The asset type defaults to the MIME type of the file extension.",
	Args: cobra.ExactArgs(2),
	RunE: runSaveFile,
}

func init() {
	saveFileCmd.Flags().StringP("type", "t", "", "asset type (e.g. text/html)")
	rootCmd.AddCommand(saveFileCmd)
}

func runSaveFile(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	assetType, _ := cmd.Flags().GetString("type")
	if assetType == "" {
		assetType = assetTypeFor(path)
	}
	if assetType == "" {
		return fmt.Errorf("cannot infer asset type of %q, use --type", path)
	}

	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, err := c.LoadSite(ctx, name)
		if err != nil {
			return err
		}
		s, err = c.SaveFile(ctx, s, string(data), assetType)
		if err != nil {
			return err
		}
		f, _ := s.File(assetType)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.AssetType, f.Digest.Value)
		return nil
	})
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func assetTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return site.AssetHTML
	case ".css":
		return site.AssetCSS
	case ".js", ".mjs":
		return site.AssetScript
	case ".json":
		return site.AssetProjectData
	case "":
		return ""
	}
	t := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

func fileNameFor(f site.File) string {
	switch f.AssetType {
	case site.AssetHTML:
		return "index.html"
	case site.AssetCSS:
		return "style.css"
	case site.AssetScript:
		return "script.js"
	case site.AssetProjectData:
		return "project.json"
	}
	if exts, _ := mime.ExtensionsByType(f.AssetType); len(exts) > 0 {
		return f.Digest.Value + exts[0]
	}
	return f.Digest.Value
}
