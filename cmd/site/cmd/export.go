package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var exportCmd = &cobra.Command{
	Use:   "export <site> <dir>",
	Short: "Write a site's files to a directory",
	Long:  "Write every file of a site to a directory, together with its record as site.json.",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	name, dir := args[0], args[1]

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, bodies, err := c.LoadSiteFiles(ctx, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}

		for _, f := range s.Files {
			path := filepath.Join(dir, fileNameFor(f))
			if err := os.WriteFile(path, []byte(bodies[f.Digest.Value]), 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\t%s\n", f.AssetType, path)
		}

		record, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "site.json"), append(record, '\n'), 0644)
	})
}
