package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var pullCmd = &cobra.Command{
	Use:   "pull <ref> [name]",
	Short: "Pull a site from a remote registry",
	Long:  "Pull a site from an OCI registry into the local store, optionally under a different name.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	r, err := newRemote(args[0])
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Pulling %s...\n", r)

		pulled, bodies, err := r.Pull(ctx)
		if err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}
		if len(args) > 1 {
			pulled.Name = args[1]
		}

		// Files are re-added one by one so the host recomputes every digest.
		s, err := c.SaveSite(ctx, &site.Site{Name: pulled.Name, Aliases: pulled.Aliases, Files: []site.File{}})
		if err != nil {
			return err
		}
		for _, f := range pulled.Files {
			if s, err = c.SaveFile(ctx, s, bodies[f.Digest.Value], f.AssetType); err != nil {
				return fmt.Errorf("save %s: %w", f.AssetType, err)
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Done. %s: %d files\n", s.Name, len(s.Files))
		return nil
	})
}
