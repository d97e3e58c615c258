package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/site"
	"github.com/aweris/site/internal/remote"
)

var pushCmd = &cobra.Command{
	Use:   "push <site> <ref>",
	Short: "Push a site to a remote registry",
	Long:  "Push a site record and all of its files to an OCI registry.",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	name, ref := args[0], args[1]

	r, err := newRemote(ref)
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, bodies, err := c.LoadSiteFiles(ctx, name)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Pushing %s to %s...\n", name, r)

		digest, err := r.Push(ctx, s, bodies)
		if err != nil {
			return fmt.Errorf("push failed: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Done. Digest: %s\n", digest)
		return nil
	})
}

func newRemote(ref string) (*remote.OCIRemote, error) {
	r, err := remote.NewOCIRemote(ref, remote.NewEnvAuthenticator(), slog.Default())
	if err != nil {
		return nil, err
	}
	r.SetConcurrency(viper.GetInt("concurrency"))
	return r, nil
}
