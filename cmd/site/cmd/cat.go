package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var catCmd = &cobra.Command{
	Use:   "cat <site> <digest|asset-type>",
	Short: "Print a file of a site",
	Args:  cobra.ExactArgs(2),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	name, key := args[0], args[1]

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		digest := key
		s, err := c.LoadSite(ctx, name)
		if err != nil {
			return err
		}
		if f, ok := s.File(key); ok {
			digest = f.Digest.Value
		}

		body, err := c.LoadFile(ctx, name, digest)
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), body)
		return err
	})
}
