package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var createCmd = &cobra.Command{
	Use:   "create <name> [aliases...]",
	Short: "Create a site",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, err := c.CreateSite(ctx, args[0])
		if err != nil {
			return err
		}
		if len(args) > 1 {
			s.Aliases = append(s.Aliases, args[1:]...)
			if s, err = c.SaveSite(ctx, s); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", s.Name)
		return nil
	})
}
