package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aweris/site"
)

var aliasCmd = &cobra.Command{
	Use:   "alias <site> <alias>...",
	Short: "Add or remove site aliases",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAlias,
}

func init() {
	aliasCmd.Flags().BoolP("remove", "r", false, "remove the aliases instead of adding them")
	rootCmd.AddCommand(aliasCmd)
}

func runAlias(cmd *cobra.Command, args []string) error {
	remove, _ := cmd.Flags().GetBool("remove")

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, err := c.LoadSite(ctx, args[0])
		if err != nil {
			return err
		}
		for _, alias := range args[1:] {
			switch {
			case remove:
				s.Aliases = slices.DeleteFunc(s.Aliases, func(a string) bool { return a == alias })
			case !s.HasAlias(alias):
				s.Aliases = append(s.Aliases, alias)
			}
		}
		if s, err = c.SaveSite(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", s.Name, s.Aliases)
		return nil
	})
}
