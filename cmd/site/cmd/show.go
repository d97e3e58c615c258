package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aweris/site"
)

var showCmd = &cobra.Command{
	Use:   "show <site>",
	Short: "Show a site record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringP("output", "o", "text", "output format: text, json, yaml")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")

	return withClient(cmd, func(ctx context.Context, c *site.Client) error {
		s, err := c.LoadSite(ctx, args[0])
		if err != nil {
			return err
		}
		return writeSite(cmd.OutOrStdout(), s, format)
	})
}

func writeSite(w io.Writer, s *site.Site, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "Name:    %s\n", s.Name)
		fmt.Fprintf(w, "Aliases: %v\n", s.Aliases)
		if len(s.Files) == 0 {
			fmt.Fprintln(w, "Files:   (none)")
			return nil
		}
		fmt.Fprintln(w, "Files:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range s.Files {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.AssetType, f.Digest.DigestType, f.Digest)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}
