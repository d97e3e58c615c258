package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/site/internal/ipc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve site commands over stdio",
	Long: "Serve site commands to a host application over stdin/stdout,\n" +
		"one JSON request or response per line.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	h, closeStore, err := openHost()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	router := h.Router()
	slog.Info("serving", "commands", router.Commands())

	if err := ipc.Serve(cmd.Context(), os.Stdin, os.Stdout, router); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
