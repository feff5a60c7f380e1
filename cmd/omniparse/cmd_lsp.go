package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/lsp"
)

func newLSPCmd(a *app) *cobra.Command {
	var rootPath string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			idx, err := a.openWorkspace(ctx, rootPath)
			if err != nil {
				return err
			}
			log.Info().Str("root", idx.RootPath()).Msg("omniparse lsp starting")

			w, err := a.watchWorkspace(idx, nil)
			if err != nil {
				return err
			}
			defer w.Close()

			server := lsp.NewServer(idx)
			if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("omniparse lsp shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&rootPath, "root", "", "root of the workspace (defaults to current directory)")

	return cmd
}
