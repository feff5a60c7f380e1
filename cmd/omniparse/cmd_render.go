package main

import (
	"bytes"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		langName string
		output   string
		lenient  bool
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Write an HTML page highlighting every segment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, text, err := readInput(args)
			if err != nil {
				return err
			}
			l, err := pickLanguage(a.langs, langName, path)
			if err != nil {
				return err
			}
			root, _, err := parseText(l, text, lenient)
			if err != nil {
				return err
			}

			title := filepath.Base(path)
			if path == "" {
				title = l.Name
			}
			var buf bytes.Buffer
			if err := render.HTML(&buf, root, render.HTMLOptions{Title: title}); err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := fileref.Write(output, buf.String()); err != nil {
				return err
			}
			log.Info().Str("path", output).Msg("wrote html")
			return nil
		},
	}

	cmd.Flags().StringVarP(&langName, "lang", "l", "", "language name (defaults to the one matching the file)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "close unterminated segments at the end of input")

	return cmd
}
