package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the available languages and the files they apply to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.langs.Names() {
				l, _ := a.langs.ByName(name)
				files := append(append([]string{}, l.Extensions...), l.Filenames...)
				fmt.Fprintf(out, "%-10s %d rules\t%s\n", name, len(l.Rules), strings.Join(files, " "))
			}
			return nil
		},
	}
}
