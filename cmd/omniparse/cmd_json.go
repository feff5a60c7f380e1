package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/jsonreader"
)

func newJSONCmd(a *app) *cobra.Command {
	var (
		indent bool
		get    string
	)

	cmd := &cobra.Command{
		Use:   "json [file]",
		Short: "Read a JSON document with the segment scanner",
		Long: `Read a JSON document, or stdin, with the segment scanner and print it back
in compact form. Key order is kept as written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := readInput(args)
			if err != nil {
				return err
			}
			v, err := jsonreader.Parse(text)
			if err != nil {
				return err
			}
			if get != "" {
				field, ok := v.Get(get)
				if !ok {
					return fmt.Errorf("no key %q", get)
				}
				v = field
			}

			b, err := v.MarshalJSON()
			if err != nil {
				return err
			}
			if indent {
				var buf bytes.Buffer
				if err := json.Indent(&buf, b, "", "  "); err != nil {
					return err
				}
				b = buf.Bytes()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}

	cmd.Flags().BoolVar(&indent, "indent", false, "indent the output")
	cmd.Flags().StringVar(&get, "get", "", "print only the value of this top level key")

	return cmd
}
