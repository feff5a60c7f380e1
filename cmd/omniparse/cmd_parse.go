package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/render"
	"github.com/jarredhawkins/omniparse/internal/segment"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		langName string
		format   string
		color    bool
		lenient  bool
		outline  bool
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the segment tree of a file",
		Long: `Parse a file, or stdin, and print its segment tree.

Formats:
  tree   indented tree of segments (default)
  flat   one line per segment with its depth
  json   nested JSON
  text   the reassembled text, identical to the input`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, text, err := readInput(args)
			if err != nil {
				return err
			}
			l, err := pickLanguage(a.langs, langName, path)
			if err != nil {
				return err
			}
			root, open, err := parseText(l, text, lenient)
			if err != nil {
				return err
			}
			if open != nil {
				log.Warn().Str("rule", open.Rule).Int("line", open.Line).Int("column", open.Column).Msg("unterminated segment closed at end of input")
			}

			out := cmd.OutOrStdout()
			if outline {
				for _, sym := range l.Outline(root, path) {
					fmt.Fprintf(out, "%d:%d\t%s\t%s\n", sym.Line, sym.Column+1, sym.Kind, sym.FullName)
				}
				return nil
			}
			return writeTree(out, root, format, color)
		},
	}

	cmd.Flags().StringVarP(&langName, "lang", "l", "", "language name (defaults to the one matching the file)")
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, flat, json or text")
	cmd.Flags().BoolVar(&color, "color", false, "color segment names")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "close unterminated segments at the end of input")
	cmd.Flags().BoolVar(&outline, "outline", false, "list the symbols of the file instead")

	return cmd
}

func writeTree(w io.Writer, root *segment.Segment, format string, color bool) error {
	switch format {
	case "tree":
		_, err := io.WriteString(w, render.Tree(root, color))
		return err
	case "flat":
		for _, e := range root.Flatten() {
			fmt.Fprintf(w, "%d\t%s\n", e.Depth, render.TreeLine(e.Node, color))
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(render.JSONTree(root))
	case "text":
		_, err := io.WriteString(w, root.Text())
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
