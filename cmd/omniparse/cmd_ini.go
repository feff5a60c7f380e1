package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/ini"
)

func newINICmd(a *app) *cobra.Command {
	var (
		toml bool
		get  []string
		set  []string
	)

	cmd := &cobra.Command{
		Use:   "ini <file>",
		Short: "Read or edit an INI or TOML style file",
		Long: `Read or edit an INI file. Keys are written as category.key; keys outside
any category use a leading dot, e.g. .name.

Without --get or --set the normalized file is printed. --set writes the
file in place, creating it when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flavor := ini.INI
			if toml {
				flavor = ini.TOML
			}

			path := args[0]
			var (
				f   *ini.File
				err error
			)
			if fileref.New(path).Exists() {
				f, err = ini.Load(path, flavor)
				if err != nil {
					return err
				}
			} else if len(set) > 0 {
				f = ini.New(flavor)
			} else {
				return fmt.Errorf("%s does not exist", path)
			}

			out := cmd.OutOrStdout()
			for _, key := range get {
				category, name, err := splitKey(key)
				if err != nil {
					return err
				}
				value, ok := f.Get(category, name)
				if !ok {
					return fmt.Errorf("%s is not set", key)
				}
				fmt.Fprintln(out, value)
			}
			if len(get) > 0 && len(set) == 0 {
				return nil
			}

			for _, assignment := range set {
				key, value, ok := strings.Cut(assignment, "=")
				if !ok {
					return fmt.Errorf("--set %q: expected key=value", assignment)
				}
				category, name, err := splitKey(key)
				if err != nil {
					return err
				}
				f.Set(category, name, value)
			}
			if len(set) > 0 {
				return f.SaveTo(path)
			}

			_, err = fmt.Fprintln(out, f.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&toml, "toml", false, "quote and unquote values the TOML way")
	cmd.Flags().StringArrayVar(&get, "get", nil, "print the value of category.key")
	cmd.Flags().StringArrayVar(&set, "set", nil, "set category.key=value")

	return cmd
}

// splitKey splits category.key at the last dot.
func splitKey(key string) (category, name string, err error) {
	i := strings.LastIndex(key, ".")
	if i < 0 || i == len(key)-1 {
		return "", "", fmt.Errorf("key %q: expected category.key", key)
	}
	return key[:i], key[i+1:], nil
}
