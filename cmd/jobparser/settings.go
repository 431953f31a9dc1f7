package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelaba/job-parser/internal/config"
	"github.com/abelaba/job-parser/internal/store"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change stored settings",
	}
	cmd.AddCommand(newSettingsListCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsListCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every setting; API keys are masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				st, err := a.settings.Settings(cmd.Context())
				if err != nil {
					return err
				}
				values := store.Values(st)
				for _, k := range store.Keys {
					v := values[k]
					if !reveal && strings.HasSuffix(k, "_api_key") {
						v = config.Mask(v)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print API keys unmasked")
	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save one setting (keys: " + strings.Join(store.Keys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == store.KeyDatabaseID {
				value = config.NormalizeNotionID(value)
			}
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.settings.Set(cmd.Context(), key, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", key)
				return nil
			})
		},
	}
}
