package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/cli"
	"github.com/eda-labs/clab-connector/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.clab-connector/settings.json.

Settings provide defaults for connection flags. Flags and environment
variables take precedence.

  clab-connector settings show
  clab-connector settings set eda-url https://eda.example.com
  clab-connector settings set verify true
  clab-connector settings clear`,
	}
	cmd.AddCommand(newSettingsShowCmd(), newSettingsSetCmd(), newSettingsClearCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n\n", cli.Bold("Settings file:"), settings.DefaultSettingsPath())
			for _, key := range settings.Keys() {
				value, _ := s.Get(key)
				if value == "" {
					value = cli.Dim("(not set)")
				}
				fmt.Fprintf(out, "  %s %s\n", cli.DotPad(key, 16), value)
			}
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Set a setting value",
		Long: fmt.Sprintf(`Set a persistent setting value.

Available settings: %s`, strings.Join(settings.Keys(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load()
			if err != nil {
				s = &settings.Settings{}
			}
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	}
}

func newSettingsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &settings.Settings{}
			if err := s.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("Settings cleared."))
			return nil
		},
	}
}
