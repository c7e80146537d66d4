package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/census-contrib/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the resolved configuration as YAML",
			Long: `Print the configuration after merging defaults, the config file,
CENSUS_CONTRIB_* environment variables and command-line flags.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				bts, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("failed to encode configuration: %w", err)
				}
				out := cmd.OutOrStdout()
				if used := a.loader.GetConfigFileUsed(); used != "" {
					_, _ = fmt.Fprintf(out, "# loaded from %s\n", used)
				}
				_, err = fmt.Fprint(out, string(bts))
				return err
			},
		},
		&cobra.Command{
			Use:   "paths",
			Short: "List the directories searched for a config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.GetConfigSearchPaths(), "\n"))
				return err
			},
		},
	)
	return configCmd
}
