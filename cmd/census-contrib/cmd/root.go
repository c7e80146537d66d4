package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/census-contrib/internal/config"
	"github.com/MeKo-Tech/census-contrib/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all subcommands of one root command.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCommand builds the command tree. Each call gets its own viper
// instance, so tests can execute independent trees.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "census-contrib",
		Short: "Stage contributed embeddings for the CELLxGENE Census",
		Long: `Tools for contributing cell embeddings to the CELLxGENE Census.

The ingest commands read an embedding from CSV, NumPy or a random generator,
check it against its metadata and stage it as soma_joinid/feature/value
triplets next to a manifest. Reading is done block by block and the time
each block took is logged as a warning.

Examples:
  census-contrib ingest csv emb.csv --accession CxG-contrib-1 --metadata meta.yaml --save-soma-to out/
  census-contrib ingest test --accession CxG-contrib-1 --metadata meta.yaml --save-soma-to out/ -v
  census-contrib scvi validate scvi-config.yaml`,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initialize,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/census-contrib, /etc/census-contrib)")
	flags.CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	flags.String("log-level", config.DefaultConfig().LogLevel, "log level (debug, info, warn, error)")
	flags.StringP("format", "f", config.DefaultConfig().Output.Format, "output format (text, json, yaml)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("output.format", flags.Lookup("format"))

	rootCmd.AddCommand(
		newIngestCommand(a),
		newSCVICommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

// initialize loads the configuration once flags are parsed and installs the
// JSON logger on stderr.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)

	a.logger.Debug("configuration loaded",
		"config_file", a.loader.GetConfigFileUsed(),
		"log_level", cfg.LogLevel,
		"verbose", cfg.Verbose)
	return nil
}
