package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/census-contrib/internal/embedding"
	"github.com/MeKo-Tech/census-contrib/internal/ingest"
	"github.com/MeKo-Tech/census-contrib/internal/metadata"
	"github.com/MeKo-Tech/census-contrib/internal/metrics"
	"github.com/spf13/cobra"
)

// sourceOpener opens the embedding source of one ingest subcommand.
type sourceOpener func(cmd *cobra.Command, args []string) (embedding.Source, error)

func newIngestCommand(a *app) *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Validate and stage a contributed embedding",
		Long: `Read an embedding, check it against its contribution metadata and stage it
under <save-soma-to>/<accession>/ as embedding.csv and manifest.yaml.

The time spent reading each block of rows is logged as a warning record.`,
	}

	flags := ingestCmd.PersistentFlags()
	flags.String("accession", "", "accession of the contribution (must match the metadata id)")
	flags.String("metadata", "", "contribution metadata file (.json, .yaml or .yml)")
	flags.String("save-soma-to", "", "output directory for the staged embedding")
	flags.Int("block-size", embedding.DefaultBlockSize, "rows per timed block")
	flags.String("metrics-file", "", "write Prometheus metrics in textfile format to this path")
	_ = ingestCmd.MarkPersistentFlagRequired("accession")
	_ = ingestCmd.MarkPersistentFlagRequired("metadata")
	_ = ingestCmd.MarkPersistentFlagRequired("save-soma-to")

	v := a.loader.GetViper()
	_ = v.BindPFlag("ingest.block_size", flags.Lookup("block-size"))
	_ = v.BindPFlag("ingest.metrics_file", flags.Lookup("metrics-file"))

	ingestCmd.AddCommand(
		newIngestCSVCommand(a),
		newIngestNPYCommand(a),
		newIngestTestCommand(a),
	)
	return ingestCmd
}

func newIngestCSVCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "csv <csv_uri>",
		Short: "Ingest an embedding from a CSV or TSV file",
		Long: `Ingest an embedding stored as delimited text. Column 0 holds the soma_joinid,
the remaining columns hold the coordinates. Files ending in .tsv or .tab are
read tab-separated. A leading header row and # comment lines are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args, "csv", func(_ *cobra.Command, args []string) (embedding.Source, error) {
				return embedding.OpenCSV(args[0])
			})
		},
	}
}

func newIngestNPYCommand(a *app) *cobra.Command {
	npyCmd := &cobra.Command{
		Use:   "npy",
		Short: "Ingest an embedding from NumPy .npy files",
		Long: `Ingest an embedding stored as two NumPy arrays: a 1-D integer array of
soma_joinids and a 2-D float array of coordinates with one row per joinid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args, "npy", func(cmd *cobra.Command, _ []string) (embedding.Source, error) {
				joinIDs, _ := cmd.Flags().GetString("joinid-uri")
				coords, _ := cmd.Flags().GetString("embedding-uri")
				return embedding.OpenNPY(joinIDs, coords)
			})
		},
	}
	npyCmd.Flags().String("joinid-uri", "", "path of the soma_joinid .npy array")
	npyCmd.Flags().String("embedding-uri", "", "path of the embedding .npy array")
	_ = npyCmd.MarkFlagRequired("joinid-uri")
	_ = npyCmd.MarkFlagRequired("embedding-uri")
	return npyCmd
}

func newIngestTestCommand(a *app) *cobra.Command {
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Ingest a randomly generated test embedding",
		Long: `Generate an embedding with soma_joinids 0..n-obs-1 and coordinates drawn
uniformly from [0, 1). The same seed always produces the same embedding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args, "test", func(cmd *cobra.Command, _ []string) (embedding.Source, error) {
				nFeatures, _ := cmd.Flags().GetInt("n-features")
				nObs, _ := cmd.Flags().GetInt("n-obs")
				if nFeatures <= 0 {
					return nil, fmt.Errorf("--n-features must be positive, got %d", nFeatures)
				}
				if nObs < 0 {
					return nil, fmt.Errorf("--n-obs must not be negative, got %d", nObs)
				}
				return embedding.NewRandomSource(nObs, nFeatures, a.cfg.Ingest.Seed), nil
			})
		},
	}
	testCmd.Flags().Int("n-features", 2, "number of embedding coordinates")
	testCmd.Flags().Int("n-obs", 0, fmt.Sprintf("number of rows (0 means %d)", embedding.DefaultTestRows))
	testCmd.Flags().Uint64("seed", 0, "random seed")
	_ = a.loader.GetViper().BindPFlag("ingest.seed", testCmd.Flags().Lookup("seed"))
	return testCmd
}

// runIngest loads the metadata, opens the source and stages it. Metrics are
// written even when the run fails.
func (a *app) runIngest(cmd *cobra.Command, args []string, source string, open sourceOpener) (err error) {
	accession, _ := cmd.Flags().GetString("accession")
	metadataPath, _ := cmd.Flags().GetString("metadata")
	outputDir, _ := cmd.Flags().GetString("save-soma-to")

	md, err := metadata.Load(metadataPath)
	if err != nil {
		return err
	}

	src, err := open(cmd, args)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s source: %w", source, closeErr))
		}
	}()

	m := metrics.New()
	result, err := ingest.Run(cmd.Context(), src, md, &ingest.Config{
		Accession:  accession,
		SourceName: source,
		OutputDir:  outputDir,
		BlockSize:  a.cfg.Ingest.BlockSize,
		Logger:     a.logger,
		Metrics:    m,
	})
	if path := a.cfg.Ingest.MetricsFile; path != "" {
		if mErr := m.WriteTextfile(path); mErr != nil {
			a.logger.Error("failed to write metrics", "path", path, "error", mErr)
		}
	}
	if err != nil {
		return err
	}

	out, err := ingest.FormatResult(result, a.cfg.Output.Format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
