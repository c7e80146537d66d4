// Package ingest validates a contributed embedding and stages it, together
// with its metadata, in an output directory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/census-contrib/internal/embedding"
	"github.com/MeKo-Tech/census-contrib/internal/metadata"
	"github.com/MeKo-Tech/census-contrib/internal/metrics"
	"github.com/MeKo-Tech/census-contrib/internal/timing"
)

// Output file names inside the accession directory.
const (
	EmbeddingFile = "embedding.csv"
	ManifestFile  = "manifest.yaml"
)

// ErrEmptyEmbedding is returned when the source produced no rows.
var ErrEmptyEmbedding = errors.New("embedding contains no rows")

// Config holds the settings of one ingest run.
type Config struct {
	Accession  string
	SourceName string
	OutputDir  string
	BlockSize  int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Result summarizes a completed ingest.
type Result struct {
	Accession string        `json:"accession" yaml:"accession"`
	Source    string        `json:"source" yaml:"source"`
	Rows      int           `json:"rows" yaml:"rows"`
	Features  int           `json:"features" yaml:"features"`
	Blocks    int           `json:"blocks" yaml:"blocks"`
	Triplets  int           `json:"triplets" yaml:"triplets"`
	MinJoinID int64         `json:"min_soma_joinid" yaml:"min_soma_joinid"`
	MaxJoinID int64         `json:"max_soma_joinid" yaml:"max_soma_joinid"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	OutputDir string        `json:"output_dir" yaml:"output_dir"`
}

// Run drains src block by block, logging the time each block took to read,
// validates every row against md and writes the staged output. A failed run
// removes the partially written accession directory.
func Run(ctx context.Context, src embedding.Source, md *metadata.Metadata, cfg *Config) (*Result, error) {
	if err := md.Validate(cfg.Accession); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outDir := filepath.Join(cfg.OutputDir, cfg.Accession)
	if _, err := os.Stat(outDir); err == nil {
		return nil, fmt.Errorf("output already exists: %s", outDir)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	start := time.Now()
	result, err := stage(ctx, src, md, cfg, logger, outDir, start)
	elapsed := time.Since(start)

	rows := 0
	if result != nil {
		rows = result.Rows
	}
	if cfg.Metrics != nil {
		cfg.Metrics.ObserveRun(cfg.SourceName, rows, elapsed.Seconds(), err)
	}

	if err != nil {
		if rmErr := os.RemoveAll(outDir); rmErr != nil {
			logger.Error("failed to remove partial output", "dir", outDir, "error", rmErr)
		}
		return nil, err
	}

	logger.Info("ingest complete",
		"accession", result.Accession,
		"rows", result.Rows,
		"features", result.Features,
		"duration", elapsed)
	return result, nil
}

func stage(
	ctx context.Context,
	src embedding.Source,
	md *metadata.Metadata,
	cfg *Config,
	logger *slog.Logger,
	outDir string,
	start time.Time,
) (*Result, error) {
	writer, err := embedding.CreateWriter(filepath.Join(outDir, EmbeddingFile))
	if err != nil {
		return nil, err
	}

	var opts []timing.Option
	if cfg.Metrics != nil {
		opts = append(opts, timing.WithObserver(cfg.Metrics.IteratorObserver(cfg.SourceName)))
	}
	blocks := timing.NewLoggingIterator(logger, embedding.Blocks(src, cfg.BlockSize), cfg.SourceName, opts...)
	validator := embedding.NewValidator(md.NFeatures)

	err = drain(ctx, blocks, validator, writer)
	if closeErr := writer.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write embedding: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}
	if validator.Rows() == 0 {
		return nil, ErrEmptyEmbedding
	}

	lo, hi := validator.JoinIDRange()
	result := &Result{
		Accession: cfg.Accession,
		Source:    cfg.SourceName,
		Rows:      validator.Rows(),
		Features:  md.NFeatures,
		Blocks:    blocks.Count(),
		Triplets:  writer.Triplets(),
		MinJoinID: lo,
		MaxJoinID: hi,
		Duration:  time.Since(start),
		OutputDir: outDir,
	}

	if err := writeManifest(filepath.Join(outDir, ManifestFile), md, result); err != nil {
		return nil, err
	}
	return result, nil
}

func drain(
	ctx context.Context,
	blocks timing.Iterator[[]embedding.Row],
	validator *embedding.Validator,
	writer *embedding.Writer,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, err := blocks.Next()
		if errors.Is(err, timing.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read embedding: %w", err)
		}
		if err := validator.Check(block); err != nil {
			return err
		}
		if err := writer.WriteBlock(block); err != nil {
			return err
		}
	}
}
